package payments

import (
	"context"
	"errors"
)

var (
	// ErrUpstream cubre timeout, non-2xx o respuesta malformada del
	// proveedor. Para el caller es un fallo reintentable (por el usuario,
	// no por nosotros: acá no se reintenta nunca).
	ErrUpstream = errors.New("payment provider unavailable")

	ErrNotConfigured = errors.New("payment provider not configured")
)

// CheckoutInput describe la compra a iniciar.
type CheckoutInput struct {
	ItemID     string
	PostID     string
	Title      string
	PriceMinor int64
	Currency   string
	Email      string
	SuccessURL string
	CancelURL  string
}

// Checkout es el resultado de iniciar una compra: a dónde mandar
// al comprador para completar el pago.
type Checkout struct {
	SessionID   string
	RedirectURL string
}

// Provider es el contrato con el colaborador de pagos.
// Una sola llamada sincrónica con timeout acotado; el resto del flujo
// llega después por webhook.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, in CheckoutInput) (Checkout, error)
}
