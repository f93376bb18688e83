package entitlements

import "time"

// Source indica la procedencia del grant.
type Source string

const (
	SourceStripe      Source = "stripe"
	SourceWooCommerce Source = "woocommerce"
	SourceManual      Source = "manual"
)

// Entitlement es un grant de acceso a exactamente un item.
// El holder es exactamente uno de {UserID, GuestEmail}; un grant de
// invitado puede reasignarse luego a un usuario (merge en login).
type Entitlement struct {
	ID string

	UserID     string // vacío si el holder es un invitado
	GuestEmail string // vacío si el holder es un usuario

	ItemID string

	GrantedAt time.Time
	// ExpiresAt nil = nunca expira. Una fila con ExpiresAt en el pasado
	// está semánticamente revocada aunque siga existiendo hasta cleanup:
	// toda lectura de grants activos filtra por expiry.
	ExpiresAt *time.Time

	Source Source

	// TokenHash guarda solo el hash del magic link; se limpia al
	// redimir y nunca vuelve a conceder acceso (uso único).
	TokenHash string

	// Meta es el payload opaco del proveedor (JSON).
	Meta map[string]any
}

// Expired responde si el grant está vencido al momento now.
func (e Entitlement) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}
