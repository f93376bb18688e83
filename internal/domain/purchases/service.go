package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paywall-anywhere/internal/domain/access"
	"paywall-anywhere/internal/domain/entitlements"
	"paywall-anywhere/internal/domain/items"
	"paywall-anywhere/internal/platform/logger"
	"paywall-anywhere/internal/ports/mailer"
	"paywall-anywhere/internal/ports/payments"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// Service orquesta el flujo de compra: inicia el checkout con el
// proveedor y procesa el webhook que confirma el pago (grant + magic
// link por mail).
type Service struct {
	providers    map[string]payments.Provider
	items        *items.Service
	entitlements *entitlements.Service
	magic        *access.MagicLink
	mail         mailer.Mailer

	timeout time.Duration
	log     logger.Logger
}

func NewService(
	providers []payments.Provider,
	itemsSvc *items.Service,
	entitlementsSvc *entitlements.Service,
	magic *access.MagicLink,
	mail mailer.Mailer,
	timeout time.Duration,
	log logger.Logger,
) *Service {
	byName := make(map[string]payments.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		providers:    byName,
		items:        itemsSvc,
		entitlements: entitlementsSvc,
		magic:        magic,
		mail:         mail,
		timeout:      timeout,
		log:          log,
	}
}

type PurchaseInput struct {
	Provider   string
	ItemID     string
	Email      string
	SuccessURL string
	CancelURL  string
}

// InitiatePurchase crea la sesión de checkout con el proveedor elegido.
// Une llamada sincrónica con timeout acotado; si el proveedor falla el
// error sale como payments.ErrUpstream y el caller decide reintentar.
func (s *Service) InitiatePurchase(ctx context.Context, in PurchaseInput) (payments.Checkout, error) {
	name := strings.ToLower(strings.TrimSpace(in.Provider))
	provider, ok := s.providers[name]
	if !ok {
		return payments.Checkout{}, ErrUnknownProvider
	}

	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return payments.Checkout{}, ErrInvalidInput
	}

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			return payments.Checkout{}, ErrNotFound
		}
		return payments.Checkout{}, err
	}
	if it.Status != items.StatusActive {
		return payments.Checkout{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	co, err := provider.CreateCheckout(ctx, payments.CheckoutInput{
		ItemID:     it.ID,
		PostID:     it.PostID,
		Title:      checkoutTitle(it),
		PriceMinor: it.PriceMinor,
		Currency:   it.Currency,
		Email:      strings.TrimSpace(in.Email),
		SuccessURL: in.SuccessURL,
		CancelURL:  in.CancelURL,
	})
	if err != nil {
		s.log.Error("checkout falló", map[string]any{
			"provider": name,
			"item_id":  it.ID,
			"error":    err.Error(),
		})
		if errors.Is(err, payments.ErrNotConfigured) {
			return payments.Checkout{}, err
		}
		return payments.Checkout{}, payments.ErrUpstream
	}

	s.log.Info("checkout iniciado", map[string]any{
		"provider":   name,
		"item_id":    it.ID,
		"session_id": co.SessionID,
	})
	return co, nil
}

// WebhookEvent es el evento normalizado que mandan los proveedores al
// confirmar (o no) un pago.
type WebhookEvent struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	ItemID    string         `json:"item_id"`
	Email     string         `json:"email"`
	UserID    string         `json:"user_id"`
	Meta      map[string]any `json:"meta"`
}

// WebhookResult informa qué hizo el procesamiento del evento.
type WebhookResult struct {
	Processed     bool
	EntitlementID string
}

// HandleWebhook procesa el evento del proveedor. Solo los eventos de
// pago completado generan grant; el resto se acusa recibo y se ignora.
// Para compradores invitados se emite además un magic link por mail
// (token de un solo uso, guardado hasheado en el entitlement).
func (s *Service) HandleWebhook(ctx context.Context, providerName string, ev WebhookEvent) (WebhookResult, error) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if _, ok := s.providers[name]; !ok {
		return WebhookResult{}, ErrUnknownProvider
	}

	if !isCompletedEvent(ev.Type) {
		s.log.Info("webhook ignorado", map[string]any{
			"provider": name,
			"type":     ev.Type,
		})
		return WebhookResult{Processed: false}, nil
	}

	itemID := strings.TrimSpace(ev.ItemID)
	email := strings.ToLower(strings.TrimSpace(ev.Email))
	userID := strings.TrimSpace(ev.UserID)
	if itemID == "" || (email == "" && userID == "") {
		return WebhookResult{}, ErrInvalidInput
	}

	in := entitlements.GrantInput{
		ItemID: itemID,
		Source: entitlements.Source(name),
		Meta:   ev.Meta,
	}

	// Comprador autenticado: grant directo, sin magic link.
	if userID != "" {
		in.UserID = userID
		e, err := s.entitlements.Grant(ctx, in)
		if err != nil {
			return WebhookResult{}, mapGrantError(err)
		}
		s.log.Info("entitlement otorgado por webhook", map[string]any{
			"provider":       name,
			"entitlement_id": e.ID,
		})
		return WebhookResult{Processed: true, EntitlementID: e.ID}, nil
	}

	// Invitado: el acceso viaja por email + magic link de un solo uso.
	rawToken, err := access.GenerateToken()
	if err != nil {
		return WebhookResult{}, err
	}
	in.GuestEmail = email
	in.TokenHash = access.HashToken(rawToken)

	e, err := s.entitlements.Grant(ctx, in)
	if err != nil {
		return WebhookResult{}, mapGrantError(err)
	}

	if err := s.sendMagicLink(ctx, email, rawToken, e); err != nil {
		// El grant ya existe; el mail caído no lo deshace.
		s.log.Error("no se pudo enviar el magic link", map[string]any{
			"entitlement_id": e.ID,
			"error":          err.Error(),
		})
	}

	s.log.Info("entitlement de invitado otorgado por webhook", map[string]any{
		"provider":       name,
		"entitlement_id": e.ID,
	})
	return WebhookResult{Processed: true, EntitlementID: e.ID}, nil
}

func (s *Service) sendMagicLink(ctx context.Context, email, rawToken string, e entitlements.Entitlement) error {
	it, err := s.items.GetByID(ctx, e.ItemID)
	postID := ""
	if err == nil {
		postID = it.PostID
	}

	link := s.magic.URL(rawToken, postID)
	body := fmt.Sprintf(
		"Thanks for your purchase!\n\nUse this link to access your content:\n%s\n\nThe link works once and expires in %s.",
		link,
		formatTTL(s.magic.TTL()),
	)

	return s.mail.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Your premium content access",
		Body:    body,
	})
}

func mapGrantError(err error) error {
	switch {
	case errors.Is(err, entitlements.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, entitlements.ErrInvalidInput):
		return ErrInvalidInput
	}
	return err
}

func isCompletedEvent(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "payment.completed", "checkout.session.completed", "order.completed":
		return true
	}
	return false
}

func checkoutTitle(it items.Item) string {
	switch it.Scope {
	case items.ScopePost:
		return "Premium article access"
	default:
		return fmt.Sprintf("Premium %s access", it.Scope)
	}
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
