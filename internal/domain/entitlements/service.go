package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"paywall-anywhere/internal/domain/items"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo  Repository
	items *items.Service
	now   func() time.Time
}

func NewService(repo Repository, itemsSvc *items.Service) *Service {
	return &Service{
		repo:  repo,
		items: itemsSvc,
		now:   time.Now,
	}
}

type GrantInput struct {
	// Exactamente uno de UserID / GuestEmail.
	UserID     string
	GuestEmail string

	ItemID string
	Source Source

	// TokenHash opcional (magic link pendiente de redimir).
	TokenHash string
	Meta      map[string]any
}

// Grant crea un entitlement. La expiración sale de la política del item:
// expires_days nil => nunca expira; N => now + N días.
func (s *Service) Grant(ctx context.Context, in GrantInput) (Entitlement, error) {
	userID := strings.TrimSpace(in.UserID)
	email := normalizeEmail(in.GuestEmail)

	// Holder: exactamente uno.
	if (userID == "") == (email == "") {
		return Entitlement{}, ErrInvalidInput
	}
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return Entitlement{}, ErrInvalidInput
	}

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			return Entitlement{}, ErrNotFound
		}
		return Entitlement{}, err
	}

	now := s.now()
	e := Entitlement{
		ID:         uuid.NewString(),
		UserID:     userID,
		GuestEmail: email,
		ItemID:     it.ID,
		GrantedAt:  now,
		Source:     sanitizeSource(in.Source),
		TokenHash:  strings.TrimSpace(in.TokenHash),
		Meta:       in.Meta,
	}
	if it.ExpiresDays != nil {
		exp := now.AddDate(0, 0, *it.ExpiresDays)
		e.ExpiresAt = &exp
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return Entitlement{}, err
	}
	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Entitlement, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entitlement{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// ListActiveByUser devuelve los grants vigentes del usuario.
func (s *Service) ListActiveByUser(ctx context.Context, userID string) ([]Entitlement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListActiveByUser(ctx, userID, s.now())
}

// ListActiveByGuestEmail devuelve los grants vigentes del invitado.
func (s *Service) ListActiveByGuestEmail(ctx context.Context, email string) ([]Entitlement, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListActiveByGuestEmail(ctx, email, s.now())
}

// Revoke es borrado duro (la fila desaparece).
func (s *Service) Revoke(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// ReassignGuestToUser reatribuye al usuario todos los grants del email
// invitado. Best-effort fila a fila: no es transaccional, pero cada merge
// individual es idempotente, así que un corte a mitad de camino se
// completa en el próximo login del mismo email.
func (s *Service) ReassignGuestToUser(ctx context.Context, guestEmail, userID string) (int, error) {
	guestEmail = normalizeEmail(guestEmail)
	userID = strings.TrimSpace(userID)
	if guestEmail == "" || userID == "" {
		return 0, ErrInvalidInput
	}

	rows, err := s.repo.ListByGuestEmail(ctx, guestEmail)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, e := range rows {
		if err := s.repo.Reassign(ctx, e.ID, userID); err != nil {
			// best-effort: seguimos con el resto y reportamos lo movido
			continue
		}
		moved++
	}
	return moved, nil
}

// GetByTokenHash busca el grant dueño de un token de magic link.
// Ignora expiry del entitlement: el TTL del token lo chequea el caller.
func (s *Service) GetByTokenHash(ctx context.Context, hash string) (Entitlement, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return Entitlement{}, ErrNotFound
	}
	return s.repo.GetByTokenHash(ctx, hash)
}

// ClearToken consume el token (uso único). Devuelve ErrNotFound si otro
// request ya lo consumió.
func (s *Service) ClearToken(ctx context.Context, id, hash string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(hash) == "" {
		return ErrNotFound
	}
	return s.repo.ClearToken(ctx, id, hash)
}

// CleanupExpired borra los grants vencidos y devuelve cuántos sacó.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func sanitizeSource(src Source) Source {
	switch src {
	case SourceStripe, SourceWooCommerce, SourceManual:
		return src
	default:
		return SourceManual
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
