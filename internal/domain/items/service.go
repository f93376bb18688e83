package items

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Defaults configura los valores por defecto que usa la coerción.
type Defaults struct {
	PriceMinor  int64
	Currency    string
	ExpiresDays int // 0 = nunca expira
}

type Service struct {
	repo     Repository
	defaults Defaults
	now      func() time.Time
}

func NewService(repo Repository, defaults Defaults) *Service {
	if strings.TrimSpace(defaults.Currency) == "" {
		defaults.Currency = "USD"
	}
	return &Service{
		repo:     repo,
		defaults: defaults,
		now:      time.Now,
	}
}

type CreateInput struct {
	PostID     string
	Scope      Scope
	Selector   string
	PriceMinor int64
	Currency   string
	// ExpiresDays: nil => usa el default de config; 0 => nunca expira.
	ExpiresDays *int
}

// Create valida y coerciona los campos al dominio permitido y persiste.
// Nunca persiste valores fuera de dominio: scope inválido cae a "post",
// currency inválida cae al default, precio negativo cae a 0.
func (s *Service) Create(ctx context.Context, in CreateInput) (Item, error) {
	postID := strings.TrimSpace(in.PostID)
	if postID == "" {
		return Item{}, ErrInvalidInput
	}

	now := s.now()
	it := Item{
		ID:         uuid.NewString(),
		PostID:     postID,
		Scope:      SanitizeScope(in.Scope),
		Selector:   strings.TrimSpace(in.Selector),
		PriceMinor: s.sanitizePrice(in.PriceMinor),
		Currency:   s.SanitizeCurrency(in.Currency),
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	it.ExpiresDays = s.sanitizeExpiry(in.ExpiresDays)

	if err := s.repo.Create(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// FindOrCreate busca el item activo para (post, scope, selector) y si no
// existe lo crea. Dos requests concurrentes pueden crear duplicados (la
// unicidad no se fuerza en storage); la lectura posterior siempre prefiere
// la fila activa más antigua, así que un duplicado queda inerte.
func (s *Service) FindOrCreate(ctx context.Context, in CreateInput) (Item, error) {
	postID := strings.TrimSpace(in.PostID)
	if postID == "" {
		return Item{}, ErrInvalidInput
	}

	scope := SanitizeScope(in.Scope)
	selector := strings.TrimSpace(in.Selector)

	existing, err := s.repo.FindByCriteria(ctx, postID, scope, selector)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Item{}, err
	}

	return s.Create(ctx, in)
}

func (s *Service) GetByID(ctx context.Context, id string) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPost(ctx context.Context, postID string) ([]Item, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPost(ctx, postID)
}

func (s *Service) FindByCriteria(ctx context.Context, postID string, scope Scope, selector string) (Item, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return Item{}, ErrNotFound
	}
	return s.repo.FindByCriteria(ctx, postID, SanitizeScope(scope), strings.TrimSpace(selector))
}

// UpdateInput son campos parciales: nil = no tocar.
type UpdateInput struct {
	PriceMinor  *int64
	Currency    *string
	ExpiresDays *int // -1 = limpiar (nunca expira)
	Status      *Status
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Item, error) {
	it, err := s.GetByID(ctx, id)
	if err != nil {
		return Item{}, err
	}

	if in.PriceMinor != nil {
		it.PriceMinor = s.sanitizePrice(*in.PriceMinor)
	}
	if in.Currency != nil {
		it.Currency = s.SanitizeCurrency(*in.Currency)
	}
	if in.ExpiresDays != nil {
		if *in.ExpiresDays <= 0 {
			it.ExpiresDays = nil
		} else {
			d := *in.ExpiresDays
			it.ExpiresDays = &d
		}
	}
	if in.Status != nil {
		if *in.Status != StatusActive && *in.Status != StatusArchived {
			return Item{}, ErrInvalidInput
		}
		it.Status = *in.Status
	}
	it.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// SanitizeScope coerciona al set permitido; fuera de dominio cae a post.
func SanitizeScope(scope Scope) Scope {
	switch scope {
	case ScopePost, ScopeBlock, ScopeParagraph, ScopeMedia, ScopeRoutePrint:
		return scope
	default:
		return ScopePost
	}
}

// SanitizeCurrency coerciona al set permitido; fuera de dominio cae al
// default (nunca se persiste ni se devuelve un código desconocido).
func (s *Service) SanitizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := currencySymbols[currency]; ok {
		return currency
	}
	return s.defaults.Currency
}

func (s *Service) sanitizePrice(minor int64) int64 {
	if minor < 0 {
		return 0
	}
	return minor
}

func (s *Service) sanitizeExpiry(days *int) *int {
	if days == nil {
		if s.defaults.ExpiresDays > 0 {
			d := s.defaults.ExpiresDays
			return &d
		}
		return nil
	}
	if *days <= 0 {
		return nil
	}
	d := *days
	return &d
}
