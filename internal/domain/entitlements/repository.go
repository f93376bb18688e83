package entitlements

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e Entitlement) error
	GetByID(ctx context.Context, id string) (Entitlement, error)

	// ListActiveByUser / ListActiveByGuestEmail devuelven solo grants
	// no vencidos a now. El filtro de expiry vive en la lectura, no solo
	// en el cleanup.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]Entitlement, error)
	ListActiveByGuestEmail(ctx context.Context, email string, now time.Time) ([]Entitlement, error)

	// ListByGuestEmail devuelve todos los grants del invitado (incluso
	// vencidos); lo usa el merge guest→user, que reasigna todo.
	ListByGuestEmail(ctx context.Context, email string) ([]Entitlement, error)

	// GetByTokenHash ignora expiry del entitlement: el TTL del token lo
	// chequea el caller contra GrantedAt.
	GetByTokenHash(ctx context.Context, hash string) (Entitlement, error)

	// ClearToken limpia token_hash solo si todavía coincide (CAS de una
	// fila). Devuelve ErrNotFound si otro request ya lo limpió.
	ClearToken(ctx context.Context, id, hash string) error

	// Reassign fija user_id y limpia guest_email (merge en login).
	// Reasignar una fila ya reasignada es un no-op.
	Reassign(ctx context.Context, id, userID string) error

	Delete(ctx context.Context, id string) error

	// DeleteExpired borra toda fila con expires_at en el pasado y
	// devuelve cuántas sacó.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
