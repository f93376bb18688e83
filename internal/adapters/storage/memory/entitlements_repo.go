package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"paywall-anywhere/internal/domain/entitlements"
)

type entitlementsRepo struct {
	mu   sync.RWMutex
	byID map[string]entitlements.Entitlement
}

func NewEntitlementsRepo() entitlements.Repository {
	return &entitlementsRepo{
		byID: make(map[string]entitlements.Entitlement),
	}
}

func (r *entitlementsRepo) Create(ctx context.Context, e entitlements.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("entitlement id required")
	}
	if _, exists := r.byID[e.ID]; exists {
		return errors.New("entitlement already exists")
	}
	r.byID[e.ID] = e
	return nil
}

func (r *entitlementsRepo) GetByID(ctx context.Context, id string) (entitlements.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return entitlements.Entitlement{}, entitlements.ErrNotFound
	}
	return e, nil
}

func (r *entitlementsRepo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]entitlements.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entitlements.Entitlement, 0)
	for _, e := range r.byID {
		if e.UserID == userID && userID != "" && !e.Expired(now) {
			out = append(out, e)
		}
	}
	sortByGrantedAt(out)
	return out, nil
}

func (r *entitlementsRepo) ListActiveByGuestEmail(ctx context.Context, email string, now time.Time) ([]entitlements.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entitlements.Entitlement, 0)
	for _, e := range r.byID {
		if e.GuestEmail == email && email != "" && !e.Expired(now) {
			out = append(out, e)
		}
	}
	sortByGrantedAt(out)
	return out, nil
}

func (r *entitlementsRepo) ListByGuestEmail(ctx context.Context, email string) ([]entitlements.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entitlements.Entitlement, 0)
	for _, e := range r.byID {
		if e.GuestEmail == email && email != "" {
			out = append(out, e)
		}
	}
	sortByGrantedAt(out)
	return out, nil
}

func (r *entitlementsRepo) GetByTokenHash(ctx context.Context, hash string) (entitlements.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if hash == "" {
		return entitlements.Entitlement{}, entitlements.ErrNotFound
	}
	for _, e := range r.byID {
		if e.TokenHash == hash {
			return e, nil
		}
	}
	return entitlements.Entitlement{}, entitlements.ErrNotFound
}

func (r *entitlementsRepo) ClearToken(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.TokenHash != hash || hash == "" {
		return entitlements.ErrNotFound
	}
	e.TokenHash = ""
	r.byID[id] = e
	return nil
}

func (r *entitlementsRepo) Reassign(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return entitlements.ErrNotFound
	}
	e.UserID = userID
	e.GuestEmail = ""
	r.byID[id] = e
	return nil
}

func (r *entitlementsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return entitlements.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *entitlementsRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.byID {
		if e.Expired(now) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func sortByGrantedAt(out []entitlements.Entitlement) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].GrantedAt.Before(out[j].GrantedAt)
	})
}
