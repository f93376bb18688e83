package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"paywall-anywhere/internal/domain/items"
)

type itemsRepo struct {
	mu   sync.RWMutex
	byID map[string]items.Item
}

func NewItemsRepo() items.Repository {
	return &itemsRepo{
		byID: make(map[string]items.Item),
	}
}

func (r *itemsRepo) Create(ctx context.Context, it items.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if it.ID == "" {
		return errors.New("item id required")
	}
	if _, exists := r.byID[it.ID]; exists {
		return errors.New("item already exists")
	}
	r.byID[it.ID] = it
	return nil
}

func (r *itemsRepo) Update(ctx context.Context, it items.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[it.ID]; !exists {
		return items.ErrNotFound
	}
	r.byID[it.ID] = it
	return nil
}

func (r *itemsRepo) GetByID(ctx context.Context, id string) (items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.byID[id]
	if !ok {
		return items.Item{}, items.ErrNotFound
	}
	return it, nil
}

func (r *itemsRepo) ListByPost(ctx context.Context, postID string) ([]items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]items.Item, 0)
	for _, it := range r.byID {
		if it.PostID == postID && it.Status == items.StatusActive {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *itemsRepo) FindByCriteria(ctx context.Context, postID string, scope items.Scope, selector string) (items.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Ante duplicados gana la fila más antigua, igual que el adapter de
	// Postgres.
	var best items.Item
	found := false
	for _, it := range r.byID {
		if it.PostID != postID || it.Scope != scope || it.Selector != selector || it.Status != items.StatusActive {
			continue
		}
		if !found || it.CreatedAt.Before(best.CreatedAt) {
			best = it
			found = true
		}
	}
	if !found {
		return items.Item{}, items.ErrNotFound
	}
	return best, nil
}

func (r *itemsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return items.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
