package memory

import (
	"context"
	"errors"
	"sync"

	"paywall-anywhere/internal/domain/content"
)

type lockedMapRepo struct {
	mu     sync.RWMutex
	byPost map[string]content.LockedMap
}

func NewLockedMapRepo() content.LockedMapRepository {
	return &lockedMapRepo{
		byPost: make(map[string]content.LockedMap),
	}
}

func (r *lockedMapRepo) Save(ctx context.Context, m content.LockedMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.PostID == "" {
		return errors.New("post id required")
	}
	r.byPost[m.PostID] = m
	return nil
}

func (r *lockedMapRepo) Get(ctx context.Context, postID string) (content.LockedMap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byPost[postID]
	if !ok {
		return content.LockedMap{}, content.ErrNotFound
	}
	return m, nil
}

func (r *lockedMapRepo) Delete(ctx context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPost[postID]; !ok {
		return content.ErrNotFound
	}
	delete(r.byPost, postID)
	return nil
}
