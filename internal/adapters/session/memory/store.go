package memory

import (
	"context"
	"sync"
	"time"

	"paywall-anywhere/internal/ports/session"
)

type entry struct {
	state     session.State
	expiresAt time.Time
}

// Store es la variante en memoria para desarrollo y tests.
// El TTL se chequea perezosamente en lectura.
type Store struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	bySID map[string]entry
}

func New(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		now:   time.Now,
		bySID: make(map[string]entry),
	}
}

func (s *Store) Get(ctx context.Context, sid string) (session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.bySID[sid]
	if !ok || s.now().After(e.expiresAt) {
		return session.State{}, session.ErrNotFound
	}
	return e.state, nil
}

func (s *Store) SetGuestEmail(ctx context.Context, sid, email string) error {
	return s.update(sid, func(st *session.State) {
		st.GuestEmail = email
	})
}

func (s *Store) GrantItems(ctx context.Context, sid string, itemIDs ...string) error {
	return s.update(sid, func(st *session.State) {
		for _, id := range itemIDs {
			if id == "" || st.HasItem(id) {
				continue
			}
			st.ItemIDs = append(st.ItemIDs, id)
		}
	})
}

func (s *Store) Clear(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bySID, sid)
	return nil
}

func (s *Store) update(sid string, fn func(*session.State)) error {
	if sid == "" {
		return session.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.bySID[sid]
	if !ok || s.now().After(e.expiresAt) {
		e = entry{}
	}

	fn(&e.state)
	e.expiresAt = s.now().Add(s.ttl)
	s.bySID[sid] = e
	return nil
}
