package redis

import (
	"context"
	"encoding/json"
	"time"

	"paywall-anywhere/internal/ports/session"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "paywall:session:"

// Store guarda el estado de sesión en Redis como JSON con TTL.
// Cada escritura renueva el TTL: la sesión vive mientras el navegador
// siga activo.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, ttl time.Duration) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// NewWithClient permite inyectar el cliente (tests con miniredis).
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, sid string) (session.State, error) {
	if sid == "" {
		return session.State{}, session.ErrNotFound
	}

	raw, err := s.client.Get(ctx, keyPrefix+sid).Result()
	if err == redis.Nil {
		return session.State{}, session.ErrNotFound
	}
	if err != nil {
		return session.State{}, err
	}

	var st session.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return session.State{}, err
	}
	return st, nil
}

func (s *Store) SetGuestEmail(ctx context.Context, sid, email string) error {
	return s.update(ctx, sid, func(st *session.State) {
		st.GuestEmail = email
	})
}

func (s *Store) GrantItems(ctx context.Context, sid string, itemIDs ...string) error {
	return s.update(ctx, sid, func(st *session.State) {
		for _, id := range itemIDs {
			if id == "" || st.HasItem(id) {
				continue
			}
			st.ItemIDs = append(st.ItemIDs, id)
		}
	})
}

func (s *Store) Clear(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+sid).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// update lee-modifica-escribe el estado. Sin WATCH: las escrituras de
// una misma sesión vienen del mismo navegador, la contención real es
// nula.
func (s *Store) update(ctx context.Context, sid string, fn func(*session.State)) error {
	if sid == "" {
		return session.ErrNotFound
	}

	st, err := s.Get(ctx, sid)
	if err != nil && err != session.ErrNotFound {
		return err
	}

	fn(&st)

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+sid, raw, s.ttl).Err()
}
