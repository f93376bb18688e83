package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// State es el estado efímero de acceso de un navegador:
// email de invitado (declarado o sembrado por magic link) y el set de
// items concedidos para esta sesión. Vive en el store del colaborador
// de sesión (redis o memoria), no en la base relacional.
type State struct {
	GuestEmail string
	ItemIDs    []string
}

// HasItem responde si el estado ya incluye el item.
func (s State) HasItem(itemID string) bool {
	for _, id := range s.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Store es el contrato con el colaborador de sesión.
// Todas las operaciones son por session id (cookie del navegador).
type Store interface {
	Get(ctx context.Context, sid string) (State, error)
	SetGuestEmail(ctx context.Context, sid, email string) error
	GrantItems(ctx context.Context, sid string, itemIDs ...string) error
	Clear(ctx context.Context, sid string) error
}
