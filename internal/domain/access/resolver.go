package access

import (
	"context"
	"errors"
	"strings"

	"paywall-anywhere/internal/domain/entitlements"
	"paywall-anywhere/internal/domain/items"
	"paywall-anywhere/internal/platform/logger"
	"paywall-anywhere/internal/ports/session"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Resolver decide si un requester puede ver un item, aplicando bypass de
// editores y reconciliando identidad invitado→usuario en login.
type Resolver struct {
	items        *items.Service
	entitlements *entitlements.Service
	sessions     session.Store
	log          logger.Logger
}

func NewResolver(
	itemsSvc *items.Service,
	entitlementsSvc *entitlements.Service,
	sessions session.Store,
	log logger.Logger,
) *Resolver {
	return &Resolver{
		items:        itemsSvc,
		entitlements: entitlementsSvc,
		sessions:     sessions,
		log:          log,
	}
}

// HasAccess responde si el requester puede ver el item.
// Orden: bypass de editor, entitlements del usuario, entitlements del
// email invitado, estado efímero de sesión. Cada lookup de entitlements
// ya viene filtrado por expiry en lectura.
func (r *Resolver) HasAccess(ctx context.Context, req Requester, itemID string) (bool, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return false, ErrInvalidInput
	}

	// 1) Preview de editores: incondicional.
	if req.Editor {
		return true, nil
	}

	// 2) Identidad autenticada.
	if req.Authenticated() {
		rows, err := r.entitlements.ListActiveByUser(ctx, req.UserID)
		if err != nil {
			return false, err
		}
		for _, e := range rows {
			if e.ItemID == itemID {
				return true, nil
			}
		}
	}

	// El estado de sesión se lee una sola vez y sirve a los pasos 3 y 4.
	var st session.State
	if req.SessionID != "" {
		var err error
		st, err = r.sessions.Get(ctx, req.SessionID)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return false, err
		}
	}

	// 3) Email invitado: el de la cookie, o el que la sesión trae
	// sembrado (p.ej. por la redención de un magic link). Cubre todos
	// los entitlements de ese email, no solo el item de la redención.
	email := strings.TrimSpace(req.GuestEmail)
	if email == "" {
		email = strings.TrimSpace(st.GuestEmail)
	}
	if email != "" {
		rows, err := r.entitlements.ListActiveByGuestEmail(ctx, email)
		if err != nil {
			return false, err
		}
		for _, e := range rows {
			if e.ItemID == itemID {
				return true, nil
			}
		}
	}

	// 4) Set efímero de esta sesión (sembrado por magic link o checkout
	// de invitado).
	if st.HasItem(itemID) {
		return true, nil
	}

	return false, nil
}

// IsUnlocked responde si (post, scope, selector) es visible para el
// requester. Si no hay item para ese selector el contenido se trata como
// libre (fail open: comportamiento heredado, ver DESIGN.md) y se deja
// rastro en el log para diagnóstico.
func (r *Resolver) IsUnlocked(ctx context.Context, req Requester, postID string, scope items.Scope, selector string) (bool, error) {
	it, err := r.items.FindByCriteria(ctx, postID, scope, selector)
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			r.log.Warn("lock sin item asociado, se trata como libre", map[string]any{
				"post_id":  postID,
				"scope":    string(scope),
				"selector": selector,
			})
			return true, nil
		}
		return false, err
	}
	return r.HasAccess(ctx, req, it.ID)
}

// ShouldBypass responde si la superficie puede saltear el paywall.
// Solo superficies de edición/preview con identidad editora; los feeds y
// embeds jamás (siempre van por el camino de teaser).
func (r *Resolver) ShouldBypass(req Requester, surface Surface) bool {
	if surface.TeaserOnly() {
		return false
	}
	// La superficie llega del request: nunca alcanza por sí sola, el
	// bypass siempre exige identidad de editor.
	return req.Editor
}

// SetGuestAccess siembra el estado de invitado de la sesión: email +
// items concedidos. Lo usan el magic link y el checkout de invitado.
func (r *Resolver) SetGuestAccess(ctx context.Context, sid, email string, itemIDs ...string) error {
	sid = strings.TrimSpace(sid)
	email = strings.ToLower(strings.TrimSpace(email))
	if sid == "" || email == "" {
		return ErrInvalidInput
	}

	if err := r.sessions.SetGuestEmail(ctx, sid, email); err != nil {
		return err
	}
	if len(itemIDs) > 0 {
		return r.sessions.GrantItems(ctx, sid, itemIDs...)
	}
	return nil
}

// ReconcileOnLogin completa el merge invitado→usuario: si el email de la
// sesión coincide con el email verificado del usuario que acaba de
// autenticarse, reatribuye los grants de ese email y descarta el estado
// de invitado. Re-ejecutarlo es inocuo (cada fila se mergea idempotente).
func (r *Resolver) ReconcileOnLogin(ctx context.Context, req Requester) (int, error) {
	if !req.Authenticated() || req.SessionID == "" {
		return 0, ErrInvalidInput
	}

	st, err := r.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	guestEmail := strings.ToLower(strings.TrimSpace(st.GuestEmail))
	if guestEmail == "" {
		guestEmail = strings.ToLower(strings.TrimSpace(req.GuestEmail))
	}
	verified := strings.ToLower(strings.TrimSpace(req.Email))

	if guestEmail == "" || verified == "" || guestEmail != verified {
		return 0, nil
	}

	moved, err := r.entitlements.ReassignGuestToUser(ctx, guestEmail, req.UserID)
	if err != nil {
		return moved, err
	}

	// Descartar estado efímero: el acceso ahora viaja por el usuario.
	if err := r.sessions.Clear(ctx, req.SessionID); err != nil {
		r.log.Warn("no se pudo limpiar la sesión tras el merge", map[string]any{
			"session_id": req.SessionID,
		})
	}

	r.log.Info("entitlements de invitado reasignados", map[string]any{
		"user_id": req.UserID,
		"moved":   moved,
	})
	return moved, nil
}
