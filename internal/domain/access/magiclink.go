package access

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"paywall-anywhere/internal/domain/entitlements"
	"paywall-anywhere/internal/domain/items"
	"paywall-anywhere/internal/middleware"
	"paywall-anywhere/internal/platform/logger"
)

// Errores internos del flujo de magic link. Para el usuario final los
// tres son indistinguibles (anti-enumeración); la distinción queda para
// logs de operación.
var (
	ErrTokenInvalid = errors.New("magic link token invalid")
	ErrTokenExpired = errors.New("magic link token expired")
)

// MagicLink maneja el ciclo emitido→redimible→redimido→vencido de los
// tokens de un solo uso.
type MagicLink struct {
	items        *items.Service
	entitlements *entitlements.Service
	resolver     *Resolver
	ttl          time.Duration
	baseURL      string
	log          logger.Logger
	now          func() time.Time
}

func NewMagicLink(
	itemsSvc *items.Service,
	entitlementsSvc *entitlements.Service,
	resolver *Resolver,
	ttl time.Duration,
	baseURL string,
	log logger.Logger,
) *MagicLink {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MagicLink{
		items:        itemsSvc,
		entitlements: entitlementsSvc,
		resolver:     resolver,
		ttl:          ttl,
		baseURL:      strings.TrimRight(baseURL, "/"),
		log:          log,
		now:          time.Now,
	}
}

// GenerateToken devuelve el valor crudo (va en la URL, nunca se guarda)
// de 32 bytes de entropía.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken es el hash one-way que sí se persiste.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// URL arma el magic link completo para mandar por mail.
func (m *MagicLink) URL(rawToken, postID string) string {
	return fmt.Sprintf("%s/posts/%s?%s=%s", m.baseURL, postID, middleware.TokenParam, rawToken)
}

// Redemption es el resultado de una redención exitosa.
type Redemption struct {
	GuestEmail string
	ItemID     string
	// RedirectPostID apunta al contenido canónico; vacío si el post del
	// item ya no existe (se falla con gracia, sin redirigir).
	RedirectPostID string
}

// Redeem valida y consume un token crudo. El clear del hash es atómico
// (CAS contra el valor actual), así que el mismo token nunca se redime
// dos veces por rápido que llegue el segundo intento.
func (m *MagicLink) Redeem(ctx context.Context, rawToken, sessionID string) (Redemption, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Redemption{}, ErrTokenInvalid
	}

	hash := HashToken(rawToken)

	e, err := m.entitlements.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, entitlements.ErrNotFound) {
			// Token desconocido o ya redimido: mismo resultado.
			return Redemption{}, ErrTokenInvalid
		}
		return Redemption{}, err
	}

	// TTL del token contra granted_at (independiente del expiry del
	// entitlement, que se chequea recién al resolver acceso).
	if m.now().Sub(e.GrantedAt) > m.ttl {
		return Redemption{}, ErrTokenExpired
	}

	// Uso único: si otro request gana el clear, este pierde.
	if err := m.entitlements.ClearToken(ctx, e.ID, hash); err != nil {
		if errors.Is(err, entitlements.ErrNotFound) {
			return Redemption{}, ErrTokenInvalid
		}
		return Redemption{}, err
	}

	red := Redemption{
		GuestEmail: e.GuestEmail,
		ItemID:     e.ItemID,
	}

	// Sembrar el estado de sesión: acceso inmediato sin repetir email.
	if e.GuestEmail != "" && sessionID != "" {
		if err := m.resolver.SetGuestAccess(ctx, sessionID, e.GuestEmail, e.ItemID); err != nil {
			m.log.Warn("no se pudo sembrar la sesión tras redimir", map[string]any{
				"entitlement_id": e.ID,
			})
		}
	}

	// Destino canónico: si el post ya no existe, sin redirect.
	if it, err := m.items.GetByID(ctx, e.ItemID); err == nil && it.PostID != "" {
		red.RedirectPostID = it.PostID
	}

	m.log.Info("magic link redimido", map[string]any{
		"entitlement_id": e.ID,
		"item_id":        e.ItemID,
	})
	return red, nil
}

// RedeemToken implementa middleware.TokenRedeemer: devuelve el post de
// destino (vacío si el post ya no existe) o el error del flujo.
func (m *MagicLink) RedeemToken(ctx context.Context, rawToken, sessionID string) (string, error) {
	red, err := m.Redeem(ctx, rawToken, sessionID)
	if err != nil {
		return "", err
	}
	return red.RedirectPostID, nil
}

func (m *MagicLink) TTL() time.Duration { return m.ttl }
