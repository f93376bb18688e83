package middleware

import (
	"context"
	"net/http"
	"strings"

	"paywall-anywhere/internal/platform/logger"
)

// TokenParam dispara la redención de magic link en cualquier ruta.
const TokenParam = "paywall_token"

// tokenErrorMessage es lo único que ve el usuario ante cualquier fallo de
// token: inválido, ya usado o vencido son indistinguibles a propósito
// (evita oráculos de adivinación de tokens).
const tokenErrorMessage = "invalid or expired access link"

// TokenRedeemer evita importar el paquete access (rompe ciclos).
type TokenRedeemer interface {
	RedeemToken(ctx context.Context, rawToken, sessionID string) (redirectPostID string, err error)
}

// MagicToken intercepta ?paywall_token=... en cualquier request y lo
// redime como efecto del init del request, independiente de la ruta.
// Éxito con destino => redirect al contenido canónico; éxito sin destino
// (post borrado) => sigue el request normal, sin redirigir; fallo =>
// página terminal genérica.
func MagicToken(redeemer TokenRedeemer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.URL.Query().Get(TokenParam))
			if raw == "" || redeemer == nil {
				next.ServeHTTP(w, r)
				return
			}

			postID, err := redeemer.RedeemToken(r.Context(), raw, GetSessionID(r.Context()))
			if err != nil {
				// Internamente se distingue inválido/vencido (queda en
				// logs); hacia afuera no.
				log.Warn("redención de magic link fallida", map[string]any{
					"path": r.URL.Path,
					"err":  err.Error(),
				})
				http.Error(w, tokenErrorMessage, http.StatusGone)
				return
			}

			if postID != "" {
				q := r.URL.Query()
				q.Del(TokenParam)
				target := "/posts/" + postID
				if enc := q.Encode(); enc != "" {
					target += "?" + enc
				}
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
