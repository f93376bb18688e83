package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionIDKey  ctxKey = "session_id"
	guestEmailKey ctxKey = "guest_email"

	// SessionCookie identifica la sesión del navegador.
	SessionCookie = "paywall_sid"
	// GuestEmailCookie persiste el email de invitado más allá de la
	// sesión (una semana).
	GuestEmailCookie = "paywall_guest_email"

	guestEmailCookieTTL = 7 * 24 * time.Hour
)

// SessionContext asegura un session id por navegador (cookie) y carga el
// email de invitado de la cookie de larga vida, si existe. No toca el
// store de sesión: eso es de los services.
func SessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			sid = strings.TrimSpace(c.Value)
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sid)

		if c, err := r.Cookie(GuestEmailCookie); err == nil {
			if email := strings.TrimSpace(c.Value); email != "" {
				ctx = context.WithValue(ctx, guestEmailKey, strings.ToLower(email))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func GetGuestEmail(ctx context.Context) string {
	if v, ok := ctx.Value(guestEmailKey).(string); ok {
		return v
	}
	return ""
}

// SetGuestEmailCookie fija la cookie de larga vida del email invitado.
func SetGuestEmailCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestEmailCookie,
		Value:    strings.ToLower(strings.TrimSpace(email)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(guestEmailCookieTTL),
	})
}

// ClearGuestEmailCookie borra la cookie (tras el merge en login).
func ClearGuestEmailCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestEmailCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
