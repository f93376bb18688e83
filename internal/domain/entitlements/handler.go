package entitlements

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"paywall-anywhere/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/entitlements", func(er chi.Router) {
		er.Post("/", grantHandler(svc))
		er.Get("/", listByHolderHandler(svc))
		er.Delete("/{entitlementID}", revokeHandler(svc))
		er.Post("/cleanup", cleanupHandler(svc))
	})

	r.Get("/me/entitlements", listMyEntitlementsHandler(svc))
}

type grantRequest struct {
	UserID     string         `json:"user_id"`
	GuestEmail string         `json:"guest_email"`
	ItemID     string         `json:"item_id"`
	Source     Source         `json:"source" enums:"stripe,woocommerce,manual"`
	Meta       map[string]any `json:"meta"`
}

type entitlementResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	GuestEmail string         `json:"guest_email,omitempty"`
	ItemID     string         `json:"item_id"`
	GrantedAt  time.Time      `json:"granted_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	Source     Source         `json:"source"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// grantHandler godoc
// @Summary Conceder entitlement manual
// @Description Crea un grant de acceso a un item para un usuario o un email invitado (exactamente uno). Solo editores. La expiración sale de la política del item.
// @Tags entitlements
// @Accept json
// @Produce json
// @Param payload body grantRequest true "Holder + item"
// @Success 201 {object} entitlementResponse
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "item not found"
// @Router /entitlements [post]
func grantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		var req grantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		e, err := svc.Grant(r.Context(), GrantInput{
			UserID:     req.UserID,
			GuestEmail: req.GuestEmail,
			ItemID:     req.ItemID,
			Source:     req.Source,
			Meta:       req.Meta,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "item not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toEntitlementResponse(e))
	}
}

// listMyEntitlementsHandler godoc
// @Summary Listar mis entitlements vigentes
// @Description Devuelve los grants no vencidos de la identidad autenticada. Los vencidos no aparecen aunque la fila siga existiendo hasta cleanup.
// @Tags entitlements
// @Produce json
// @Success 200 {array} entitlementResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/entitlements [get]
func listMyEntitlementsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rows, err := svc.ListActiveByUser(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entitlementResponse, 0, len(rows))
		for _, e := range rows {
			out = append(out, toEntitlementResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// listByHolderHandler godoc
// @Summary Listar entitlements vigentes de un holder
// @Description Devuelve los grants no vencidos de un usuario o de un email invitado (exactamente uno de los dos query params). Solo editores.
// @Tags entitlements
// @Produce json
// @Param user_id query string false "ID de usuario"
// @Param guest_email query string false "Email invitado"
// @Success 200 {array} entitlementResponse
// @Failure 400 {string} string "user_id or guest_email required"
// @Failure 403 {string} string "forbidden"
// @Router /entitlements [get]
func listByHolderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		guestEmail := strings.TrimSpace(r.URL.Query().Get("guest_email"))
		if (userID == "") == (guestEmail == "") {
			http.Error(w, "user_id or guest_email required", http.StatusBadRequest)
			return
		}

		var (
			rows []Entitlement
			err  error
		)
		if userID != "" {
			rows, err = svc.ListActiveByUser(r.Context(), userID)
		} else {
			rows, err = svc.ListActiveByGuestEmail(r.Context(), guestEmail)
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entitlementResponse, 0, len(rows))
		for _, e := range rows {
			out = append(out, toEntitlementResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// revokeHandler godoc
// @Summary Revocar entitlement
// @Description Borrado duro del grant. Solo editores.
// @Tags entitlements
// @Param entitlementID path string true "ID del entitlement"
// @Success 204 {string} string "no content"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /entitlements/{entitlementID} [delete]
func revokeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		if err := svc.Revoke(r.Context(), chi.URLParam(r, "entitlementID")); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type cleanupResponse struct {
	Removed int `json:"removed"`
}

// cleanupHandler godoc
// @Summary Limpiar entitlements vencidos
// @Description Borra toda fila con expires_at en el pasado y devuelve cuántas sacó. Solo editores.
// @Tags entitlements
// @Produce json
// @Success 200 {object} cleanupResponse
// @Failure 403 {string} string "forbidden"
// @Router /entitlements/cleanup [post]
func cleanupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		n, err := svc.CleanupExpired(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cleanupResponse{Removed: n})
	}
}

func requireEditor(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if !claims.Editor {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func toEntitlementResponse(e Entitlement) entitlementResponse {
	return entitlementResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		GuestEmail: e.GuestEmail,
		ItemID:     e.ItemID,
		GrantedAt:  e.GrantedAt,
		ExpiresAt:  e.ExpiresAt,
		Source:     e.Source,
		Meta:       e.Meta,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
