package access

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"paywall-anywhere/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, resolver *Resolver) {
	r.Get("/access/check", checkAccessHandler(resolver))
	r.Post("/session/guest", guestCheckoutHandler(resolver))
	r.Post("/session/reconcile", reconcileHandler(resolver))
}

type accessCheckResponse struct {
	ItemID    string `json:"item_id"`
	HasAccess bool   `json:"has_access"`
}

// checkAccessHandler godoc
// @Summary Chequear acceso a un item
// @Description Responde si el requester actual (usuario, invitado o sesión) puede ver el item. Acceso denegado no es un error: es la rama esperada que dispara placeholder.
// @Tags access
// @Produce json
// @Param item_id query string true "ID del item"
// @Success 200 {object} accessCheckResponse
// @Failure 400 {string} string "item_id required"
// @Router /access/check [get]
func checkAccessHandler(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := strings.TrimSpace(r.URL.Query().Get("item_id"))
		if itemID == "" {
			http.Error(w, "item_id required", http.StatusBadRequest)
			return
		}

		ok, err := resolver.HasAccess(r.Context(), RequesterFrom(r), itemID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, accessCheckResponse{ItemID: itemID, HasAccess: ok})
	}
}

type guestCheckoutRequest struct {
	Email   string   `json:"email"`
	ItemIDs []string `json:"item_ids"`
}

// guestCheckoutHandler godoc
// @Summary Declarar acceso de invitado en la sesión
// @Description Registra el email de invitado en la sesión actual y, opcionalmente, items concedidos para esta sesión (checkout explícito de invitado).
// @Tags access
// @Accept json
// @Param payload body guestCheckoutRequest true "Email + items"
// @Success 204 {string} string "no content"
// @Failure 400 {string} string "email required"
// @Router /session/guest [post]
func guestCheckoutHandler(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guestCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sid := middleware.GetSessionID(r.Context())
		if err := resolver.SetGuestAccess(r.Context(), sid, req.Email, req.ItemIDs...); err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "email required", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// Cookie de más vida para que el email sobreviva a la sesión.
		middleware.SetGuestEmailCookie(w, req.Email)
		w.WriteHeader(http.StatusNoContent)
	}
}

type reconcileResponse struct {
	Reassigned int `json:"reassigned"`
}

// reconcileHandler godoc
// @Summary Reconciliar invitado → usuario tras login
// @Description El host lo llama cuando un usuario se autentica. Si el email verificado coincide con el email de invitado de la sesión, reasigna los grants de ese email al usuario y descarta el estado de invitado. Re-ejecutarlo es inocuo.
// @Tags access
// @Produce json
// @Success 200 {object} reconcileResponse
// @Failure 401 {string} string "unauthorized"
// @Router /session/reconcile [post]
func reconcileHandler(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := RequesterFrom(r)
		if !req.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		moved, err := resolver.ReconcileOnLogin(r.Context(), req)
		if err != nil && !errors.Is(err, ErrInvalidInput) {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// El estado de invitado ya no aplica para este navegador.
		middleware.ClearGuestEmailCookie(w)
		writeJSON(w, http.StatusOK, reconcileResponse{Reassigned: moved})
	}
}

// RequesterFrom arma el Requester del request actual a partir de lo que
// dejaron los middlewares (claims, session id, cookie de invitado).
func RequesterFrom(r *http.Request) Requester {
	ctx := r.Context()

	req := Requester{
		SessionID:  middleware.GetSessionID(ctx),
		GuestEmail: middleware.GetGuestEmail(ctx),
	}
	if claims, ok := middleware.GetClaims(ctx); ok {
		req.UserID = claims.UserID
		req.Email = claims.Email
		req.Editor = claims.Editor
	}
	return req
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
