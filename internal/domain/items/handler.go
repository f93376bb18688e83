package items

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
	r.Route("/items", func(ir chi.Router) {
		ir.Post("/", createItemHandler(svc))
		ir.Post("/find-or-create", findOrCreateItemHandler(svc))
		ir.Get("/{itemID}", getItemHandler(svc))
		ir.Patch("/{itemID}", updateItemHandler(svc))
		ir.Delete("/{itemID}", deleteItemHandler(svc))
	})

	r.Get("/posts/{postID}/items", listItemsByPostHandler(svc))
}

type createItemRequest struct {
	PostID      string `json:"post_id"`
	Scope       Scope  `json:"scope" enums:"post,block,paragraph,media,route_print"`
	Selector    string `json:"selector"`
	PriceMinor  int64  `json:"price_minor"`
	Currency    string `json:"currency" enums:"USD,EUR,GBP,JPY"`
	ExpiresDays *int   `json:"expires_days"`
}

type itemResponse struct {
	ID          string    `json:"id"`
	PostID      string    `json:"post_id"`
	Scope       Scope     `json:"scope"`
	Selector    string    `json:"selector"`
	PriceMinor  int64     `json:"price_minor"`
	Currency    string    `json:"currency"`
	Price       string    `json:"price"` // formateado para mostrar
	ExpiresDays *int      `json:"expires_days,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// createItemHandler godoc
// @Summary Crear item premium
// @Description Crea una unidad bloqueable (post, block, paragraph, media o route_print). Solo identidades con privilegio de edición. Los campos fuera de dominio se coercionan: scope inválido cae a `post`, currency inválida al default.
// @Tags items
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param payload body createItemRequest true "Datos del item"
// @Success 201 {object} itemResponse
// @Failure 400 {string} string "invalid json / post_id required"
// @Failure 403 {string} string "forbidden"
// @Router /items [post]
func createItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		var req createItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		it, err := svc.Create(r.Context(), CreateInput{
			PostID:      req.PostID,
			Scope:       req.Scope,
			Selector:    req.Selector,
			PriceMinor:  req.PriceMinor,
			Currency:    req.Currency,
			ExpiresDays: req.ExpiresDays,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toItemResponse(it))
	}
}

// findOrCreateItemHandler godoc
// @Summary Buscar o crear item premium
// @Description Devuelve el item activo para (post_id, scope, selector) o lo crea si no existe. Ante duplicados por creación concurrente, la lectura posterior siempre devuelve la fila activa más antigua.
// @Tags items
// @Accept json
// @Produce json
// @Param payload body createItemRequest true "Criterio + datos para crear si falta"
// @Success 200 {object} itemResponse
// @Failure 400 {string} string "invalid json / post_id required"
// @Failure 403 {string} string "forbidden"
// @Router /items/find-or-create [post]
func findOrCreateItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		var req createItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		it, err := svc.FindOrCreate(r.Context(), CreateInput{
			PostID:      req.PostID,
			Scope:       req.Scope,
			Selector:    req.Selector,
			PriceMinor:  req.PriceMinor,
			Currency:    req.Currency,
			ExpiresDays: req.ExpiresDays,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toItemResponse(it))
	}
}

// getItemHandler godoc
// @Summary Obtener item por id
// @Tags items
// @Produce json
// @Param itemID path string true "ID del item"
// @Success 200 {object} itemResponse
// @Failure 404 {string} string "not found"
// @Router /items/{itemID} [get]
func getItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := svc.GetByID(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toItemResponse(it))
	}
}

// listItemsByPostHandler godoc
// @Summary Listar items activos de un post
// @Tags items
// @Produce json
// @Param postID path string true "ID del post"
// @Success 200 {array} itemResponse
// @Router /posts/{postID}/items [get]
func listItemsByPostHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		its, err := svc.ListByPost(r.Context(), chi.URLParam(r, "postID"))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]itemResponse, 0, len(its))
		for _, it := range its {
			out = append(out, toItemResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type updateItemRequest struct {
	PriceMinor  *int64  `json:"price_minor"`
	Currency    *string `json:"currency"`
	ExpiresDays *int    `json:"expires_days"`
	Status      *Status `json:"status" enums:"active,archived"`
}

// updateItemHandler godoc
// @Summary Actualizar item (parcial)
// @Tags items
// @Accept json
// @Produce json
// @Param itemID path string true "ID del item"
// @Param payload body updateItemRequest true "Campos a actualizar (los ausentes no se tocan)"
// @Success 200 {object} itemResponse
// @Failure 400 {string} string "invalid json / invalid status"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /items/{itemID} [patch]
func updateItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		var req updateItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		it, err := svc.Update(r.Context(), chi.URLParam(r, "itemID"), UpdateInput{
			PriceMinor:  req.PriceMinor,
			Currency:    req.Currency,
			ExpiresDays: req.ExpiresDays,
			Status:      req.Status,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toItemResponse(it))
	}
}

// deleteItemHandler godoc
// @Summary Borrar item
// @Description Borra el item; los entitlements asociados caen en cascada en storage.
// @Tags items
// @Param itemID path string true "ID del item"
// @Success 204 {string} string "no content"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /items/{itemID} [delete]
func deleteItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "itemID")); err != nil {
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

func toItemResponse(it Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		PostID:      it.PostID,
		Scope:       it.Scope,
		Selector:    it.Selector,
		PriceMinor:  it.PriceMinor,
		Currency:    it.Currency,
		Price:       it.FormattedPrice(),
		ExpiresDays: it.ExpiresDays,
		Status:      it.Status,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
