package content

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"paywall-anywhere/internal/domain/access"
	"paywall-anywhere/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/posts/{postID}", func(pr chi.Router) {
		pr.Post("/render", renderHandler(svc))
		pr.Put("/locked-map", rebuildLockedMapHandler(svc))
		pr.Get("/locked-map", getLockedMapHandler(svc))
	})
}

type renderRequest struct {
	Nodes []Node `json:"nodes"`
}

type renderResponse struct {
	Nodes      []Node `json:"nodes,omitempty"`
	Teaser     string `json:"teaser,omitempty"`
	TeaserOnly bool   `json:"teaser_only"`
}

// renderHandler godoc
// @Summary Renderizar contenido con paywall aplicado
// @Description Recibe el árbol de nodos del post y devuelve el árbol reescrito según los permisos del requester. Superficies feed/embed/meta reciben solo teaser. El contenido bloqueado no viaja en la respuesta bajo ninguna forma.
// @Tags content
// @Accept json
// @Produce json
// @Param postID path string true "ID del post"
// @Param surface query string false "Superficie de render" Enums(page, rest, feed, embed, meta, admin)
// @Param payload body renderRequest true "Árbol de contenido"
// @Success 200 {object} renderResponse
// @Failure 400 {string} string "invalid json"
// @Router /posts/{postID}/render [post]
func renderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		surface := access.ParseSurface(r.URL.Query().Get("surface"))
		requester := access.RequesterFrom(r)

		res, err := svc.Render(r.Context(), requester, chi.URLParam(r, "postID"), req.Nodes, surface)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, renderResponse{
			Nodes:      res.Nodes,
			Teaser:     res.Teaser,
			TeaserOnly: res.TeaserOnly,
		})
	}
}

type lockedMapResponse struct {
	PostID    string    `json:"post_id"`
	Entries   []Lock    `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// rebuildLockedMapHandler godoc
// @Summary Reconstruir locked map de un post
// @Description Escanea el árbol entregado, hace find-or-create de los items referenciados y persiste el snapshot. Se invoca al guardar el post desde el editor.
// @Tags content
// @Accept json
// @Produce json
// @Param postID path string true "ID del post"
// @Param payload body renderRequest true "Árbol de contenido"
// @Success 200 {object} lockedMapResponse
// @Failure 400 {string} string "invalid json"
// @Failure 403 {string} string "forbidden"
// @Router /posts/{postID}/locked-map [put]
func rebuildLockedMapHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.RebuildLockedMap(r.Context(), chi.URLParam(r, "postID"), req.Nodes)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toLockedMapResponse(m))
	}
}

// getLockedMapHandler godoc
// @Summary Consultar locked map de un post
// @Description Devuelve el snapshot persistido; un post sin locks devuelve el mapa vacío.
// @Tags content
// @Produce json
// @Param postID path string true "ID del post"
// @Success 200 {object} lockedMapResponse
// @Failure 403 {string} string "forbidden"
// @Router /posts/{postID}/locked-map [get]
func getLockedMapHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireEditor(w, r) {
			return
		}

		m, err := svc.LockedMapFor(r.Context(), chi.URLParam(r, "postID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toLockedMapResponse(m))
	}
}

func toLockedMapResponse(m LockedMap) lockedMapResponse {
	entries := m.Entries
	if entries == nil {
		entries = []Lock{}
	}
	return lockedMapResponse{
		PostID:    m.PostID,
		Entries:   entries,
		UpdatedAt: m.UpdatedAt,
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

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
