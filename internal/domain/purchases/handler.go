package purchases

import (
	"encoding/json"
	"errors"
	"net/http"

	"paywall-anywhere/internal/ports/payments"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/purchases", initiatePurchaseHandler(svc))
	r.Post("/webhooks/{provider}", webhookHandler(svc))
}

type purchaseRequest struct {
	Provider   string `json:"provider" enums:"stripe,woocommerce"`
	ItemID     string `json:"item_id"`
	Email      string `json:"email"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type purchaseResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type purchaseErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// initiatePurchaseHandler godoc
// @Summary Iniciar compra de un item
// @Description Crea la sesión de checkout con el proveedor y devuelve la URL de redirección. Un fallo del proveedor responde 502 con retryable=true: el comprador puede reintentar, acá no se reintenta.
// @Tags purchases
// @Accept json
// @Produce json
// @Param payload body purchaseRequest true "Datos de la compra"
// @Success 200 {object} purchaseResponse
// @Failure 400 {object} purchaseErrorResponse
// @Failure 404 {object} purchaseErrorResponse
// @Failure 502 {object} purchaseErrorResponse
// @Router /purchases [post]
func initiatePurchaseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req purchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, purchaseErrorResponse{Error: "invalid json"})
			return
		}

		co, err := svc.InitiatePurchase(r.Context(), PurchaseInput{
			Provider:   req.Provider,
			ItemID:     req.ItemID,
			Email:      req.Email,
			SuccessURL: req.SuccessURL,
			CancelURL:  req.CancelURL,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrInvalidInput):
				writeJSON(w, http.StatusBadRequest, purchaseErrorResponse{Error: err.Error()})
			case errors.Is(err, ErrNotFound):
				writeJSON(w, http.StatusNotFound, purchaseErrorResponse{Error: "item not found"})
			case errors.Is(err, payments.ErrNotConfigured):
				writeJSON(w, http.StatusServiceUnavailable, purchaseErrorResponse{Error: err.Error()})
			case errors.Is(err, payments.ErrUpstream):
				writeJSON(w, http.StatusBadGateway, purchaseErrorResponse{
					Error:     err.Error(),
					Retryable: true,
				})
			default:
				writeJSON(w, http.StatusInternalServerError, purchaseErrorResponse{Error: "internal error"})
			}
			return
		}

		writeJSON(w, http.StatusOK, purchaseResponse{
			SessionID:   co.SessionID,
			RedirectURL: co.RedirectURL,
		})
	}
}

type webhookResponse struct {
	Processed     bool   `json:"processed"`
	EntitlementID string `json:"entitlement_id,omitempty"`
}

// webhookHandler godoc
// @Summary Webhook de confirmación de pago
// @Description Recibe el evento del proveedor. Pago completado => grant de entitlement (y magic link por mail si el comprador es invitado). Otros eventos se acusan con processed=false.
// @Tags purchases
// @Accept json
// @Produce json
// @Param provider path string true "Proveedor" Enums(stripe, woocommerce)
// @Param payload body WebhookEvent true "Evento normalizado"
// @Success 200 {object} webhookResponse
// @Failure 400 {string} string "invalid json / unknown provider"
// @Router /webhooks/{provider} [post]
func webhookHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev WebhookEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.HandleWebhook(r.Context(), chi.URLParam(r, "provider"), ev)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "item not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, webhookResponse{
			Processed:     res.Processed,
			EntitlementID: res.EntitlementID,
		})
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
