package woocommerce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paywall-anywhere/internal/platform/httpclient"
	"paywall-anywhere/internal/ports/payments"
)

// Provider implementa payments.Provider contra la REST API de una
// tienda WooCommerce (el pago se completa en el checkout de la tienda).
type Provider struct {
	client *httpclient.Client
	apiKey string
}

type Config struct {
	BaseURL string // URL de la tienda, requerida
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) (*Provider, error) {
	client, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: client,
		apiKey: strings.TrimSpace(cfg.APIKey),
	}, nil
}

func (p *Provider) Name() string { return "woocommerce" }

type orderRequest struct {
	Email string         `json:"billing_email,omitempty"`
	Items []orderLine    `json:"line_items"`
	Meta  map[string]any `json:"meta_data"`
}

type orderLine struct {
	Name     string `json:"name"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type orderResponse struct {
	ID         int64  `json:"id"`
	PaymentURL string `json:"payment_url"`
}

func (p *Provider) CreateCheckout(ctx context.Context, in payments.CheckoutInput) (payments.Checkout, error) {
	if p.apiKey == "" || p.client.BaseURL == "" {
		return payments.Checkout{}, payments.ErrNotConfigured
	}

	req := orderRequest{
		Email: in.Email,
		Items: []orderLine{{
			Name:     in.Title,
			Total:    formatTotal(in.PriceMinor, in.Currency),
			Currency: in.Currency,
			Quantity: 1,
		}},
		Meta: map[string]any{
			"paywall_item_id": in.ItemID,
			"paywall_post_id": in.PostID,
		},
	}

	var resp orderResponse
	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}
	if err := p.client.DoJSON(ctx, "POST", "/wp-json/wc/v3/orders", headers, req, &resp); err != nil {
		return payments.Checkout{}, fmt.Errorf("woocommerce order: %w", err)
	}

	if resp.ID == 0 || resp.PaymentURL == "" {
		return payments.Checkout{}, fmt.Errorf("woocommerce order: malformed response")
	}

	return payments.Checkout{
		SessionID:   fmt.Sprintf("%d", resp.ID),
		RedirectURL: resp.PaymentURL,
	}, nil
}

// formatTotal convierte minor units al decimal que espera Woo
// ("5.00"); JPY y otras monedas sin decimales van enteras.
func formatTotal(minor int64, currency string) string {
	if strings.EqualFold(currency, "JPY") {
		return fmt.Sprintf("%d", minor)
	}
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
