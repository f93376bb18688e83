package stripe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paywall-anywhere/internal/platform/httpclient"
	"paywall-anywhere/internal/ports/payments"
)

const defaultBaseURL = "https://api.stripe.com"

// Provider implementa payments.Provider contra la API de Stripe
// Checkout. Una sola llamada por compra; el resultado final llega por
// webhook.
type Provider struct {
	client *httpclient.Client
	apiKey string
}

type Config struct {
	BaseURL string // opcional, para tests apuntamos a un server local
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) (*Provider, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	client, err := httpclient.NewWithBaseURL(base, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: client,
		apiKey: strings.TrimSpace(cfg.APIKey),
	}, nil
}

func (p *Provider) Name() string { return "stripe" }

type checkoutSessionRequest struct {
	Mode       string         `json:"mode"`
	SuccessURL string         `json:"success_url"`
	CancelURL  string         `json:"cancel_url"`
	Email      string         `json:"customer_email,omitempty"`
	LineItems  []lineItem     `json:"line_items"`
	Metadata   map[string]any `json:"metadata"`
}

type lineItem struct {
	Quantity  int       `json:"quantity"`
	PriceData priceData `json:"price_data"`
}

type priceData struct {
	Currency    string      `json:"currency"`
	UnitAmount  int64       `json:"unit_amount"`
	ProductData productData `json:"product_data"`
}

type productData struct {
	Name string `json:"name"`
}

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (p *Provider) CreateCheckout(ctx context.Context, in payments.CheckoutInput) (payments.Checkout, error) {
	if p.apiKey == "" {
		return payments.Checkout{}, payments.ErrNotConfigured
	}

	req := checkoutSessionRequest{
		Mode:       "payment",
		SuccessURL: in.SuccessURL,
		CancelURL:  in.CancelURL,
		Email:      in.Email,
		LineItems: []lineItem{{
			Quantity: 1,
			PriceData: priceData{
				Currency:   strings.ToLower(in.Currency),
				UnitAmount: in.PriceMinor,
				ProductData: productData{
					Name: in.Title,
				},
			},
		}},
		Metadata: map[string]any{
			"item_id": in.ItemID,
			"post_id": in.PostID,
		},
	}

	var resp checkoutSessionResponse
	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}
	if err := p.client.DoJSON(ctx, "POST", "/v1/checkout/sessions", headers, req, &resp); err != nil {
		return payments.Checkout{}, fmt.Errorf("stripe checkout: %w", err)
	}

	if resp.ID == "" || resp.URL == "" {
		return payments.Checkout{}, fmt.Errorf("stripe checkout: malformed response")
	}

	return payments.Checkout{
		SessionID:   resp.ID,
		RedirectURL: resp.URL,
	}, nil
}
