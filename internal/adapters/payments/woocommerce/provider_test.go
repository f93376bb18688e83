package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paywall-anywhere/internal/platform/httpclient"
	"paywall-anywhere/internal/ports/payments"
)

func orderInput() payments.CheckoutInput {
	return payments.CheckoutInput{
		ItemID:     "it-1",
		PostID:     "post-1",
		Title:      "Premium article access",
		PriceMinor: 1250,
		Currency:   "EUR",
		Email:      "buyer@x.com",
	}
}

func TestCreateCheckout(t *testing.T) {
	var got orderRequest
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          987,
			"payment_url": "https://tienda.example.com/checkout/order-pay/987",
		})
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, APIKey: "ck_test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	co, err := p.CreateCheckout(context.Background(), orderInput())
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if gotPath != "/wp-json/wc/v3/orders" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(got.Items) != 1 {
		t.Fatalf("request = %+v", got)
	}
	line := got.Items[0]
	if line.Total != "12.50" || line.Currency != "EUR" || line.Name != "Premium article access" {
		t.Fatalf("line = %+v", line)
	}
	if got.Meta["paywall_item_id"] != "it-1" || got.Meta["paywall_post_id"] != "post-1" {
		t.Fatalf("meta = %+v", got.Meta)
	}

	if co.SessionID != "987" || co.RedirectURL != "https://tienda.example.com/checkout/order-pay/987" {
		t.Fatalf("checkout = %+v", co)
	}
}

func TestCreateCheckout_NotConfigured(t *testing.T) {
	p, err := New(Config{BaseURL: "https://tienda.example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.CreateCheckout(context.Background(), orderInput()); !errors.Is(err, payments.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCreateCheckout_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("tienda caída"))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, APIKey: "ck_test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.CreateCheckout(context.Background(), orderInput())
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want *httpclient.HTTPError 500", err)
	}
}

func TestCreateCheckout_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":0}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, APIKey: "ck_test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.CreateCheckout(context.Background(), orderInput()); err == nil || !strings.Contains(err.Error(), "malformed response") {
		t.Fatalf("err = %v, want respuesta malformada", err)
	}
}

func TestFormatTotal(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{500, "USD", "5.00"},
		{1205, "EUR", "12.05"},
		{500, "JPY", "500"},
		{500, "jpy", "500"},
	}
	for _, c := range cases {
		if got := formatTotal(c.minor, c.currency); got != c.want {
			t.Errorf("formatTotal(%d, %q) = %q, want %q", c.minor, c.currency, got, c.want)
		}
	}
}
