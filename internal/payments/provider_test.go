package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deskly/internal/shared/config"

	"github.com/shopspring/decimal"
)

func TestHTTPProviderRefund(t *testing.T) {
	var got refundRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/refunds" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("Idempotency-Key") != "key-1" {
			t.Errorf("headers = %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_42","status":"succeeded"}`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(server.URL+"/", "secret", time.Second)
	resp, err := provider.Refund(context.Background(), ProviderRefundRequest{
		PaymentReference: "pi_9",
		Amount:           decimal.RequireFromString("120.50"),
		Currency:         "USD",
		Reason:           "requested_by_customer",
		IdempotencyKey:   "key-1",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if resp.ID != "re_42" {
		t.Fatalf("resp = %+v", resp)
	}
	if got.Amount != 12050 || got.Currency != "usd" || got.Payment != "pi_9" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestHTTPProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		declined bool
	}{
		{"client error is a decline", http.StatusBadRequest, `{"error":{"code":"charge_already_refunded","message":"already refunded"}}`, true},
		{"server error is retryable", http.StatusBadGateway, `{"error":{"message":"upstream"}}`, false},
		{"rate limit is retryable", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, false},
		{"unparseable body", http.StatusInternalServerError, `oops`, false},
		{"failed status in body", http.StatusOK, `{"id":"re_1","status":"failed"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPProvider(server.URL, "k", time.Second).Refund(context.Background(), ProviderRefundRequest{
				PaymentReference: "pi_1",
				Amount:           decimal.NewFromInt(1),
				Currency:         "USD",
			})
			if err == nil {
				t.Fatal("expected error")
			}
			var declined *DeclinedError
			if errors.As(err, &declined) != tt.declined {
				t.Fatalf("declined = %v, want %v (%v)", !tt.declined, tt.declined, err)
			}
		})
	}
}

func TestHTTPProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, "k", 20*time.Millisecond).Refund(context.Background(), ProviderRefundRequest{Amount: decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	first, err := p.Refund(ctx, ProviderRefundRequest{PaymentReference: "pi_1", IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	again, _ := p.Refund(ctx, ProviderRefundRequest{PaymentReference: "pi_1", IdempotencyKey: "k"})
	if first.ID != again.ID {
		t.Fatalf("idempotent replay returned %s and %s", first.ID, again.ID)
	}

	_, err = p.Refund(ctx, ProviderRefundRequest{PaymentReference: "fail_pi"})
	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("expected decline, got %v", err)
	}

	p.delay = time.Second
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Refund(cctx, ProviderRefundRequest{PaymentReference: "pi_2"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := NewProvider(config.PaymentGatewayConfig{}); err != nil || p.Name() != "mock" {
		t.Fatalf("default provider = %v, %v", p, err)
	}
	if _, err := NewProvider(config.PaymentGatewayConfig{Provider: "http"}); err == nil {
		t.Fatal("http provider without base URL should fail")
	}
	if p, err := NewProvider(config.PaymentGatewayConfig{Provider: "HTTP", BaseURL: "http://pay.local"}); err != nil || p.Name() != "http" {
		t.Fatalf("http provider = %v, %v", p, err)
	}
	if _, err := NewProvider(config.PaymentGatewayConfig{Provider: "paypal"}); err == nil {
		t.Fatal("unknown provider should fail")
	}
}
