package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"deskly/internal/shared/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderRefundRequest is what a provider needs to refund part of a captured payment
type ProviderRefundRequest struct {
	PaymentReference string
	Amount           decimal.Decimal
	Currency         string
	Reason           string
	IdempotencyKey   string
}

// ProviderRefundResponse is the provider's view of the refund
type ProviderRefundResponse struct {
	ID     string
	Status string
}

// Provider issues refunds with an external payment processor
type Provider interface {
	Name() string
	Refund(ctx context.Context, req ProviderRefundRequest) (*ProviderRefundResponse, error)
}

// NewProvider picks the provider named in config
func NewProvider(cfg config.PaymentGatewayConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "mock":
		return NewMockProvider(), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("payment gateway base URL is required for the http provider")
		}
		return NewHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway provider %q", cfg.Provider)
	}
}

// MockProvider accepts every refund. References starting with "fail_" are declined.
type MockProvider struct {
	mu      sync.Mutex
	refunds map[string]ProviderRefundResponse
	delay   time.Duration
}

func NewMockProvider() *MockProvider {
	return &MockProvider{refunds: make(map[string]ProviderRefundResponse)}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Refund(ctx context.Context, req ProviderRefundRequest) (*ProviderRefundResponse, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}

	if strings.HasPrefix(req.PaymentReference, "fail_") {
		return nil, &DeclinedError{Code: "card_declined", Message: "refund declined by issuer"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Replays with the same key return the original refund
	if existing, ok := m.refunds[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return &existing, nil
	}
	resp := ProviderRefundResponse{ID: "re_mock_" + strings.ReplaceAll(uuid.NewString(), "-", ""), Status: "succeeded"}
	if req.IdempotencyKey != "" {
		m.refunds[req.IdempotencyKey] = resp
	}
	return &resp, nil
}

// DeclinedError is a refund the provider refused; retrying it will not help
type DeclinedError struct {
	Code    string
	Message string
}

func (e *DeclinedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("refund declined (%s): %s", e.Code, e.Message)
	}
	return "refund declined: " + e.Message
}
