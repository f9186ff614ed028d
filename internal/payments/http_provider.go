package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider talks JSON to a refund API authenticated with an API key
type HTTPProvider struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPProvider creates a new provider client; timeout bounds each refund call
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPProvider) Name() string { return "http" }

// refundRequest is the wire payload; amount is in minor units
type refundRequest struct {
	Payment  string `json:"payment"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is the provider's error body
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Refund sends a refund request to the provider
func (p *HTTPProvider) Refund(ctx context.Context, req ProviderRefundRequest) (*ProviderRefundResponse, error) {
	payload := refundRequest{
		Payment:  req.PaymentReference,
		Amount:   req.Amount.Shift(2).Round(0).IntPart(),
		Currency: strings.ToLower(req.Currency),
		Reason:   req.Reason,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refund request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/refunds", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create refund request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", p.APIKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute refund request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refund response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr != nil || errResp.Error.Message == "" {
			return nil, fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		// 4xx other than rate limiting means the provider refused this refund
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, &DeclinedError{Code: errResp.Error.Code, Message: errResp.Error.Message}
		}
		return nil, fmt.Errorf("payment provider error (%d): %s", resp.StatusCode, errResp.Error.Message)
	}

	var out refundResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode refund response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("payment provider returned a refund without an id")
	}
	if out.Status == "failed" || out.Status == "canceled" {
		return nil, &DeclinedError{Code: out.Status, Message: "refund " + out.Status + " by provider"}
	}

	return &ProviderRefundResponse{ID: out.ID, Status: out.Status}, nil
}
