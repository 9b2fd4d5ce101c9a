package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

const statusSucceeded = "succeeded"

var minorUnits = decimal.NewFromInt(100)

type chargeRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Customer      string `json:"customer"`
	PaymentMethod string `json:"payment_method"`
	ReceiptEmail  string `json:"receipt_email,omitempty"`
	OffSession    bool   `json:"off_session"`
	Confirm       bool   `json:"confirm"`
}

type chargeResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

// HTTPGateway charges a stored payment method through a provider's JSON API.
// Amounts are sent in minor currency units.
type HTTPGateway struct {
	endpoint string
	apiKey   string
	currency string
	client   *http.Client
}

// NewHTTPGateway builds a gateway for endpoint. A zero timeout leaves charge
// calls unbounded.
func NewHTTPGateway(endpoint, apiKey, currency string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	body, err := json.Marshal(chargeRequest{
		Amount:        req.Amount.Mul(minorUnits).Round(0).IntPart(),
		Currency:      g.currency,
		Customer:      req.Profile.CustomerID,
		PaymentMethod: req.Profile.PaymentMethodID,
		ReceiptEmail:  req.Profile.Email,
		OffSession:    true,
		Confirm:       true,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read charge response: %w", err)
	}

	var result chargeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return &domain.ChargeResult{
			FailureReason: fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}, nil
	}

	if resp.StatusCode/100 != 2 || result.Status != statusSucceeded {
		reason := result.FailureReason
		if reason == "" {
			reason = fmt.Sprintf("provider returned status %d (%s)", resp.StatusCode, result.Status)
		}
		return &domain.ChargeResult{Reference: result.ID, FailureReason: reason}, nil
	}

	return &domain.ChargeResult{Success: true, Reference: result.ID}, nil
}
