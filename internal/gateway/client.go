// Package gateway wraps the external payment provider: minting checkout
// orders and verifying the signatures it issues on both confirmation paths.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/config"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// CreatedOrder is the provider's response to an order mint
type CreatedOrder struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"` // Smallest currency unit
	Currency    string `json:"currency"`
}

// Client talks to the payment provider's REST API
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a gateway client. An empty key pair is allowed; the
// client then reports ErrGatewayUnavailable on use instead of failing boot.
func NewClient(logger *slog.Logger, cfg *config.GatewayConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Configured reports whether gateway credentials are present
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

// KeyID exposes the public key for checkout initialization on the client side
func (c *Client) KeyID() string {
	return c.keyID
}

type createOrderPayload struct {
	Amount   int64  `json:"amount"` // Smallest currency unit
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

// CreateOrder mints a gateway order for the given amount. The provider works
// in smallest currency units, so the decimal amount is scaled by 100 on the
// wire. Unreachable or unconfigured providers surface as
// order.ErrGatewayUnavailable so callers can return a retryable 503 instead
// of a generic failure.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency money.Currency, receipt string) (*CreatedOrder, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: missing API credentials", order.ErrGatewayUnavailable)
	}

	payload := createOrderPayload{
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: string(currency),
		Receipt:  receipt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway order payload: %w", err)
	}

	url := c.baseURL + "/v1/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway order request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", order.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 500 {
		c.logger.Error("Gateway returned server error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: gateway responded %d", order.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway rejected order creation: status %d: %s", resp.StatusCode, respBody)
	}

	var created CreatedOrder
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to decode gateway order response: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("gateway order response missing id")
	}

	c.logger.Debug("Gateway order created", "order_id", created.ID, "amount_minor", created.AmountMinor)
	return &created, nil
}

// VerifyCallback checks the signature the gateway handed to the client on
// redirect
func (c *Client) VerifyCallback(orderID, paymentID, signature string) bool {
	return VerifyCallbackSignature(c.keySecret, orderID, paymentID, signature)
}

// VerifyWebhook checks a webhook body signature against the shared secret
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	return VerifyWebhookSignature(c.webhookSecret, body, signature)
}
