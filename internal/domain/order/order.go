// Package order defines the gateway-facing payment order: one row per
// checkout attempt, keyed by the gateway-assigned order id. An order is
// terminal once PAID or FAILED; the repository's conditional updates are the
// sole mechanism that enforces at most one transition out of CREATED.
package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

var (
	ErrInvalidAmount      = errors.New("order amount must be positive")
	ErrAmountExceedsMax   = errors.New("order amount exceeds the configured maximum")
	ErrAlreadyProcessed   = errors.New("order already settled; prior result applies")
	ErrSignatureInvalid   = errors.New("payment signature verification failed")
	ErrGatewayUnavailable = errors.New("payment gateway not configured or unreachable")
)

// Status is a payment order state
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Customer carries contextual checkout metadata kept for reconciliation and
// downstream notification. An order from the public site may not be linked to
// a student yet.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PaymentOrder is a single checkout attempt against the payment gateway.
// Amount and Currency are fixed at creation. GatewayPaymentID and
// GatewaySignature are populated only on the transition to PAID.
type PaymentOrder struct {
	ID               string          `json:"id"` // Gateway-assigned order id
	Status           Status          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         money.Currency  `json:"currency"`
	Receipt          string          `json:"receipt,omitempty"`
	StudentID        *uuid.UUID      `json:"student_id,omitempty"`
	Customer         Customer        `json:"customer"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	GatewaySignature string          `json:"gateway_signature,omitempty"`
	LedgerCredited   bool            `json:"ledger_credited"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	SettledAt        *time.Time      `json:"settled_at,omitempty"`
}

// NewPaymentOrder builds an order in CREATED status around a gateway-minted id
func NewPaymentOrder(gatewayOrderID string, amount decimal.Decimal, currency money.Currency, receipt string, studentID *uuid.UUID, customer Customer) (*PaymentOrder, error) {
	if gatewayOrderID == "" {
		return nil, errors.New("gateway order id cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if _, err := money.ParseCurrency(string(currency)); err != nil {
		return nil, err
	}

	now := time.Now()
	return &PaymentOrder{
		ID:        gatewayOrderID,
		Status:    StatusCreated,
		Amount:    money.Round(amount),
		Currency:  currency,
		Receipt:   receipt,
		StudentID: studentID,
		Customer:  customer,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTerminal reports whether the order has left CREATED
func (o *PaymentOrder) IsTerminal() bool {
	return o.Status == StatusPaid || o.Status == StatusFailed
}

// ValidateAmount checks an intake amount against the engine's bounds
func ValidateAmount(amount, max decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(max) {
		return ErrAmountExceedsMax
	}
	return nil
}
