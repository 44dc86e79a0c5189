package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/audit"
	"github.com/schoolhub-billing-ledger/internal/domain/expense"
	"github.com/schoolhub-billing-ledger/internal/domain/invoice"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
	"github.com/schoolhub-billing-ledger/internal/gateway"
)

// CreateOrderInput carries validated intake fields for a new payment order
type CreateOrderInput struct {
	Amount    decimal.Decimal
	Currency  money.Currency
	Receipt   string
	StudentID *uuid.UUID
	Customer  order.Customer
}

// CheckoutOrder is what the client needs to open the gateway checkout
type CheckoutOrder struct {
	Order        *order.PaymentOrder
	GatewayKeyID string
}

// OrderService mints gateway orders and records them locally
type OrderService interface {
	// CreateOrder mints an order at the gateway and persists it in CREATED
	// status. Returns order.ErrGatewayUnavailable when the provider cannot be
	// reached, which callers should surface as a retryable condition.
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*CheckoutOrder, error)

	// GetOrder retrieves an order by its gateway-assigned id
	GetOrder(ctx context.Context, id string) (*order.PaymentOrder, error)
}

// ReconcileResult reports what a confirmation delivery did
type ReconcileResult struct {
	Order            *order.PaymentOrder
	AlreadyProcessed bool
}

// WebhookOutcome is the disposition of one webhook delivery
type WebhookOutcome string

const (
	WebhookProcessed        WebhookOutcome = "processed"
	WebhookAlreadyProcessed WebhookOutcome = "already_processed"
	WebhookIgnored          WebhookOutcome = "ignored"
)

// ReconcileService confirms payments arriving over either delivery path: the
// synchronous client callback and the asynchronous gateway webhook. Both
// funnel into the same conditional status transition, so any number of
// deliveries in any order settle the order exactly once.
type ReconcileService interface {
	// ConfirmCallback handles the synchronous browser callback. Returns
	// order.ErrSignatureInvalid on a bad signature and order.ErrAlreadyProcessed
	// when the order previously FAILED.
	ConfirmCallback(ctx context.Context, orderID, paymentID, signature string) (*ReconcileResult, error)

	// ProcessWebhook handles an asynchronous gateway event. The signature is
	// verified over the raw body before any parsing.
	ProcessWebhook(ctx context.Context, body []byte, signature string) (WebhookOutcome, error)
}

// AccountService manages student ledger accounts
type AccountService interface {
	// Enroll creates a ledger account, fixing the final price and the
	// EUR-equivalent snapshot at the current deployment rate
	Enroll(ctx context.Context, studentName string, currency money.Currency, originalPrice, discount decimal.Decimal) (*account.LedgerAccount, error)

	// GetAccount retrieves an account by student id
	GetAccount(ctx context.Context, studentID uuid.UUID) (*account.LedgerAccount, error)

	// ApplyCorrection applies an audited administrative adjustment to the
	// paid-to-date figure; delta may be negative
	ApplyCorrection(ctx context.Context, studentID uuid.UUID, delta decimal.Decimal, reason, actor string) (*account.LedgerAccount, error)

	// AuditTrail returns the account's audit events, newest first
	AuditTrail(ctx context.Context, studentID uuid.UUID, page, perPage int) ([]*audit.Event, error)
}

// ExpenseService records operating expenses and produces period summaries
type ExpenseService interface {
	RecordExpense(ctx context.Context, category string, entryType expense.Type, amount decimal.Decimal, currency money.Currency, date time.Time, notes string) (*expense.Entry, error)

	// Summarize aggregates expenses over [start, end]: one-time entries dated
	// inside the window at face value, recurring entries prorated linearly by
	// the window's day count over 30.
	Summarize(ctx context.Context, start, end time.Time) (*expense.Summary, error)

	// DeactivateExpense stops a recurring entry from future proration,
	// keeping its history
	DeactivateExpense(ctx context.Context, id uuid.UUID) error
}

// InvoiceService assembles invoices from ledger state
type InvoiceService interface {
	// GenerateInvoice builds the invoice for a student, optionally against one
	// settled order identified by orderID
	GenerateInvoice(ctx context.Context, studentID uuid.UUID, orderID string) (*invoice.Invoice, error)
}

// GatewayClient is the slice of the payment provider client the services need
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency money.Currency, receipt string) (*gateway.CreatedOrder, error)
	KeyID() string
	VerifyCallback(orderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
}

// AuditLog is the audit store surface: append plus per-student history
type AuditLog interface {
	audit.Recorder
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*audit.Event, error)
}
