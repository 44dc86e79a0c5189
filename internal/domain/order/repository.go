package order

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository manages payment order persistence.
//
// MarkPaid and MarkFailed are the idempotency primitive of the whole engine:
// a single conditional UPDATE guarded by status = CREATED. Implementations
// must return ErrNoTransition when zero rows are affected so callers can
// distinguish "already settled" from a successful first transition. They must
// never implement the guard as a read-then-write pair.
type Repository interface {
	Create(ctx context.Context, o *PaymentOrder) error
	GetByID(ctx context.Context, id string) (*PaymentOrder, error)

	// MarkPaid transitions CREATED -> PAID, recording the gateway payment id
	// and signature in the same conditional write
	MarkPaid(ctx context.Context, id, gatewayPaymentID, gatewaySignature string) error

	// MarkFailed transitions CREATED -> FAILED
	MarkFailed(ctx context.Context, id string) error

	// MarkCredited flips the ledger-credited flag, guarded by
	// ledger_credited = false so the credit is applied at most once
	MarkCredited(ctx context.Context, id string) error

	// ListPaidUncredited returns settled orders whose ledger credit has not
	// committed yet, oldest first; the settlement worker drives off this
	ListPaidUncredited(ctx context.Context, limit int) ([]*PaymentOrder, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrNoTransition indicates a conditional update affected zero rows: the
// order has already left the guarded state
type ErrNoTransition struct {
	OrderID string
}

func (e ErrNoTransition) Error() string {
	return "no state transition applied for order: " + e.OrderID
}

// Is implements the errors.Is interface for ErrNoTransition
func (e ErrNoTransition) Is(target error) bool {
	t, ok := target.(ErrNoTransition)
	if !ok {
		return false
	}
	if t.OrderID == "" {
		return true
	}
	return e.OrderID == t.OrderID
}

// ErrOrderNotFound indicates missing payment order
type ErrOrderNotFound struct {
	OrderID string
}

func (e ErrOrderNotFound) Error() string {
	return "payment order not found: " + e.OrderID
}

// Is implements the errors.Is interface for ErrOrderNotFound
func (e ErrOrderNotFound) Is(target error) bool {
	t, ok := target.(ErrOrderNotFound)
	if !ok {
		return false
	}
	if t.OrderID == "" {
		return true
	}
	return e.OrderID == t.OrderID
}

// ErrDuplicateOrder indicates gateway order id uniqueness violation
type ErrDuplicateOrder struct {
	OrderID string
}

func (e ErrDuplicateOrder) Error() string {
	return "duplicate payment order: " + e.OrderID
}
