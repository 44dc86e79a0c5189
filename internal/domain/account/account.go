// Package account defines the per-student ledger account: the single source
// of truth for what a student owes, what they have paid, and in which
// currency. Every monetary field on an account is denominated in the
// account's settlement currency.
package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

// Common errors
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNegativeDiscount  = errors.New("discount cannot be negative")
	ErrDiscountExceeds   = errors.New("discount cannot exceed the original price")
	ErrEmptyStudentName  = errors.New("student name cannot be empty")
	ErrInvariantViolated = errors.New("ledger invariant violated: balance != final price - total paid")
)

// PaymentStatus is derived from the paid-to-date figures, never set directly.
// OVERDUE is applied by an external scheduler and is representable here but
// never derived by the engine itself.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
)

// LedgerAccount is the per-student financial snapshot.
//
// EUREquivalent and ExchangeRateUsed are fixed when the account is created
// with the rate in effect at that moment. They must never be recomputed from
// a later rate; no method on this type mutates them.
type LedgerAccount struct {
	StudentID        uuid.UUID       `json:"student_id"`
	StudentName      string          `json:"student_name"`
	Currency         money.Currency  `json:"currency"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	DiscountApplied  decimal.Decimal `json:"discount_applied"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	Balance          decimal.Decimal `json:"balance"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	EUREquivalent    decimal.Decimal `json:"eur_equivalent"`
	ExchangeRateUsed decimal.Decimal `json:"exchange_rate_used"`
	Version          int             `json:"version"` // For optimistic locking
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewLedgerAccount creates an account for an enrolling student. The price is
// fixed at this moment, along with the EUR-equivalent snapshot computed with
// the converter's current rate.
func NewLedgerAccount(studentName string, currency money.Currency, originalPrice, discount decimal.Decimal, converter *money.Converter) (*LedgerAccount, error) {
	if studentName == "" {
		return nil, ErrEmptyStudentName
	}
	if !originalPrice.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if discount.IsNegative() {
		return nil, ErrNegativeDiscount
	}
	if discount.GreaterThan(originalPrice) {
		return nil, ErrDiscountExceeds
	}
	if _, err := money.ParseCurrency(string(currency)); err != nil {
		return nil, err
	}

	finalPrice := money.Round(originalPrice.Sub(discount))
	eurEquivalent, err := converter.ToBase(finalPrice, currency)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	acc := &LedgerAccount{
		StudentID:        uuid.New(),
		StudentName:      studentName,
		Currency:         currency,
		OriginalPrice:    money.Round(originalPrice),
		DiscountApplied:  money.Round(discount),
		FinalPrice:       finalPrice,
		TotalPaid:        decimal.Zero,
		Balance:          finalPrice,
		PaymentStatus:    PaymentStatusPending,
		EUREquivalent:    eurEquivalent,
		ExchangeRateUsed: converter.Rate(),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := acc.checkInvariants(); err != nil {
		return nil, err
	}
	return acc, nil
}

// ApplyPayment credits a captured payment to the account. The amount must
// already be expressed in the account's settlement currency.
func (a *LedgerAccount) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	a.TotalPaid = money.Round(a.TotalPaid.Add(amount))
	a.recompute()
	return a.checkInvariants()
}

// ApplyCorrection applies an administrative adjustment to the paid-to-date
// figure. Unlike ApplyPayment the delta may be negative; this is the only
// sanctioned path by which TotalPaid decreases.
func (a *LedgerAccount) ApplyCorrection(delta decimal.Decimal) error {
	if delta.IsZero() {
		return ErrInvalidAmount
	}

	a.TotalPaid = money.Round(a.TotalPaid.Add(delta))
	a.recompute()
	return a.checkInvariants()
}

// recompute re-derives balance and payment status from the paid figures
func (a *LedgerAccount) recompute() {
	a.Balance = money.Round(a.FinalPrice.Sub(a.TotalPaid))
	a.PaymentStatus = derivePaymentStatus(a.FinalPrice, a.TotalPaid)
	a.UpdatedAt = time.Now()
	a.Version++
}

// checkInvariants asserts balance == finalPrice - totalPaid after every
// mutation. A violation means a code path wrote fields directly instead of
// going through ApplyPayment/ApplyCorrection.
func (a *LedgerAccount) checkInvariants() error {
	expected := money.Round(a.FinalPrice.Sub(a.TotalPaid))
	if !a.Balance.Equal(expected) {
		return fmt.Errorf("%w: balance=%s final=%s paid=%s",
			ErrInvariantViolated, a.Balance, a.FinalPrice, a.TotalPaid)
	}
	if a.FinalPrice.IsNegative() {
		return fmt.Errorf("%w: final price is negative", ErrInvariantViolated)
	}
	return nil
}

// derivePaymentStatus maps paid-to-date onto the account status
func derivePaymentStatus(finalPrice, totalPaid decimal.Decimal) PaymentStatus {
	switch {
	case totalPaid.LessThanOrEqual(decimal.Zero):
		return PaymentStatusPending
	case totalPaid.GreaterThanOrEqual(finalPrice):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}
