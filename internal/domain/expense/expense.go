// Package expense defines operating expense entries and the period summary
// used for financial reporting. Recurring entries represent a monthly cost;
// deactivating one stops future proration without deleting history.
package expense

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

var (
	ErrInvalidAmount = errors.New("expense amount must be positive")
	ErrEmptyCategory = errors.New("expense category cannot be empty")
	ErrInvalidType   = errors.New("invalid expense type")
)

// Type distinguishes one-off costs from monthly recurring ones
type Type string

const (
	TypeRecurring Type = "RECURRING"
	TypeOneTime   Type = "ONE_TIME"
)

// ParseType validates an expense type string
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeRecurring:
		return TypeRecurring, nil
	case TypeOneTime:
		return TypeOneTime, nil
	default:
		return "", ErrInvalidType
	}
}

// Entry is a single operating expense record
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Category  string          `json:"category"`
	Type      Type            `json:"type"`
	Amount    decimal.Decimal `json:"amount"` // Monthly amount for recurring entries
	Currency  money.Currency  `json:"currency"`
	Date      time.Time       `json:"date"`
	IsActive  bool            `json:"is_active"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewEntry creates an expense entry
func NewEntry(category string, entryType Type, amount decimal.Decimal, currency money.Currency, date time.Time, notes string) (*Entry, error) {
	if category == "" {
		return nil, ErrEmptyCategory
	}
	if _, err := ParseType(string(entryType)); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if _, err := money.ParseCurrency(string(currency)); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Entry{
		ID:        uuid.New(),
		Category:  category,
		Type:      entryType,
		Amount:    money.Round(amount),
		Currency:  currency,
		Date:      date,
		IsActive:  true,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Summary is a period-bounded expense total, fully normalized into the
// reporting base currency
type Summary struct {
	PeriodStart time.Time                  `json:"period_start"`
	PeriodEnd   time.Time                  `json:"period_end"`
	Currency    money.Currency             `json:"currency"`
	Total       decimal.Decimal            `json:"total_expenses"`
	Recurring   decimal.Decimal            `json:"recurring"`
	OneTime     decimal.Decimal            `json:"one_time"`
	ByCategory  map[string]decimal.Decimal `json:"by_category"`
}

// PeriodDays returns the whole-day length of a reporting window, floored at 1
// to avoid division anomalies on zero-length windows
func PeriodDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Prorate scales a monthly amount to a window of the given day count. The
// proration is a deliberate linear days/30 approximation, not
// calendar-month-aware.
func Prorate(monthly decimal.Decimal, periodDays int) decimal.Decimal {
	return money.Round(monthly.
		Mul(decimal.NewFromInt(int64(periodDays))).
		DivRound(decimal.NewFromInt(30), 8))
}
