package expense

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

func TestNewEntry(t *testing.T) {
	entry, err := NewEntry("rent", TypeRecurring, decimal.NewFromInt(300), money.EUR, time.Now(), "office lease")
	require.NoError(t, err)

	assert.True(t, entry.IsActive)
	assert.Equal(t, "300.00", entry.Amount.StringFixed(2))

	_, err = NewEntry("", TypeOneTime, decimal.NewFromInt(10), money.EUR, time.Now(), "")
	assert.ErrorIs(t, err, ErrEmptyCategory)

	_, err = NewEntry("rent", "WEEKLY", decimal.NewFromInt(10), money.EUR, time.Now(), "")
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = NewEntry("rent", TypeOneTime, decimal.Zero, money.EUR, time.Now(), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewEntry("rent", TypeOneTime, decimal.NewFromInt(10), "USD", time.Now(), "")
	assert.ErrorIs(t, err, money.ErrUnsupportedCurrency)
}

func TestPeriodDays(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 15, PeriodDays(start, start.AddDate(0, 0, 15)))
	assert.Equal(t, 30, PeriodDays(start, start.AddDate(0, 0, 30)))

	// Zero-length and inverted windows floor at one day
	assert.Equal(t, 1, PeriodDays(start, start))
	assert.Equal(t, 1, PeriodDays(start, start.Add(-time.Hour)))
}

func TestProrate(t *testing.T) {
	monthly := decimal.NewFromInt(300)

	assert.Equal(t, "150.00", Prorate(monthly, 15).StringFixed(2))
	assert.Equal(t, "300.00", Prorate(monthly, 30).StringFixed(2))
	assert.Equal(t, "10.00", Prorate(monthly, 1).StringFixed(2))

	// Linear days/30, not calendar-aware: 31-day windows overshoot on purpose
	assert.Equal(t, "310.00", Prorate(monthly, 31).StringFixed(2))

	// Rounding is half away from zero at two places
	assert.Equal(t, "33.33", Prorate(decimal.NewFromInt(100), 10).StringFixed(2))
}
