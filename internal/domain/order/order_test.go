package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

func TestNewPaymentOrder(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		studentID := uuid.New()

		o, err := NewPaymentOrder("order_Nx7Qa", decimal.NewFromInt(1000), money.INR, "rcpt-42", &studentID, Customer{Name: "Asha Verma", Email: "asha@example.com"})
		require.NoError(t, err)

		assert.Equal(t, "order_Nx7Qa", o.ID)
		assert.Equal(t, StatusCreated, o.Status)
		assert.Equal(t, "1000.00", o.Amount.StringFixed(2))
		assert.False(t, o.LedgerCredited)
		assert.False(t, o.IsTerminal())
		assert.Empty(t, o.GatewayPaymentID)
		assert.Empty(t, o.GatewaySignature)
	})

	t.Run("AnonymousOrder", func(t *testing.T) {
		o, err := NewPaymentOrder("order_anon", decimal.NewFromInt(50), money.EUR, "", nil, Customer{Name: "Walk-in"})
		require.NoError(t, err)
		assert.Nil(t, o.StudentID)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := NewPaymentOrder("", decimal.NewFromInt(10), money.INR, "", nil, Customer{})
		assert.Error(t, err)

		_, err = NewPaymentOrder("order_x", decimal.Zero, money.INR, "", nil, Customer{})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = NewPaymentOrder("order_x", decimal.NewFromInt(10), "USD", "", nil, Customer{})
		assert.ErrorIs(t, err, money.ErrUnsupportedCurrency)
	})
}

func TestPaymentOrder_IsTerminal(t *testing.T) {
	o := &PaymentOrder{Status: StatusCreated}
	assert.False(t, o.IsTerminal())

	o.Status = StatusPaid
	assert.True(t, o.IsTerminal())

	o.Status = StatusFailed
	assert.True(t, o.IsTerminal())
}

func TestValidateAmount(t *testing.T) {
	max := decimal.NewFromInt(500000)

	assert.NoError(t, ValidateAmount(decimal.NewFromInt(1), max))
	assert.NoError(t, ValidateAmount(max, max))
	assert.ErrorIs(t, ValidateAmount(decimal.Zero, max), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(decimal.NewFromInt(-10), max), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(max.Add(decimal.NewFromInt(1)), max), ErrAmountExceedsMax)
}

func TestErrNoTransition_Is(t *testing.T) {
	err := ErrNoTransition{OrderID: "order_1"}

	assert.ErrorIs(t, err, ErrNoTransition{})
	assert.ErrorIs(t, err, ErrNoTransition{OrderID: "order_1"})
	assert.NotErrorIs(t, err, ErrNoTransition{OrderID: "order_2"})
}
