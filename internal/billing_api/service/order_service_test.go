package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
	"github.com/schoolhub-billing-ledger/internal/gateway"
)

// MockGatewayClient mocks the payment provider client
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency money.Currency, receipt string) (*gateway.CreatedOrder, error) {
	args := m.Called(ctx, amount, currency, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CreatedOrder), args.Error(1)
}

func (m *MockGatewayClient) KeyID() string {
	return m.Called().String(0)
}

func (m *MockGatewayClient) VerifyCallback(orderID, paymentID, signature string) bool {
	return m.Called(orderID, paymentID, signature).Bool(0)
}

func (m *MockGatewayClient) VerifyWebhook(body []byte, signature string) bool {
	return m.Called(body, signature).Bool(0)
}

func decimalEqualTo(want string) interface{} {
	expected := decimal.RequireFromString(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(expected)
	})
}

func newEnrolledAccount(t *testing.T) (*memAccountRepo, uuid.UUID) {
	t.Helper()
	converter, err := money.NewConverterFromString("104.5")
	require.NoError(t, err)
	acc, err := account.NewLedgerAccount("Asha Verma", money.INR, decimal.NewFromInt(50000), decimal.Zero, converter)
	require.NoError(t, err)
	repo := newMemAccountRepo()
	require.NoError(t, repo.Create(context.Background(), acc))
	return repo, acc.StudentID
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	maxAmount := decimal.NewFromInt(500000)

	t.Run("Success", func(t *testing.T) {
		orders := newMemOrderRepo()
		accounts, studentID := newEnrolledAccount(t)

		gw := &MockGatewayClient{}
		gw.On("CreateOrder", ctx, decimalEqualTo("10000"), money.INR, "rcpt-1").
			Return(&gateway.CreatedOrder{ID: "order_Nx7Qa", AmountMinor: 1000000, Currency: "INR"}, nil).Once()
		gw.On("KeyID").Return("key_test")

		svc := NewOrderService(orders, accounts, gw, nil, maxAmount, logger)
		checkout, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:    decimal.NewFromInt(10000),
			Currency:  money.INR,
			Receipt:   "rcpt-1",
			StudentID: &studentID,
			Customer:  order.Customer{Name: "Asha Verma"},
		})
		require.NoError(t, err)

		assert.Equal(t, "order_Nx7Qa", checkout.Order.ID)
		assert.Equal(t, order.StatusCreated, checkout.Order.Status)
		assert.Equal(t, "key_test", checkout.GatewayKeyID)

		stored, err := orders.GetByID(ctx, "order_Nx7Qa")
		require.NoError(t, err)
		assert.Equal(t, studentID, *stored.StudentID)
		gw.AssertExpectations(t)
	})

	t.Run("SubCentAmountRoundedBeforeGatewayMint", func(t *testing.T) {
		orders := newMemOrderRepo()

		// 10.005 must round to 10.01 before the gateway converts it to
		// minor units, otherwise the charge and the stored amount diverge
		gw := &MockGatewayClient{}
		gw.On("CreateOrder", ctx, decimalEqualTo("10.01"), money.INR, "rcpt-2").
			Return(&gateway.CreatedOrder{ID: "order_rnd", AmountMinor: 1001, Currency: "INR"}, nil).Once()
		gw.On("KeyID").Return("key_test")

		svc := NewOrderService(orders, newMemAccountRepo(), gw, nil, maxAmount, logger)
		checkout, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:   decimal.RequireFromString("10.005"),
			Currency: money.INR,
			Receipt:  "rcpt-2",
		})
		require.NoError(t, err)

		assert.Equal(t, "10.01", checkout.Order.Amount.StringFixed(2))
		stored, err := orders.GetByID(ctx, "order_rnd")
		require.NoError(t, err)
		assert.Equal(t, "10.01", stored.Amount.StringFixed(2))
		gw.AssertExpectations(t)
	})

	t.Run("AmountAboveMaximumRejected", func(t *testing.T) {
		svc := NewOrderService(newMemOrderRepo(), newMemAccountRepo(), &MockGatewayClient{}, nil, maxAmount, logger)

		_, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:   decimal.NewFromInt(500001),
			Currency: money.INR,
		})
		assert.ErrorIs(t, err, order.ErrAmountExceedsMax)
	})

	t.Run("NonPositiveAmountRejected", func(t *testing.T) {
		svc := NewOrderService(newMemOrderRepo(), newMemAccountRepo(), &MockGatewayClient{}, nil, maxAmount, logger)

		_, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:   decimal.Zero,
			Currency: money.INR,
		})
		assert.ErrorIs(t, err, order.ErrInvalidAmount)
	})

	t.Run("UnknownStudentRejected", func(t *testing.T) {
		svc := NewOrderService(newMemOrderRepo(), newMemAccountRepo(), &MockGatewayClient{}, nil, maxAmount, logger)
		missing := uuid.New()

		_, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:    decimal.NewFromInt(100),
			Currency:  money.INR,
			StudentID: &missing,
		})
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
	})

	t.Run("GatewayUnavailableSurfaced", func(t *testing.T) {
		gw := &MockGatewayClient{}
		gw.On("CreateOrder", ctx, mock.Anything, money.INR, "").
			Return(nil, fmt.Errorf("%w: dial tcp: connection refused", order.ErrGatewayUnavailable)).Once()

		svc := NewOrderService(newMemOrderRepo(), newMemAccountRepo(), gw, nil, maxAmount, logger)

		_, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:   decimal.NewFromInt(100),
			Currency: money.INR,
		})
		assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
	})

	t.Run("DuplicateGatewayIDReturnsStoredOrder", func(t *testing.T) {
		orders := newMemOrderRepo()
		existing, err := order.NewPaymentOrder("order_dup", decimal.NewFromInt(100), money.INR, "", nil, order.Customer{})
		require.NoError(t, err)
		require.NoError(t, orders.Create(ctx, existing))

		gw := &MockGatewayClient{}
		gw.On("CreateOrder", ctx, mock.Anything, money.INR, "").
			Return(&gateway.CreatedOrder{ID: "order_dup", AmountMinor: 10000, Currency: "INR"}, nil).Once()
		gw.On("KeyID").Return("key_test")

		svc := NewOrderService(orders, newMemAccountRepo(), gw, nil, maxAmount, logger)
		checkout, err := svc.CreateOrder(ctx, &CreateOrderInput{
			Amount:   decimal.NewFromInt(100),
			Currency: money.INR,
		})
		require.NoError(t, err)
		assert.Equal(t, "order_dup", checkout.Order.ID)
	})
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrderRepo()
	svc := NewOrderService(orders, newMemAccountRepo(), &MockGatewayClient{}, nil, decimal.NewFromInt(500000), slog.Default())

	_, err := svc.GetOrder(ctx, "order_missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound{OrderID: "order_missing"})

	o, err := order.NewPaymentOrder("order_known", decimal.NewFromInt(100), money.INR, "", nil, order.Customer{})
	require.NoError(t, err)
	require.NoError(t, orders.Create(ctx, o))

	got, err := svc.GetOrder(ctx, "order_known")
	require.NoError(t, err)
	assert.Equal(t, "order_known", got.ID)
}
