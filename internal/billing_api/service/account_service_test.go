package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/audit"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

// MockAuditLog mocks the audit store
type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Record(ctx context.Context, event *audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditLog) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*audit.Event, error) {
	args := m.Called(ctx, studentID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Event), args.Error(1)
}

func newAccountService(t *testing.T, repo account.Repository, auditLog AuditLog) AccountService {
	t.Helper()
	converter, err := money.NewConverterFromString("104.5")
	require.NoError(t, err)
	return NewAccountService(repo, converter, auditLog, slog.Default())
}

func TestAccountService_Enroll(t *testing.T) {
	ctx := context.Background()

	t.Run("SnapshotFixedAtEnrollment", func(t *testing.T) {
		repo := newMemAccountRepo()
		auditLog := &MockAuditLog{}
		auditLog.On("Record", ctx, mock.MatchedBy(func(e *audit.Event) bool {
			return e.Action == audit.ActionAccountEnrolled
		})).Return(nil).Once()

		svc := newAccountService(t, repo, auditLog)
		acc, err := svc.Enroll(ctx, "Asha Verma", money.INR, decimal.NewFromInt(52250), decimal.NewFromInt(2250))
		require.NoError(t, err)

		assert.Equal(t, "50000.00", acc.FinalPrice.StringFixed(2))
		assert.Equal(t, "478.47", acc.EUREquivalent.StringFixed(2))
		assert.Equal(t, "104.5", acc.ExchangeRateUsed.String())
		assert.Equal(t, account.PaymentStatusPending, acc.PaymentStatus)
		auditLog.AssertExpectations(t)
	})

	t.Run("DiscountExceedingPriceRejected", func(t *testing.T) {
		svc := newAccountService(t, newMemAccountRepo(), nil)
		_, err := svc.Enroll(ctx, "Asha Verma", money.INR, decimal.NewFromInt(100), decimal.NewFromInt(200))
		assert.ErrorIs(t, err, account.ErrDiscountExceeds)
	})
}

func TestAccountService_ApplyCorrection(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (AccountService, *memAccountRepo, uuid.UUID, *MockAuditLog) {
		repo := newMemAccountRepo()
		auditLog := &MockAuditLog{}
		auditLog.On("Record", ctx, mock.Anything).Return(nil)

		svc := newAccountService(t, repo, auditLog)
		acc, err := svc.Enroll(ctx, "Asha Verma", money.INR, decimal.NewFromInt(50000), decimal.Zero)
		require.NoError(t, err)
		return svc, repo, acc.StudentID, auditLog
	}

	t.Run("NegativeDeltaReducesTotalPaid", func(t *testing.T) {
		svc, repo, studentID, auditLog := setup(t)

		// Simulate a prior recorded payment
		acc, err := repo.GetByStudentID(ctx, studentID)
		require.NoError(t, err)
		require.NoError(t, acc.ApplyPayment(decimal.NewFromInt(10000)))
		require.NoError(t, repo.Update(ctx, acc))

		got, err := svc.ApplyCorrection(ctx, studentID, decimal.NewFromInt(-2500), "double capture refunded offline", "ops@school")
		require.NoError(t, err)

		assert.Equal(t, "7500.00", got.TotalPaid.StringFixed(2))
		assert.Equal(t, "42500.00", got.Balance.StringFixed(2))
		assert.Equal(t, account.PaymentStatusPartial, got.PaymentStatus)

		auditLog.AssertCalled(t, "Record", ctx, mock.MatchedBy(func(e *audit.Event) bool {
			return e.Action == audit.ActionLedgerCorrected &&
				e.Detail["delta"] == "-2500.00" &&
				e.Detail["reason"] == "double capture refunded offline" &&
				e.Detail["actor"] == "ops@school"
		}))
	})

	t.Run("ZeroDeltaRejected", func(t *testing.T) {
		svc, _, studentID, _ := setup(t)
		_, err := svc.ApplyCorrection(ctx, studentID, decimal.Zero, "noop", "ops@school")
		assert.ErrorIs(t, err, account.ErrInvalidAmount)
	})

	t.Run("UnknownStudentRejected", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		_, err := svc.ApplyCorrection(ctx, uuid.New(), decimal.NewFromInt(10), "r", "a")
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
	})
}

func TestAccountService_AuditTrail(t *testing.T) {
	ctx := context.Background()
	studentID := uuid.New()

	auditLog := &MockAuditLog{}
	events := []*audit.Event{audit.NewEvent(audit.ActionLedgerCorrected)}
	auditLog.On("ListByStudent", ctx, studentID.String(), 20, 20).Return(events, nil).Once()

	svc := newAccountService(t, newMemAccountRepo(), auditLog)
	got, err := svc.AuditTrail(ctx, studentID, 2, 20)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	auditLog.AssertExpectations(t)
}
