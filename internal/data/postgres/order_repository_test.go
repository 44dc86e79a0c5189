package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OrderRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE payment_orders
		SET status = \$1, gateway_payment_id = \$2, gateway_signature = \$3,
		    settled_at = \$4, updated_at = \$4
		WHERE id = \$5 AND status = \$6
	`

	t.Run("FirstTransitionWins", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("PAID", "pay_123", "sig_123", pgxmock.AnyArg(), "order_1", "CREATED").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkPaid(ctx, "order_1", "pay_123", "sig_123")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ZeroRowsMeansAlreadyProcessed", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("PAID", "pay_123", "sig_123", pgxmock.AnyArg(), "order_1", "CREATED").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkPaid(ctx, "order_1", "pay_123", "sig_123")
		assert.ErrorIs(t, err, order.ErrNoTransition{OrderID: "order_1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		dbErr := errors.New("db down")
		mock.ExpectExec(query).
			WithArgs("PAID", "pay_123", "sig_123", pgxmock.AnyArg(), "order_1", "CREATED").
			WillReturnError(dbErr)

		err := repo.MarkPaid(ctx, "order_1", "pay_123", "sig_123")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OrderRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE payment_orders
		SET status = \$1, settled_at = \$2, updated_at = \$2
		WHERE id = \$3 AND status = \$4
	`

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("FAILED", pgxmock.AnyArg(), "order_2", "CREATED").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.MarkFailed(ctx, "order_2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyTerminal", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("FAILED", pgxmock.AnyArg(), "order_2", "CREATED").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.MarkFailed(ctx, "order_2"), order.ErrNoTransition{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_MarkCredited(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OrderRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE payment_orders
		SET ledger_credited = TRUE, updated_at = \$1
		WHERE id = \$2 AND status = \$3 AND ledger_credited = FALSE
	`

	t.Run("FirstCreditWins", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), "order_3", "PAID").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.MarkCredited(ctx, "order_3"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SecondCreditIsNoOp", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), "order_3", "PAID").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.MarkCredited(ctx, "order_3"), order.ErrNoTransition{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OrderRepository{querier: mock, logger: newTestLogger()}

	studentID := uuid.New()
	o := &order.PaymentOrder{
		ID:        "order_new",
		Status:    order.StatusCreated,
		Currency:  "INR",
		Receipt:   "rcpt-9",
		StudentID: &studentID,
		Customer:  order.Customer{Name: "Asha Verma", Email: "asha@example.com", Phone: "+919999999999"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO payment_orders`).
		WithArgs(o.ID, "CREATED", o.Amount.String(), "INR", o.Receipt, o.StudentID,
			o.Customer.Name, o.Customer.Email, o.Customer.Phone,
			false, o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(ctx, o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OrderRepository{querier: mock, logger: newTestLogger()}

	now := time.Now()
	studentID := uuid.New()
	receipt := "rcpt-1"
	name := "Asha Verma"
	email := "asha@example.com"
	phone := "+919999999999"
	payID := "pay_9"
	sig := "sig_9"

	columns := []string{
		"id", "status", "amount", "currency", "receipt", "student_id",
		"customer_name", "customer_email", "customer_phone",
		"gateway_payment_id", "gateway_signature", "ledger_credited",
		"created_at", "updated_at", "settled_at",
	}

	t.Run("Found", func(t *testing.T) {
		rows := pgxmock.NewRows(columns).
			AddRow("order_1", "PAID", "1000.00", "INR", &receipt, &studentID,
				&name, &email, &phone, &payID, &sig, true, now, now, &now)

		mock.ExpectQuery(`SELECT(.|\n)*FROM payment_orders`).
			WithArgs("order_1").
			WillReturnRows(rows)

		o, err := repo.GetByID(ctx, "order_1")
		require.NoError(t, err)

		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, "1000.00", o.Amount.StringFixed(2))
		assert.Equal(t, studentID, *o.StudentID)
		assert.Equal(t, "pay_9", o.GatewayPaymentID)
		assert.True(t, o.LedgerCredited)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT(.|\n)*FROM payment_orders`).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows(columns))

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, order.ErrOrderNotFound{OrderID: "missing"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
