package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
	"github.com/schoolhub-billing-ledger/internal/platform/persistence"
)

// OrderRepository implements the order.Repository interface for PostgreSQL.
// The MarkPaid/MarkFailed conditional updates are the engine's idempotency
// guard: a single UPDATE filtered on the current status, never a
// read-then-write pair.
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL payment order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const orderColumns = `
	id, status, amount::text, currency, receipt, student_id,
	customer_name, customer_email, customer_phone,
	gateway_payment_id, gateway_signature, ledger_credited,
	created_at, updated_at, settled_at
`

// Create stores a new payment order in CREATED status, keyed by the
// gateway-assigned id
func (r *OrderRepository) Create(ctx context.Context, o *order.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (
			id, status, amount, currency, receipt, student_id,
			customer_name, customer_email, customer_phone,
			ledger_credited, created_at, updated_at
		)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		o.ID,
		string(o.Status),
		o.Amount.String(),
		string(o.Currency),
		o.Receipt,
		o.StudentID,
		o.Customer.Name,
		o.Customer.Email,
		o.Customer.Phone,
		o.LedgerCredited,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return order.ErrDuplicateOrder{OrderID: o.ID}
		}
		r.logger.Error("Failed to create payment order", "order_id", o.ID, "error", err)
		return fmt.Errorf("failed to create payment order: %w", err)
	}

	return nil
}

// GetByID retrieves a payment order by its gateway-assigned id
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.PaymentOrder, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM payment_orders
		WHERE id = $1
	`

	o, err := r.scanOrder(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderID: id}
		}
		r.logger.Error("Failed to get payment order", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}

	return o, nil
}

// MarkPaid atomically transitions an order from CREATED to PAID, recording
// the gateway payment id and signature in the same write. Zero affected rows
// means the order already left CREATED; the caller decides what that means.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, gatewayPaymentID, gatewaySignature string) error {
	query := `
		UPDATE payment_orders
		SET status = $1, gateway_payment_id = $2, gateway_signature = $3,
		    settled_at = $4, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.querier.Exec(ctx, query,
		string(order.StatusPaid),
		gatewayPaymentID,
		gatewaySignature,
		time.Now(),
		id,
		string(order.StatusCreated),
	)
	if err != nil {
		r.logger.Error("Failed to mark payment order paid", "order_id", id, "error", err)
		return fmt.Errorf("failed to mark payment order paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrNoTransition{OrderID: id}
	}

	return nil
}

// MarkFailed atomically transitions an order from CREATED to FAILED
func (r *OrderRepository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE payment_orders
		SET status = $1, settled_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query,
		string(order.StatusFailed),
		time.Now(),
		id,
		string(order.StatusCreated),
	)
	if err != nil {
		r.logger.Error("Failed to mark payment order failed", "order_id", id, "error", err)
		return fmt.Errorf("failed to mark payment order failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrNoTransition{OrderID: id}
	}

	return nil
}

// MarkCredited flips the ledger-credited flag, guarded so the flip applies
// at most once. Run inside the same transaction as the ledger credit.
func (r *OrderRepository) MarkCredited(ctx context.Context, id string) error {
	query := `
		UPDATE payment_orders
		SET ledger_credited = TRUE, updated_at = $1
		WHERE id = $2 AND status = $3 AND ledger_credited = FALSE
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id, string(order.StatusPaid))
	if err != nil {
		r.logger.Error("Failed to mark payment order credited", "order_id", id, "error", err)
		return fmt.Errorf("failed to mark payment order credited: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrNoTransition{OrderID: id}
	}

	return nil
}

// ListPaidUncredited returns settled orders whose ledger credit has not
// committed, oldest first. The settlement worker recovers these.
func (r *OrderRepository) ListPaidUncredited(ctx context.Context, limit int) ([]*order.PaymentOrder, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM payment_orders
		WHERE status = $1 AND ledger_credited = FALSE
		ORDER BY settled_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, string(order.StatusPaid), limit)
	if err != nil {
		r.logger.Error("Failed to list uncredited payment orders", "error", err)
		return nil, fmt.Errorf("failed to list uncredited payment orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.PaymentOrder
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment order", "error", err)
			return nil, fmt.Errorf("failed to scan payment order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payment orders", "error", err)
		return nil, fmt.Errorf("error iterating over payment orders: %w", err)
	}

	return orders, nil
}

// scanOrder maps one row onto the domain type
func (r *OrderRepository) scanOrder(row pgx.Row) (*order.PaymentOrder, error) {
	var (
		o              order.PaymentOrder
		status         string
		amount         string
		currency       string
		receipt        *string
		name           *string
		email          *string
		phone          *string
		paymentID      *string
		signature      *string
	)

	err := row.Scan(
		&o.ID,
		&status,
		&amount,
		&currency,
		&receipt,
		&o.StudentID,
		&name,
		&email,
		&phone,
		&paymentID,
		&signature,
		&o.LedgerCredited,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric column value %q: %w", amount, err)
	}

	o.Status = order.Status(status)
	o.Amount = d
	o.Currency = money.Currency(currency)
	if receipt != nil {
		o.Receipt = *receipt
	}
	if name != nil {
		o.Customer.Name = *name
	}
	if email != nil {
		o.Customer.Email = *email
	}
	if phone != nil {
		o.Customer.Phone = *phone
	}
	if paymentID != nil {
		o.GatewayPaymentID = *paymentID
	}
	if signature != nil {
		o.GatewaySignature = *signature
	}

	return &o, nil
}
