// Package postgres provides PostgreSQL implementations of the domain
// repositories. Monetary columns are NUMERIC; values cross the driver
// boundary as strings so the decimal type controls all rounding.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL ledger account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `
	student_id, student_name, currency,
	original_price::text, discount_applied::text, final_price::text,
	total_paid::text, balance::text, payment_status,
	eur_equivalent::text, exchange_rate_used::text,
	version, created_at, updated_at
`

// Create stores a new ledger account. The EUR-equivalent snapshot and the
// rate it was computed with are written here and nowhere else.
func (r *AccountRepository) Create(ctx context.Context, acc *account.LedgerAccount) error {
	query := `
		INSERT INTO ledger_accounts (
			student_id, student_name, currency,
			original_price, discount_applied, final_price,
			total_paid, balance, payment_status,
			eur_equivalent, exchange_rate_used,
			version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10::numeric, $11::numeric, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.StudentID,
		acc.StudentName,
		string(acc.Currency),
		acc.OriginalPrice.String(),
		acc.DiscountApplied.String(),
		acc.FinalPrice.String(),
		acc.TotalPaid.String(),
		acc.Balance.String(),
		string(acc.PaymentStatus),
		acc.EUREquivalent.String(),
		acc.ExchangeRateUsed.String(),
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger account", "error", err)
		return fmt.Errorf("failed to create ledger account: %w", err)
	}

	return nil
}

// GetByStudentID retrieves a ledger account by its student ID
func (r *AccountRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) (*account.LedgerAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM ledger_accounts
		WHERE student_id = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{StudentID: studentID}
		}
		r.logger.Error("Failed to get ledger account", "student_id", studentID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}

	return acc, nil
}

// Update persists the mutable ledger fields using optimistic locking. The
// snapshot columns (eur_equivalent, exchange_rate_used) are deliberately
// absent from the statement: there is no code path that rewrites them.
func (r *AccountRepository) Update(ctx context.Context, acc *account.LedgerAccount) error {
	query := `
		UPDATE ledger_accounts
		SET total_paid = $1::numeric, balance = $2::numeric, payment_status = $3,
		    version = $4, updated_at = $5
		WHERE student_id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		acc.TotalPaid.String(),
		acc.Balance.String(),
		string(acc.PaymentStatus),
		acc.Version,
		acc.UpdatedAt,
		acc.StudentID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update ledger account", "student_id", acc.StudentID.String(), "error", err)
		return fmt.Errorf("failed to update ledger account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{StudentID: acc.StudentID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. This must be used within a transaction when crediting a
// captured payment.
func (r *AccountRepository) LockForUpdate(ctx context.Context, studentID uuid.UUID) (*account.LedgerAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM ledger_accounts
		WHERE student_id = $1
		FOR UPDATE
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{StudentID: studentID}
		}
		r.logger.Error("Failed to lock ledger account for update", "student_id", studentID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock ledger account for update: %w", err)
	}

	return acc, nil
}

// scanAccount maps one row onto the domain type, parsing NUMERIC text into
// decimals
func (r *AccountRepository) scanAccount(row pgx.Row) (*account.LedgerAccount, error) {
	var acc account.LedgerAccount
	var currency, status string
	var original, discount, final, paid, balance, eurEq, rate string

	err := row.Scan(
		&acc.StudentID,
		&acc.StudentName,
		&currency,
		&original,
		&discount,
		&final,
		&paid,
		&balance,
		&status,
		&eurEq,
		&rate,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acc.Currency = money.Currency(currency)
	acc.PaymentStatus = account.PaymentStatus(status)

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&acc.OriginalPrice, original},
		{&acc.DiscountApplied, discount},
		{&acc.FinalPrice, final},
		{&acc.TotalPaid, paid},
		{&acc.Balance, balance},
		{&acc.EUREquivalent, eurEq},
		{&acc.ExchangeRateUsed, rate},
	}
	for _, field := range fields {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric column value %q: %w", field.src, err)
		}
		*field.dst = d
	}

	return &acc, nil
}
