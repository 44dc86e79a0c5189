package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/expense"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/platform/persistence"
)

// ExpenseRepository implements the expense.Repository interface for PostgreSQL
type ExpenseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewExpenseRepository creates a new PostgreSQL expense repository
func NewExpenseRepository(logger *slog.Logger, db *persistence.PostgresDB) expense.Repository {
	return &ExpenseRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const expenseColumns = `
	id, category, type, amount::text, currency, entry_date, is_active, notes,
	created_at, updated_at
`

// Create stores a new expense entry
func (r *ExpenseRepository) Create(ctx context.Context, entry *expense.Entry) error {
	query := `
		INSERT INTO expense_entries (
			id, category, type, amount, currency, entry_date, is_active, notes,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.Category,
		string(entry.Type),
		entry.Amount.String(),
		string(entry.Currency),
		entry.Date,
		entry.IsActive,
		entry.Notes,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense entry", "error", err)
		return fmt.Errorf("failed to create expense entry: %w", err)
	}

	return nil
}

// GetByID retrieves an expense entry by its ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Entry, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_entries
		WHERE id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, expense.ErrEntryNotFound{ID: id}
		}
		r.logger.Error("Failed to get expense entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get expense entry: %w", err)
	}

	return entry, nil
}

// ListOneTimeInRange returns one-time entries dated within [start, end]
func (r *ExpenseRepository) ListOneTimeInRange(ctx context.Context, start, end time.Time) ([]*expense.Entry, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_entries
		WHERE type = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date ASC
	`

	rows, err := r.querier.Query(ctx, query, string(expense.TypeOneTime), start, end)
	if err != nil {
		r.logger.Error("Failed to list one-time expenses", "error", err)
		return nil, fmt.Errorf("failed to list one-time expenses: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// ListActiveRecurring returns recurring entries still contributing to
// proration
func (r *ExpenseRepository) ListActiveRecurring(ctx context.Context) ([]*expense.Entry, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expense_entries
		WHERE type = $1 AND is_active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, string(expense.TypeRecurring))
	if err != nil {
		r.logger.Error("Failed to list active recurring expenses", "error", err)
		return nil, fmt.Errorf("failed to list active recurring expenses: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// Deactivate stops a recurring entry from future proration
func (r *ExpenseRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE expense_entries
		SET is_active = FALSE, updated_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to deactivate expense entry", "id", id.String(), "error", err)
		return fmt.Errorf("failed to deactivate expense entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return expense.ErrEntryNotFound{ID: id}
	}

	return nil
}

func (r *ExpenseRepository) collectEntries(rows pgx.Rows) ([]*expense.Entry, error) {
	var entries []*expense.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan expense entry", "error", err)
			return nil, fmt.Errorf("failed to scan expense entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over expense entries", "error", err)
		return nil, fmt.Errorf("error iterating over expense entries: %w", err)
	}

	return entries, nil
}

func (r *ExpenseRepository) scanEntry(row pgx.Row) (*expense.Entry, error) {
	var (
		entry     expense.Entry
		entryType string
		amount    string
		currency  string
	)

	err := row.Scan(
		&entry.ID,
		&entry.Category,
		&entryType,
		&amount,
		&currency,
		&entry.Date,
		&entry.IsActive,
		&entry.Notes,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric column value %q: %w", amount, err)
	}

	entry.Type = expense.Type(entryType)
	entry.Amount = d
	entry.Currency = money.Currency(currency)

	return &entry, nil
}
