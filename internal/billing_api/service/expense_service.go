package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/expense"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

// ExpenseServiceImpl implements the ExpenseService interface
type ExpenseServiceImpl struct {
	expenseRepo  expense.Repository
	converter    *money.Converter
	baseCurrency money.Currency
	logger       *slog.Logger
}

// NewExpenseService creates a new expense service
func NewExpenseService(expenseRepo expense.Repository, converter *money.Converter, baseCurrency money.Currency, logger *slog.Logger) ExpenseService {
	return &ExpenseServiceImpl{
		expenseRepo:  expenseRepo,
		converter:    converter,
		baseCurrency: baseCurrency,
		logger:       logger,
	}
}

// RecordExpense validates and stores an expense entry
func (s *ExpenseServiceImpl) RecordExpense(ctx context.Context, category string, entryType expense.Type, amount decimal.Decimal, currency money.Currency, date time.Time, notes string) (*expense.Entry, error) {
	entry, err := expense.NewEntry(category, entryType, amount, currency, date, notes)
	if err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// DeactivateExpense stops a recurring entry from future proration
func (s *ExpenseServiceImpl) DeactivateExpense(ctx context.Context, id uuid.UUID) error {
	return s.expenseRepo.Deactivate(ctx, id)
}

// Summarize aggregates expenses over [start, end]. One-time entries dated in
// the window count at face value; every active recurring entry contributes
// its monthly amount prorated by days/30, regardless of when it was recorded.
func (s *ExpenseServiceImpl) Summarize(ctx context.Context, start, end time.Time) (*expense.Summary, error) {
	oneTime, err := s.expenseRepo.ListOneTimeInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	recurring, err := s.expenseRepo.ListActiveRecurring(ctx)
	if err != nil {
		return nil, err
	}

	days := expense.PeriodDays(start, end)

	summary := &expense.Summary{
		PeriodStart: start,
		PeriodEnd:   end,
		Currency:    s.baseCurrency,
		Total:       decimal.Zero,
		Recurring:   decimal.Zero,
		OneTime:     decimal.Zero,
		ByCategory:  make(map[string]decimal.Decimal),
	}

	for _, entry := range oneTime {
		amount, err := s.converter.Convert(entry.Amount, entry.Currency, s.baseCurrency)
		if err != nil {
			return nil, err
		}
		summary.OneTime = money.Round(summary.OneTime.Add(amount))
		summary.ByCategory[entry.Category] = money.Round(summary.ByCategory[entry.Category].Add(amount))
	}

	for _, entry := range recurring {
		monthly, err := s.converter.Convert(entry.Amount, entry.Currency, s.baseCurrency)
		if err != nil {
			return nil, err
		}
		prorated := expense.Prorate(monthly, days)
		summary.Recurring = money.Round(summary.Recurring.Add(prorated))
		summary.ByCategory[entry.Category] = money.Round(summary.ByCategory[entry.Category].Add(prorated))
	}

	summary.Total = money.Round(summary.OneTime.Add(summary.Recurring))

	return summary, nil
}
