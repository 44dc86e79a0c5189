package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/domain/expense"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

const dateLayout = "2006-01-02"

// ExpenseHandler handles HTTP requests for operating expenses
type ExpenseHandler struct {
	expenseService service.ExpenseService
	logger         *slog.Logger
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(logger *slog.Logger, expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

// Create records an operating expense entry
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entryType, err := expense.ParseType(req.Type)
	if err != nil {
		RespondBadRequest(c, "Invalid expense type")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		RespondBadRequest(c, "Unsupported currency")
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := h.expenseService.RecordExpense(c.Request.Context(), req.Category, entryType, amount, currency, date, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, expense.ErrInvalidAmount), errors.Is(err, expense.ErrEmptyCategory):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to record expense", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapExpenseToResponse(entry))
}

// Deactivate stops a recurring expense from future proration. The entry and
// its contribution to past summaries are kept.
func (h *ExpenseHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid expense id")
		return
	}

	if err := h.expenseService.DeactivateExpense(c.Request.Context(), id); err != nil {
		if errors.Is(err, expense.ErrEntryNotFound{}) {
			RespondNotFound(c, "Expense entry not found")
			return
		}
		h.logger.Error("Failed to deactivate expense", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"id": id.String(), "is_active": false})
}

// Summary aggregates expenses over a reporting window. When the window is
// not given it defaults to the current calendar month.
func (h *ExpenseHandler) Summary(c *gin.Context) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var err error
	if startParam := c.Query("start_date"); startParam != "" {
		start, err = time.Parse(dateLayout, startParam)
		if err != nil {
			RespondBadRequest(c, "Invalid start_date, expected YYYY-MM-DD")
			return
		}
	}
	if endParam := c.Query("end_date"); endParam != "" {
		end, err = time.Parse(dateLayout, endParam)
		if err != nil {
			RespondBadRequest(c, "Invalid end_date, expected YYYY-MM-DD")
			return
		}
	}
	if end.Before(start) {
		RespondBadRequest(c, "end_date must not precede start_date")
		return
	}

	summary, err := h.expenseService.Summarize(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("Failed to summarize expenses", "error", err)
		RespondInternalError(c)
		return
	}

	resp := ExpenseSummaryResponse{
		PeriodStart: summary.PeriodStart.Format(dateLayout),
		PeriodEnd:   summary.PeriodEnd.Format(dateLayout),
		Currency:    string(summary.Currency),
		Total:       summary.Total.StringFixed(2),
		Recurring:   summary.Recurring.StringFixed(2),
		OneTime:     summary.OneTime.StringFixed(2),
		ByCategory:  make(map[string]string, len(summary.ByCategory)),
	}
	for category, amount := range summary.ByCategory {
		resp.ByCategory[category] = amount.StringFixed(2)
	}

	RespondOK(c, resp)
}
