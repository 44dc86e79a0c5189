package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

// AccountHandler handles HTTP requests for student ledger accounts
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Enroll creates a ledger account for a newly enrolled student
func (h *AccountHandler) Enroll(c *gin.Context) {
	var req EnrollAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	currency, err := money.ParseCurrency(req.Currency)
	if err != nil {
		RespondBadRequest(c, "Unsupported currency")
		return
	}

	originalPrice, err := decimal.NewFromString(req.OriginalPrice)
	if err != nil {
		RespondBadRequest(c, "Invalid original price")
		return
	}

	discount := decimal.Zero
	if req.Discount != "" {
		discount, err = decimal.NewFromString(req.Discount)
		if err != nil {
			RespondBadRequest(c, "Invalid discount")
			return
		}
	}

	acc, err := h.accountService.Enroll(c.Request.Context(), req.StudentName, currency, originalPrice, discount)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidAmount),
			errors.Is(err, account.ErrNegativeDiscount),
			errors.Is(err, account.ErrDiscountExceeds),
			errors.Is(err, account.ErrEmptyStudentName):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to enroll account", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves a ledger account by student id
func (h *AccountHandler) GetByID(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid student ID")
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), studentID)
	if err != nil {
		var notFound account.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "student_id", studentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// ApplyCorrection applies an audited administrative adjustment to the ledger
func (h *AccountHandler) ApplyCorrection(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid student ID")
		return
	}

	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	delta, err := decimal.NewFromString(req.Delta)
	if err != nil {
		RespondBadRequest(c, "Invalid delta")
		return
	}

	acc, err := h.accountService.ApplyCorrection(c.Request.Context(), studentID, delta, req.Reason, req.Actor)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, "Correction delta cannot be zero")
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, account.ErrConcurrentModification{}):
			RespondConflict(c, "Account was modified concurrently, retry the correction")
		default:
			h.logger.Error("Failed to apply correction", "student_id", studentID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// AuditTrail returns the account's audit events, newest first
func (h *AccountHandler) AuditTrail(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid student ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	events, err := h.accountService.AuditTrail(c.Request.Context(), studentID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list audit trail", "student_id", studentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, 200, events, params.Page, params.PerPage)
}
