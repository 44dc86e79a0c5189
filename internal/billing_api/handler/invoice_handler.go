package handler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// InvoiceHandler handles HTTP requests for invoice assembly
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(logger *slog.Logger, invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// Generate assembles the invoice for a student. An optional payment_id query
// parameter pins the payable-now figure to one settled order.
func (h *InvoiceHandler) Generate(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		RespondBadRequest(c, "Invalid student ID")
		return
	}

	orderID := c.Query("payment_id")

	inv, err := h.invoiceService.GenerateInvoice(c.Request.Context(), studentID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, order.ErrOrderNotFound{}):
			RespondNotFound(c, "Order not found")
		case strings.Contains(err.Error(), "does not belong"), strings.Contains(err.Error(), "not settled"):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to generate invoice", "student_id", studentID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, inv)
}
