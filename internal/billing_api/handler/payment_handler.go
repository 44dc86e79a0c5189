package handler

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// WebhookSignatureHeader carries the gateway's HMAC over the raw body
const WebhookSignatureHeader = "X-Signature"

// maxWebhookBody caps webhook reads; gateway events are small
const maxWebhookBody = 1 << 20

// PaymentHandler handles both payment confirmation paths
type PaymentHandler struct {
	reconcileService service.ReconcileService
	logger           *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, reconcileService service.ReconcileService) *PaymentHandler {
	return &PaymentHandler{
		reconcileService: reconcileService,
		logger:           logger,
	}
}

// Verify handles the synchronous callback the client posts after checkout.
// Duplicates acknowledge with the prior result instead of failing.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reconcileService.ConfirmCallback(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrSignatureInvalid):
			RespondUnauthorized(c, "Payment signature verification failed")
		case errors.Is(err, order.ErrAlreadyProcessed):
			RespondConflict(c, "Order was already settled with a different outcome")
		default:
			var notFound order.ErrOrderNotFound
			if errors.As(err, &notFound) {
				RespondNotFound(c, "Order not found")
				return
			}
			h.logger.Error("Payment verification failed", "order_id", req.OrderID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, VerifyPaymentResponse{
		OrderID:          result.Order.ID,
		Status:           string(result.Order.Status),
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

// Webhook handles asynchronous gateway events. The raw body is read before
// binding because the signature covers the exact bytes on the wire. After the
// signature verifies, every disposition acknowledges with 200 so the gateway
// stops redelivering.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondBadRequest(c, "Unable to read webhook body")
		return
	}

	signature := c.GetHeader(WebhookSignatureHeader)
	outcome, err := h.reconcileService.ProcessWebhook(c.Request.Context(), body, signature)
	if err != nil {
		if errors.Is(err, order.ErrSignatureInvalid) {
			RespondUnauthorized(c, "Webhook signature verification failed")
			return
		}
		h.logger.Error("Webhook processing failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, WebhookResponse{Outcome: string(outcome)})
}
