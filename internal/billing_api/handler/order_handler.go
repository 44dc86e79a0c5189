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
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// OrderHandler handles HTTP requests for payment order intake
type OrderHandler struct {
	orderService service.OrderService
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(logger *slog.Logger, orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// Create mints a payment order at the gateway and stores it locally
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
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

	input := &service.CreateOrderInput{
		Amount:   amount,
		Currency: currency,
		Receipt:  req.Receipt,
		Customer: order.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
	}

	if req.StudentID != "" {
		studentID, err := uuid.Parse(req.StudentID)
		if err != nil {
			RespondBadRequest(c, "Invalid student ID")
			return
		}
		input.StudentID = &studentID
	}

	checkout, err := h.orderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidAmount), errors.Is(err, order.ErrAmountExceedsMax):
			RespondBadRequest(c, err.Error())
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Student account not found")
		case errors.Is(err, order.ErrGatewayUnavailable):
			h.logger.Warn("Gateway unavailable during order intake", "error", err)
			RespondServiceUnavailable(c, "Payment gateway is unavailable, try again later")
		default:
			h.logger.Error("Failed to create payment order", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapOrderToResponse(checkout.Order, checkout.GatewayKeyID))
}

// GetByID retrieves a payment order by its gateway-assigned id
func (h *OrderHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		RespondBadRequest(c, "Order ID is required")
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		var notFound order.ErrOrderNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Order not found")
			return
		}
		h.logger.Error("Failed to get payment order", "order_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapOrderToResponse(o, ""))
}
