package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/audit"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// OrderServiceImpl implements the OrderService interface
type OrderServiceImpl struct {
	orderRepo      order.Repository
	accountRepo    account.Repository
	gatewayClient  GatewayClient
	auditor        audit.Recorder
	maxOrderAmount decimal.Decimal
	logger         *slog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo order.Repository,
	accountRepo account.Repository,
	gatewayClient GatewayClient,
	auditor audit.Recorder,
	maxOrderAmount decimal.Decimal,
	logger *slog.Logger,
) OrderService {
	return &OrderServiceImpl{
		orderRepo:      orderRepo,
		accountRepo:    accountRepo,
		gatewayClient:  gatewayClient,
		auditor:        auditor,
		maxOrderAmount: maxOrderAmount,
		logger:         logger,
	}
}

// CreateOrder validates the intake, mints the order at the gateway, and
// persists it in CREATED status keyed by the gateway-assigned id
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, input *CreateOrderInput) (*CheckoutOrder, error) {
	if err := order.ValidateAmount(input.Amount, s.maxOrderAmount); err != nil {
		return nil, err
	}

	// Round once at intake so the amount minted at the gateway and the
	// amount stored (and later credited) are the same value
	amount := money.Round(input.Amount)

	// A linked student must exist before money can be taken against them
	if input.StudentID != nil {
		if _, err := s.accountRepo.GetByStudentID(ctx, *input.StudentID); err != nil {
			return nil, err
		}
	}

	created, err := s.gatewayClient.CreateOrder(ctx, amount, input.Currency, input.Receipt)
	if err != nil {
		return nil, err
	}

	o, err := order.NewPaymentOrder(created.ID, amount, input.Currency, input.Receipt, input.StudentID, input.Customer)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, o); err != nil {
		var dup order.ErrDuplicateOrder
		if errors.As(err, &dup) {
			// Gateway handed out an id we already stored; treat the stored
			// row as authoritative
			existing, getErr := s.orderRepo.GetByID(ctx, o.ID)
			if getErr == nil {
				return &CheckoutOrder{Order: existing, GatewayKeyID: s.gatewayClient.KeyID()}, nil
			}
		}
		return nil, err
	}

	s.recordOrderCreated(ctx, o)

	return &CheckoutOrder{Order: o, GatewayKeyID: s.gatewayClient.KeyID()}, nil
}

// GetOrder retrieves an order by its gateway-assigned id
func (s *OrderServiceImpl) GetOrder(ctx context.Context, id string) (*order.PaymentOrder, error) {
	return s.orderRepo.GetByID(ctx, id)
}

func (s *OrderServiceImpl) recordOrderCreated(ctx context.Context, o *order.PaymentOrder) {
	if s.auditor == nil {
		return
	}

	event := audit.NewEvent(audit.ActionOrderCreated)
	event.OrderID = o.ID
	event.Detail["amount"] = o.Amount.StringFixed(2)
	event.Detail["currency"] = string(o.Currency)
	if o.StudentID != nil {
		event.StudentID = o.StudentID.String()
	}
	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record order audit event", "order_id", o.ID, "error", err)
	}
}
