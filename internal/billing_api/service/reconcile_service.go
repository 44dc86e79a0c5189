package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schoolhub-billing-ledger/internal/domain/audit"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
	"github.com/schoolhub-billing-ledger/internal/settlement"
)

// ReconcileServiceImpl implements the ReconcileService interface. Both
// confirmation paths converge on the repository's conditional status update:
// whichever delivery arrives first wins the transition, every other delivery
// sees zero rows affected and acknowledges without side effects.
type ReconcileServiceImpl struct {
	orderRepo     order.Repository
	gatewayClient GatewayClient
	crediter      *settlement.Crediter
	auditor       audit.Recorder
	logger        *slog.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	orderRepo order.Repository,
	gatewayClient GatewayClient,
	crediter *settlement.Crediter,
	auditor audit.Recorder,
	logger *slog.Logger,
) ReconcileService {
	return &ReconcileServiceImpl{
		orderRepo:     orderRepo,
		gatewayClient: gatewayClient,
		crediter:      crediter,
		auditor:       auditor,
		logger:        logger,
	}
}

// ConfirmCallback settles an order confirmed through the synchronous browser
// callback. The signature covers orderID|paymentID and must verify before any
// state is touched.
func (s *ReconcileServiceImpl) ConfirmCallback(ctx context.Context, orderID, paymentID, signature string) (*ReconcileResult, error) {
	if !s.gatewayClient.VerifyCallback(orderID, paymentID, signature) {
		s.logger.Warn("Callback signature verification failed", "order_id", orderID)
		return nil, order.ErrSignatureInvalid
	}

	return s.settle(ctx, orderID, paymentID, signature)
}

// webhookEvent is the gateway's asynchronous notification body
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			ID      string `json:"id"`
			OrderID string `json:"order_id"`
		} `json:"payment"`
	} `json:"payload"`
}

// ProcessWebhook settles or fails an order from an asynchronous gateway
// event. Signature verification runs over the raw body before parsing;
// events other than captured/failed are acknowledged and ignored.
func (s *ReconcileServiceImpl) ProcessWebhook(ctx context.Context, body []byte, signature string) (WebhookOutcome, error) {
	if !s.gatewayClient.VerifyWebhook(body, signature) {
		s.logger.Warn("Webhook signature verification failed")
		return "", order.ErrSignatureInvalid
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return "", fmt.Errorf("malformed webhook body: %w", err)
	}

	switch event.Event {
	case "payment.captured":
		result, err := s.settle(ctx, event.Payload.Payment.OrderID, event.Payload.Payment.ID, signature)
		if err != nil {
			if errors.Is(err, order.ErrAlreadyProcessed) {
				// Captured after a FAILED verdict; the first verdict stands
				return WebhookAlreadyProcessed, nil
			}
			var notFound order.ErrOrderNotFound
			if errors.As(err, &notFound) {
				// Acknowledge so the gateway stops retrying an order we will
				// never know about
				s.logger.Warn("Webhook references unknown order", "order_id", event.Payload.Payment.OrderID)
				return WebhookIgnored, nil
			}
			return "", err
		}
		if result.AlreadyProcessed {
			return WebhookAlreadyProcessed, nil
		}
		return WebhookProcessed, nil

	case "payment.failed":
		if err := s.orderRepo.MarkFailed(ctx, event.Payload.Payment.OrderID); err != nil {
			if errors.Is(err, order.ErrNoTransition{OrderID: event.Payload.Payment.OrderID}) {
				return WebhookAlreadyProcessed, nil
			}
			var notFound order.ErrOrderNotFound
			if errors.As(err, &notFound) {
				s.logger.Warn("Webhook references unknown order", "order_id", event.Payload.Payment.OrderID)
				return WebhookIgnored, nil
			}
			return "", err
		}
		s.recordFailure(ctx, event.Payload.Payment.OrderID)
		return WebhookProcessed, nil

	default:
		s.logger.Debug("Ignoring webhook event", "event", event.Event)
		return WebhookIgnored, nil
	}
}

// settle performs the CREATED -> PAID transition and the follow-up ledger
// credit. The transition is the idempotency gate; the credit is recoverable
// by the settlement worker if this process dies in between.
func (s *ReconcileServiceImpl) settle(ctx context.Context, orderID, paymentID, signature string) (*ReconcileResult, error) {
	err := s.orderRepo.MarkPaid(ctx, orderID, paymentID, signature)
	if err != nil {
		if errors.Is(err, order.ErrNoTransition{OrderID: orderID}) {
			existing, getErr := s.orderRepo.GetByID(ctx, orderID)
			if getErr != nil {
				return nil, getErr
			}
			if existing.Status == order.StatusFailed {
				// A captured confirmation for an order that already failed is
				// a genuine conflict, not a duplicate
				return nil, fmt.Errorf("%w: order %s is FAILED", order.ErrAlreadyProcessed, orderID)
			}
			s.logger.Info("Duplicate payment confirmation acknowledged", "order_id", orderID)
			return &ReconcileResult{Order: existing, AlreadyProcessed: true}, nil
		}
		return nil, err
	}

	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Credit inline on the winning delivery; the settlement worker replays
	// this if we crash before it commits
	if err := s.crediter.Credit(ctx, o); err != nil {
		s.logger.Error("Ledger credit failed, leaving order for settlement recovery", "order_id", orderID, "error", err)
	}

	return &ReconcileResult{Order: o}, nil
}

func (s *ReconcileServiceImpl) recordFailure(ctx context.Context, orderID string) {
	if s.auditor == nil {
		return
	}

	event := audit.NewEvent(audit.ActionPaymentFailed)
	event.OrderID = orderID
	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record payment failure audit event", "order_id", orderID, "error", err)
	}
}
