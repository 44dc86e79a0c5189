// Package settlement turns captured payments into ledger credits. Marking an
// order PAID and crediting the student's account are separate writes; this
// package owns the second one and makes it safe to repeat.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/audit"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
	"github.com/schoolhub-billing-ledger/internal/platform/messaging/producers"
)

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Crediter applies the ledger credit for one PAID order. The credit and the
// ledger_credited flip commit in the same transaction, so either both happen
// or neither does; re-running on an already-credited order is a no-op.
type Crediter struct {
	txRunner    TxRunner
	orderRepo   order.Repository
	accountRepo account.Repository
	converter   *money.Converter
	notifier    producers.MessagePublisher
	dlq         producers.DeadLetterPublisher
	auditor     audit.Recorder
	logger      *slog.Logger
}

// NewCrediter creates a crediter. notifier, dlq, and auditor may be nil;
// those side channels are best-effort.
func NewCrediter(
	txRunner TxRunner,
	orderRepo order.Repository,
	accountRepo account.Repository,
	converter *money.Converter,
	notifier producers.MessagePublisher,
	dlq producers.DeadLetterPublisher,
	auditor audit.Recorder,
	logger *slog.Logger,
) *Crediter {
	return &Crediter{
		txRunner:    txRunner,
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		converter:   converter,
		notifier:    notifier,
		dlq:         dlq,
		auditor:     auditor,
		logger:      logger,
	}
}

// Credit applies o's amount to the linked student account and flips the
// order's credited flag atomically. Returns nil when another process already
// credited the order. Orders without a linked student are flagged credited
// without a ledger write so they stop appearing in recovery scans.
func (c *Crediter) Credit(ctx context.Context, o *order.PaymentOrder) error {
	var credited *account.LedgerAccount

	err := c.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		orderTx := c.orderRepo.WithTx(tx)
		if err := orderTx.MarkCredited(ctx, o.ID); err != nil {
			return err
		}

		if o.StudentID == nil {
			c.logger.Info("Order has no linked student, credited flag set without ledger write", "order_id", o.ID)
			return nil
		}

		accountTx := c.accountRepo.WithTx(tx)
		acc, err := accountTx.LockForUpdate(ctx, *o.StudentID)
		if err != nil {
			return err
		}

		amount, err := c.converter.Convert(o.Amount, o.Currency, acc.Currency)
		if err != nil {
			return fmt.Errorf("cannot convert order amount for credit: %w", err)
		}

		if err := acc.ApplyPayment(amount); err != nil {
			return err
		}
		if err := accountTx.Update(ctx, acc); err != nil {
			return err
		}

		credited = acc
		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrNoTransition{OrderID: o.ID}) {
			c.logger.Debug("Order already credited", "order_id", o.ID)
			return nil
		}
		return fmt.Errorf("failed to credit order %s: %w", o.ID, err)
	}

	c.notifyAndAudit(ctx, o, credited)
	return nil
}

// notifyAndAudit publishes the payment notification and audit event after the
// credit commits. Failures here are logged, dead-lettered when possible, and
// never unwind the credit.
func (c *Crediter) notifyAndAudit(ctx context.Context, o *order.PaymentOrder, acc *account.LedgerAccount) {
	notification := &producers.PaymentNotification{
		OrderID:          o.ID,
		GatewayPaymentID: o.GatewayPaymentID,
		Amount:           o.Amount.StringFixed(2),
		Currency:         string(o.Currency),
		OccurredAt:       o.UpdatedAt,
	}
	if acc != nil {
		notification.StudentID = acc.StudentID.String()
		notification.PaymentStatus = string(acc.PaymentStatus)
		notification.Balance = acc.Balance.StringFixed(2)
	}

	if c.notifier != nil {
		if err := c.notifier.Publish(ctx, o.ID, notification); err != nil {
			c.logger.Error("Failed to publish payment notification", "order_id", o.ID, "error", err)
			if c.dlq != nil {
				raw, _ := json.Marshal(notification)
				if dlqErr := c.dlq.PublishToDLQ(ctx, o.ID, raw, "notification_publish_failed"); dlqErr != nil {
					c.logger.Error("Failed to dead-letter payment notification", "order_id", o.ID, "error", dlqErr)
				}
			}
		}
	}

	if c.auditor != nil {
		event := audit.NewEvent(audit.ActionPaymentCaptured)
		event.OrderID = o.ID
		event.Detail["gateway_payment_id"] = o.GatewayPaymentID
		event.Detail["amount"] = o.Amount.StringFixed(2)
		event.Detail["currency"] = string(o.Currency)
		if acc != nil {
			event.StudentID = acc.StudentID.String()
			event.Detail["payment_status"] = string(acc.PaymentStatus)
		}
		if err := c.auditor.Record(ctx, event); err != nil {
			c.logger.Error("Failed to record payment audit event", "order_id", o.ID, "error", err)
		}
	}
}
