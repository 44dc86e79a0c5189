// Package producers publishes billing events to Kafka. The notification
// stream feeds downstream consumers (receipts, parent messaging); the engine
// never consumes its own events.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/schoolhub-billing-ledger/internal/config"
)

// PaymentNotification is the event payload published after a ledger credit
// commits. Amounts travel as strings so consumers never touch floats.
type PaymentNotification struct {
	OrderID          string    `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	StudentID        string    `json:"student_id,omitempty"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	PaymentStatus    string    `json:"payment_status,omitempty"`
	Balance          string    `json:"balance,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NotificationProducer writes payment notifications to the notification topic
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewNotificationProducer creates the producer and ensures the topic exists
func NewNotificationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for notification producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.NotificationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Notifications are best-effort; never block the credit path
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write notification messages asynchronously", "topic", cfg.NotificationTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Wrote notification messages asynchronously", "topic", cfg.NotificationTopic, "count", len(messages))
			}
		},
	}

	return &NotificationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.NotificationTopic,
	}, nil
}

// Publish writes one notification keyed by the order id so all events for an
// order land on the same partition
func (p *NotificationProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish notification",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish notification to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published notification", "topic", p.topic, "key", key)
	return nil
}

func (p *NotificationProducer) Close() error {
	p.logger.Info("Closing notification Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
