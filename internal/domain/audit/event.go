// Package audit defines the append-only audit trail for financially
// significant actions. Writes are best-effort: a failed append is logged and
// never rolls back the operation it describes.
package audit

import (
	"context"
	"time"
)

// Action identifies the audited operation
type Action string

const (
	ActionOrderCreated      Action = "order.created"
	ActionPaymentCaptured   Action = "payment.captured"
	ActionPaymentFailed     Action = "payment.failed"
	ActionLedgerCorrected   Action = "ledger.corrected"
	ActionAccountEnrolled   Action = "account.enrolled"
)

// Event is one append-only audit record. Detail carries action-specific
// fields (amounts, actors, reasons) as loose key/value pairs.
type Event struct {
	Action        Action            `bson:"action" json:"action"`
	OrderID       string            `bson:"order_id,omitempty" json:"order_id,omitempty"`
	StudentID     string            `bson:"student_id,omitempty" json:"student_id,omitempty"`
	CorrelationID string            `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	Detail        map[string]string `bson:"detail,omitempty" json:"detail,omitempty"`
	RecordedAt    time.Time         `bson:"recorded_at" json:"recorded_at"`
}

// NewEvent creates an audit event stamped with the current time
func NewEvent(action Action) *Event {
	return &Event{
		Action:     action,
		Detail:     make(map[string]string),
		RecordedAt: time.Now(),
	}
}

// Recorder appends audit events to durable storage
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}
