// Package mongo stores the append-only audit trail. MongoDB suits this
// collection: events are schema-light, write-heavy, and never updated.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/schoolhub-billing-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit collection in MongoDB
	AuditCollectionName = "audit_events"
)

// AuditRepository implements the audit.Recorder interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends an audit event. Events are never updated or deleted.
func (r *AuditRepository) Record(ctx context.Context, event *audit.Event) error {
	collection := r.db.Collection(AuditCollectionName)

	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, event)
	if err != nil {
		r.logger.Error("Failed to record audit event",
			"action", string(event.Action),
			"order_id", event.OrderID,
			"error", err)
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// ListByStudent retrieves paginated audit events for a student, newest first
func (r *AuditRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*audit.Event, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"student_id": studentID}
	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit events",
			"student_id", studentID,
			"error", err)
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*audit.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode audit events",
			"student_id", studentID,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}

	return events, nil
}
