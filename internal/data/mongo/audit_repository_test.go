package mongo

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolhub-billing-ledger/internal/domain/audit"
)

func TestNewAuditRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewAuditRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &AuditRepository{}, repo)
}

func TestAuditEvent_RecordedAtStamping(t *testing.T) {
	// Record() stamps RecordedAt only when the caller left it zero
	event := audit.NewEvent(audit.ActionLedgerCorrected)
	assert.False(t, event.RecordedAt.IsZero(), "NewEvent should stamp RecordedAt")

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event.RecordedAt = fixed
	assert.Equal(t, fixed, event.RecordedAt, "explicit timestamps must survive")
}
