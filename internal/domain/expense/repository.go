package expense

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages expense entry persistence
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListOneTimeInRange returns one-time entries dated within [start, end]
	ListOneTimeInRange(ctx context.Context, start, end time.Time) ([]*Entry, error)

	// ListActiveRecurring returns recurring entries still contributing to
	// proration
	ListActiveRecurring(ctx context.Context) ([]*Entry, error)

	// Deactivate stops a recurring entry from future proration, keeping the
	// row for history
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ErrEntryNotFound indicates missing expense entry
type ErrEntryNotFound struct {
	ID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "expense entry not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
