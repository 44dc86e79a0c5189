package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines ledger account persistence operations.
//
// Implementations must never write the EUREquivalent/ExchangeRateUsed
// snapshot after creation; Update deliberately excludes those columns.
type Repository interface {
	Create(ctx context.Context, acc *LedgerAccount) error
	GetByStudentID(ctx context.Context, studentID uuid.UUID) (*LedgerAccount, error)

	// Update persists the mutable ledger fields using optimistic locking
	Update(ctx context.Context, acc *LedgerAccount) error

	// LockForUpdate acquires a pessimistic lock for payment crediting
	LockForUpdate(ctx context.Context, studentID uuid.UUID) (*LedgerAccount, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	StudentID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for ledger account: " + e.StudentID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.StudentID == uuid.Nil {
		return true
	}
	return e.StudentID == t.StudentID
}

// ErrAccountNotFound indicates missing ledger account
type ErrAccountNotFound struct {
	StudentID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "ledger account not found: " + e.StudentID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.StudentID == uuid.Nil {
		return true
	}
	return e.StudentID == t.StudentID
}

// ErrDuplicateAccount indicates student uniqueness violation
type ErrDuplicateAccount struct {
	StudentID uuid.UUID
}

func (e ErrDuplicateAccount) Error() string {
	return "ledger account already exists for student: " + e.StudentID.String()
}
