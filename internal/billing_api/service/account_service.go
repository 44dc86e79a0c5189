package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/audit"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	converter   *money.Converter
	auditLog    AuditLog
	logger      *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository, converter *money.Converter, auditLog AuditLog, logger *slog.Logger) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		converter:   converter,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// Enroll creates the student's ledger account. The EUR-equivalent and the
// rate used are captured here, once, and never recomputed.
func (s *AccountServiceImpl) Enroll(ctx context.Context, studentName string, currency money.Currency, originalPrice, discount decimal.Decimal) (*account.LedgerAccount, error) {
	acc, err := account.NewLedgerAccount(studentName, currency, originalPrice, discount, s.converter)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	if s.auditLog != nil {
		event := audit.NewEvent(audit.ActionAccountEnrolled)
		event.StudentID = acc.StudentID.String()
		event.Detail["final_price"] = acc.FinalPrice.StringFixed(2)
		event.Detail["currency"] = string(acc.Currency)
		event.Detail["exchange_rate_used"] = acc.ExchangeRateUsed.String()
		if err := s.auditLog.Record(ctx, event); err != nil {
			s.logger.Error("Failed to record enrollment audit event", "student_id", event.StudentID, "error", err)
		}
	}

	return acc, nil
}

// GetAccount retrieves an account by student id
func (s *AccountServiceImpl) GetAccount(ctx context.Context, studentID uuid.UUID) (*account.LedgerAccount, error) {
	return s.accountRepo.GetByStudentID(ctx, studentID)
}

// ApplyCorrection adjusts the paid-to-date figure by delta under optimistic
// locking and writes the audit record that makes the adjustment defensible.
// This is the only path by which recorded payments can be reduced.
func (s *AccountServiceImpl) ApplyCorrection(ctx context.Context, studentID uuid.UUID, delta decimal.Decimal, reason, actor string) (*account.LedgerAccount, error) {
	acc, err := s.accountRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	before := acc.TotalPaid
	if err := acc.ApplyCorrection(delta); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return nil, err
	}

	if s.auditLog != nil {
		event := audit.NewEvent(audit.ActionLedgerCorrected)
		event.StudentID = studentID.String()
		event.Detail["delta"] = delta.StringFixed(2)
		event.Detail["total_paid_before"] = before.StringFixed(2)
		event.Detail["total_paid_after"] = acc.TotalPaid.StringFixed(2)
		event.Detail["reason"] = reason
		event.Detail["actor"] = actor
		if err := s.auditLog.Record(ctx, event); err != nil {
			s.logger.Error("Failed to record correction audit event", "student_id", event.StudentID, "error", err)
		}
	}

	return acc, nil
}

// AuditTrail returns the student's audit events, newest first
func (s *AccountServiceImpl) AuditTrail(ctx context.Context, studentID uuid.UUID, page, perPage int) ([]*audit.Event, error) {
	offset := (page - 1) * perPage
	return s.auditLog.ListByStudent(ctx, studentID.String(), perPage, offset)
}
