package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/invoice"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// InvoiceServiceImpl implements the InvoiceService interface
type InvoiceServiceImpl struct {
	accountRepo account.Repository
	orderRepo   order.Repository
	assembler   *invoice.Assembler
	logger      *slog.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(accountRepo account.Repository, orderRepo order.Repository, assembler *invoice.Assembler, logger *slog.Logger) InvoiceService {
	return &InvoiceServiceImpl{
		accountRepo: accountRepo,
		orderRepo:   orderRepo,
		assembler:   assembler,
		logger:      logger,
	}
}

// GenerateInvoice assembles the student's invoice from current ledger state.
// When orderID is given, the order must belong to the student and be settled;
// its amount then becomes the payable-now figure.
func (s *InvoiceServiceImpl) GenerateInvoice(ctx context.Context, studentID uuid.UUID, orderID string) (*invoice.Invoice, error) {
	acc, err := s.accountRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var ord *order.PaymentOrder
	if orderID != "" {
		ord, err = s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if ord.StudentID == nil || *ord.StudentID != studentID {
			return nil, fmt.Errorf("order %s does not belong to student %s", orderID, studentID)
		}
		if ord.Status != order.StatusPaid {
			return nil, fmt.Errorf("order %s is not settled", orderID)
		}
	}

	return s.assembler.Assemble(acc, ord)
}
