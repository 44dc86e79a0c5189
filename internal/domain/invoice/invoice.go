// Package invoice assembles a settled ledger snapshot into a structured
// invoice payload. It is a pure projection: no persistence, and reruns for
// the same inputs return byte-identical monetary figures. Rendering the
// payload into a document is an external collaborator's job.
package invoice

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// LineItem is a single invoice line. Amounts are fixed two-decimal strings so
// that repeated assembly cannot drift formatting.
type LineItem struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Invoice is the assembled payload
type Invoice struct {
	Number          string         `json:"invoice_number"`
	StudentID       uuid.UUID      `json:"student_id"`
	StudentName     string         `json:"student_name"`
	Currency        money.Currency `json:"currency"`
	LineItems       []LineItem     `json:"line_items"`
	TotalPaid       string         `json:"total_paid"`
	PayableNow      string         `json:"payable_now"`
	RemainingAmount string         `json:"remaining_amount"`
	OrderID         string         `json:"order_id,omitempty"`
}

// Assembler projects ledger state into invoices
type Assembler struct {
	converter         *money.Converter
	defaultPayablePct int
}

// NewAssembler creates an assembler. defaultPayablePct is the share of the
// outstanding balance quoted as payable when no settled order and no payment
// history narrows it down.
func NewAssembler(converter *money.Converter, defaultPayablePct int) *Assembler {
	return &Assembler{
		converter:         converter,
		defaultPayablePct: defaultPayablePct,
	}
}

// Assemble builds the invoice for an account, optionally against one settled
// order. All figures are taken from the ledger snapshot at assembly time.
func (a *Assembler) Assemble(acc *account.LedgerAccount, ord *order.PaymentOrder) (*Invoice, error) {
	payableNow, err := a.payableNow(acc, ord)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		Number:      invoiceNumber(acc, ord),
		StudentID:   acc.StudentID,
		StudentName: acc.StudentName,
		Currency:    acc.Currency,
		LineItems: []LineItem{
			{Description: "Program fee", Amount: acc.OriginalPrice.StringFixed(2)},
		},
		TotalPaid:       acc.TotalPaid.StringFixed(2),
		PayableNow:      payableNow.StringFixed(2),
		RemainingAmount: acc.Balance.StringFixed(2),
	}

	if acc.DiscountApplied.IsPositive() {
		inv.LineItems = append(inv.LineItems, LineItem{
			Description: "Discount",
			Amount:      acc.DiscountApplied.Neg().StringFixed(2),
		})
	}

	if ord != nil {
		inv.OrderID = ord.ID
	}

	return inv, nil
}

// payableNow resolves the amount quoted as due immediately: the settled
// order's amount in the account currency when one is supplied, else the
// remaining balance once payments started, else a default share of the
// balance for a first installment.
func (a *Assembler) payableNow(acc *account.LedgerAccount, ord *order.PaymentOrder) (decimal.Decimal, error) {
	if ord != nil {
		return a.converter.Convert(ord.Amount, ord.Currency, acc.Currency)
	}

	if acc.TotalPaid.IsPositive() {
		return acc.Balance, nil
	}

	share := decimal.NewFromInt(int64(a.defaultPayablePct)).
		DivRound(decimal.NewFromInt(100), 8)
	return money.Round(acc.Balance.Mul(share)), nil
}

// invoiceNumber derives a stable invoice number: per order when one is
// supplied, per account otherwise. Deterministic derivation keeps the number
// identical across reruns without the assembler holding state.
func invoiceNumber(acc *account.LedgerAccount, ord *order.PaymentOrder) string {
	seed := acc.StudentID.String()
	if ord != nil {
		seed = ord.ID
	}
	sum := sha256.Sum256([]byte(seed))
	return "INV-" + strings.ToUpper(hex.EncodeToString(sum[:])[:10])
}
