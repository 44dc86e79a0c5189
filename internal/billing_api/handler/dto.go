package handler

import (
	"time"

	"github.com/schoolhub-billing-ledger/internal/domain/account"
	"github.com/schoolhub-billing-ledger/internal/domain/expense"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// CreateOrderRequest represents a request to mint a payment order. Amounts
// arrive as strings and are parsed into decimals server-side.
type CreateOrderRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required,len=3"`
	Receipt       string `json:"receipt,omitempty"`
	StudentID     string `json:"student_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty" binding:"omitempty,email"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// OrderResponse represents a payment order in API responses
type OrderResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	Receipt          string `json:"receipt,omitempty"`
	StudentID        string `json:"student_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	GatewayKeyID     string `json:"gateway_key_id,omitempty"`
	CreatedAt        string `json:"created_at"`
	SettledAt        string `json:"settled_at,omitempty"`
}

// VerifyPaymentRequest is the synchronous callback confirmation payload
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// VerifyPaymentResponse reports the settlement disposition
type VerifyPaymentResponse struct {
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"already_processed"`
}

// WebhookResponse acknowledges an asynchronous gateway event
type WebhookResponse struct {
	Outcome string `json:"outcome"`
}

// EnrollAccountRequest represents a request to create a student ledger account
type EnrollAccountRequest struct {
	StudentName   string `json:"student_name" binding:"required"`
	Currency      string `json:"currency" binding:"required,len=3"`
	OriginalPrice string `json:"original_price" binding:"required"`
	Discount      string `json:"discount,omitempty"`
}

// CorrectionRequest is an audited administrative ledger adjustment
type CorrectionRequest struct {
	Delta  string `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor" binding:"required"`
}

// AccountResponse represents a ledger account in API responses
type AccountResponse struct {
	StudentID        string `json:"student_id"`
	StudentName      string `json:"student_name"`
	Currency         string `json:"currency"`
	OriginalPrice    string `json:"original_price"`
	DiscountApplied  string `json:"discount_applied"`
	FinalPrice       string `json:"final_price"`
	TotalPaid        string `json:"total_paid"`
	Balance          string `json:"balance"`
	PaymentStatus    string `json:"payment_status"`
	EUREquivalent    string `json:"eur_equivalent"`
	ExchangeRateUsed string `json:"exchange_rate_used"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// CreateExpenseRequest represents a request to record an operating expense
type CreateExpenseRequest struct {
	Category string `json:"category" binding:"required"`
	Type     string `json:"type" binding:"required,oneof=RECURRING ONE_TIME"`
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required,len=3"`
	Date     string `json:"date" binding:"required"` // YYYY-MM-DD
	Notes    string `json:"notes,omitempty"`
}

// ExpenseResponse represents an expense entry in API responses
type ExpenseResponse struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Date     string `json:"date"`
	IsActive bool   `json:"is_active"`
	Notes    string `json:"notes,omitempty"`
}

// ExpenseSummaryResponse represents a period expense summary
type ExpenseSummaryResponse struct {
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	Currency    string            `json:"currency"`
	Total       string            `json:"total_expenses"`
	Recurring   string            `json:"recurring"`
	OneTime     string            `json:"one_time"`
	ByCategory  map[string]string `json:"by_category"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// mapOrderToResponse maps a payment order to its response DTO
func mapOrderToResponse(o *order.PaymentOrder, gatewayKeyID string) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		Status:           string(o.Status),
		Amount:           o.Amount.StringFixed(2),
		Currency:         string(o.Currency),
		Receipt:          o.Receipt,
		GatewayPaymentID: o.GatewayPaymentID,
		GatewayKeyID:     gatewayKeyID,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
	if o.StudentID != nil {
		resp.StudentID = o.StudentID.String()
	}
	if o.SettledAt != nil {
		resp.SettledAt = o.SettledAt.Format(time.RFC3339)
	}
	return resp
}

// mapAccountToResponse maps a ledger account to its response DTO
func mapAccountToResponse(acc *account.LedgerAccount) AccountResponse {
	return AccountResponse{
		StudentID:        acc.StudentID.String(),
		StudentName:      acc.StudentName,
		Currency:         string(acc.Currency),
		OriginalPrice:    acc.OriginalPrice.StringFixed(2),
		DiscountApplied:  acc.DiscountApplied.StringFixed(2),
		FinalPrice:       acc.FinalPrice.StringFixed(2),
		TotalPaid:        acc.TotalPaid.StringFixed(2),
		Balance:          acc.Balance.StringFixed(2),
		PaymentStatus:    string(acc.PaymentStatus),
		EUREquivalent:    acc.EUREquivalent.StringFixed(2),
		ExchangeRateUsed: acc.ExchangeRateUsed.String(),
		CreatedAt:        acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapExpenseToResponse maps an expense entry to its response DTO
func mapExpenseToResponse(e *expense.Entry) ExpenseResponse {
	return ExpenseResponse{
		ID:       e.ID.String(),
		Category: e.Category,
		Type:     string(e.Type),
		Amount:   e.Amount.StringFixed(2),
		Currency: string(e.Currency),
		Date:     e.Date.Format("2006-01-02"),
		IsActive: e.IsActive,
		Notes:    e.Notes,
	}
}
