package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

type MockReconcileService struct {
	mock.Mock
}

func (m *MockReconcileService) ConfirmCallback(ctx context.Context, orderID, paymentID, signature string) (*service.ReconcileResult, error) {
	args := m.Called(ctx, orderID, paymentID, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileResult), args.Error(1)
}

func (m *MockReconcileService) ProcessWebhook(ctx context.Context, body []byte, signature string) (service.WebhookOutcome, error) {
	args := m.Called(ctx, body, signature)
	return args.Get(0).(service.WebhookOutcome), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func paidOrder(id string) *order.PaymentOrder {
	return &order.PaymentOrder{
		ID:       id,
		Status:   order.StatusPaid,
		Currency: money.INR,
	}
}

func TestPaymentHandler_Verify(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	post := func(handler *PaymentHandler, body interface{}) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/payments/verify", handler.Verify)

		jsonBody, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, "/payments/verify", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	validReq := VerifyPaymentRequest{
		OrderID:   "order_Nx7Qa",
		PaymentID: "pay_29QQoUBi",
		Signature: "0123abcd",
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ConfirmCallback", mock.Anything, "order_Nx7Qa", "pay_29QQoUBi", "0123abcd").
			Return(&service.ReconcileResult{Order: paidOrder("order_Nx7Qa")}, nil).Once()

		rr := post(NewPaymentHandler(logger, mockService), validReq)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		data, _ := json.Marshal(resp.Data)
		var verifyResp VerifyPaymentResponse
		require.NoError(t, json.Unmarshal(data, &verifyResp))

		assert.Equal(t, "PAID", verifyResp.Status)
		assert.False(t, verifyResp.AlreadyProcessed)
		mockService.AssertExpectations(t)
	})

	t.Run("DuplicateAcknowledgedWith200", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ConfirmCallback", mock.Anything, "order_Nx7Qa", "pay_29QQoUBi", "0123abcd").
			Return(&service.ReconcileResult{Order: paidOrder("order_Nx7Qa"), AlreadyProcessed: true}, nil).Once()

		rr := post(NewPaymentHandler(logger, mockService), validReq)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"already_processed":true`)
	})

	t.Run("InvalidSignatureIs401", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ConfirmCallback", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, order.ErrSignatureInvalid).Once()

		rr := post(NewPaymentHandler(logger, mockService), validReq)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("FailedThenCapturedIs409", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ConfirmCallback", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, order.ErrAlreadyProcessed).Once()

		rr := post(NewPaymentHandler(logger, mockService), validReq)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("UnknownOrderIs404", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ConfirmCallback", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, order.ErrOrderNotFound{OrderID: "order_Nx7Qa"}).Once()

		rr := post(NewPaymentHandler(logger, mockService), validReq)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("MissingFieldsIs400", func(t *testing.T) {
		rr := post(NewPaymentHandler(logger, new(MockReconcileService)), map[string]string{"order_id": "order_Nx7Qa"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestPaymentHandler_Webhook(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"id":"pay_1","order_id":"order_Nx7Qa"}}}`)

	post := func(handler *PaymentHandler, body []byte, signature string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/payments/webhook", handler.Webhook)

		req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set(WebhookSignatureHeader, signature)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("ProcessedAcksWith200", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ProcessWebhook", mock.Anything, body, "sig").
			Return(service.WebhookProcessed, nil).Once()

		rr := post(NewPaymentHandler(logger, mockService), body, "sig")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"outcome":"processed"`)
		mockService.AssertExpectations(t)
	})

	t.Run("DuplicateAcksWith200", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ProcessWebhook", mock.Anything, body, "sig").
			Return(service.WebhookAlreadyProcessed, nil).Once()

		rr := post(NewPaymentHandler(logger, mockService), body, "sig")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"outcome":"already_processed"`)
	})

	t.Run("BadSignatureIs401", func(t *testing.T) {
		mockService := new(MockReconcileService)
		mockService.On("ProcessWebhook", mock.Anything, body, "bad").
			Return(service.WebhookOutcome(""), order.ErrSignatureInvalid).Once()

		rr := post(NewPaymentHandler(logger, mockService), body, "bad")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
