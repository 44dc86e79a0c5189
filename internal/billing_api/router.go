package billing_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-billing-ledger/internal/billing_api/handler"
	"github.com/schoolhub-billing-ledger/internal/billing_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	accountHandler *handler.AccountHandler,
	expenseHandler *handler.ExpenseHandler,
	invoiceHandler *handler.InvoiceHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.Create)
			orders.GET("/:id", orderHandler.GetByID)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/verify", paymentHandler.Verify)
			payments.POST("/webhook", paymentHandler.Webhook)
		}

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Enroll)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.POST("/:id/corrections", accountHandler.ApplyCorrection)
			accounts.GET("/:id/audit", accountHandler.AuditTrail)
		}

		expenses := v1.Group("/expenses")
		{
			expenses.POST("", expenseHandler.Create)
			expenses.GET("/summary", expenseHandler.Summary)
			expenses.DELETE("/:id", expenseHandler.Deactivate)
		}

		v1.GET("/invoices/:studentId", invoiceHandler.Generate)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
