// Package billing_api wires the HTTP surface of the billing engine: order
// intake, payment confirmation, ledger accounts, expenses, and invoices.
package billing_api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-billing-ledger/internal/billing_api/handler"
	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/config"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// Services bundles the service-layer dependencies the server exposes
type Services struct {
	Orders    service.OrderService
	Reconcile service.ReconcileService
	Accounts  service.AccountService
	Expenses  service.ExpenseService
	Invoices  service.InvoiceService
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	orderHandler := handler.NewOrderHandler(log, services.Orders)
	paymentHandler := handler.NewPaymentHandler(log, services.Reconcile)
	accountHandler := handler.NewAccountHandler(log, services.Accounts)
	expenseHandler := handler.NewExpenseHandler(log, services.Expenses)
	invoiceHandler := handler.NewInvoiceHandler(log, services.Invoices)

	setupRouter(log, httpRouter, orderHandler, paymentHandler, accountHandler, expenseHandler, invoiceHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
