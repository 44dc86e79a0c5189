package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/schoolhub-billing-ledger/internal/billing_api"
	"github.com/schoolhub-billing-ledger/internal/billing_api/service"
	"github.com/schoolhub-billing-ledger/internal/config"
	"github.com/schoolhub-billing-ledger/internal/data/mongo"
	"github.com/schoolhub-billing-ledger/internal/data/postgres"
	"github.com/schoolhub-billing-ledger/internal/domain/invoice"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
	"github.com/schoolhub-billing-ledger/internal/gateway"
	"github.com/schoolhub-billing-ledger/internal/logger"
	"github.com/schoolhub-billing-ledger/internal/platform/messaging/producers"
	"github.com/schoolhub-billing-ledger/internal/platform/persistence"
	"github.com/schoolhub-billing-ledger/internal/settlement"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("billing_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// The converter carries the deployment-time EUR/INR snapshot rate; every
	// ledger credit and invoice conversion goes through it.
	converter, err := money.NewConverterFromString(cfg.Billing.EURToINRRate)
	if err != nil {
		log.Error("Invalid BILLING_EUR_TO_INR_RATE", "error", err)
		os.Exit(1)
	}

	maxOrderAmount, err := decimal.NewFromString(cfg.Billing.MaxOrderAmount)
	if err != nil {
		log.Error("Invalid BILLING_MAX_ORDER_AMOUNT", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers for payment notifications
	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Crediter is nil-safe.

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	expenseRepo := postgres.NewExpenseRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize payment gateway client
	gatewayClient := gateway.NewClient(log, &cfg.Gateway)
	if !gatewayClient.Configured() {
		log.Warn("Payment gateway credentials not configured, order creation will be unavailable")
	}

	// Crediter applies settled payments to ledger accounts. The API runs it
	// inline on the winning confirmation path; the settlement worker re-drives
	// anything the inline path missed.
	crediter := settlement.NewCrediter(
		postgresDB,
		orderRepo,
		accountRepo,
		converter,
		notificationProducer,
		dlqProducer,
		auditRepo,
		log,
	)

	// Initialize services
	orderService := service.NewOrderService(orderRepo, accountRepo, gatewayClient, auditRepo, maxOrderAmount, log)
	reconcileService := service.NewReconcileService(orderRepo, gatewayClient, crediter, auditRepo, log)
	accountService := service.NewAccountService(accountRepo, converter, auditRepo, log)
	expenseService := service.NewExpenseService(expenseRepo, converter, money.Currency(cfg.Billing.BaseCurrency), log)
	invoiceService := service.NewInvoiceService(accountRepo, orderRepo, invoice.NewAssembler(converter, cfg.Billing.DefaultPayablePct), log)

	// Initialize REST server
	server := billing_api.NewServer(log, cfg, billing_api.Services{
		Orders:    orderService,
		Reconcile: reconcileService,
		Accounts:  accountService,
		Expenses:  expenseService,
		Invoices:  invoiceService,
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new settlements start mid-teardown
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
