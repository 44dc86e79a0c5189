package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schoolhub-billing-ledger/internal/config"
	"github.com/schoolhub-billing-ledger/internal/data/mongo"
	"github.com/schoolhub-billing-ledger/internal/data/postgres"
	"github.com/schoolhub-billing-ledger/internal/domain/money"
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
	cfg, err := config.LoadConfig("settlement_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	converter, err := money.NewConverterFromString(cfg.Billing.EURToINRRate)
	if err != nil {
		log.Error("Invalid BILLING_EUR_TO_INR_RATE", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Kafka producers
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

	// Crediter applies settled-but-uncredited orders to ledger accounts
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

	// Poller sweeps PAID orders whose ledger credit never landed (the API
	// crashed between marking the order and crediting the account)
	poller, err := settlement.NewPoller(&cfg.Settlement, orderRepo, crediter, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize settlement poller", "error", err)
		os.Exit(1)
	}

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting settlement poller",
			"interval", cfg.Settlement.PollingInterval.String(),
			"batch_size", cfg.Settlement.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context to stop the polling loop
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Settlement poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the worker pool
	poller.Shutdown()

	if err = notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err != nil {
		log.Error("Settlement Worker shutdown completed with errors")
	} else {
		log.Info("Settlement Worker shutdown completed successfully")
	}
}
