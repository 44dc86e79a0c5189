package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/schoolhub-billing-ledger/internal/config"
	"github.com/schoolhub-billing-ledger/internal/domain/order"
)

// Poller periodically scans for PAID orders whose ledger credit never
// committed and re-drives them through the crediter. This is the recovery
// path for crashes between capture and credit; in steady state the scan
// finds nothing.
type Poller struct {
	orderRepo    order.Repository
	crediter     *Crediter
	pool         *ants.Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewPoller(
	cfg *config.SettlementConfig,
	orderRepo order.Repository,
	crediter *Crediter,
	poolSize int,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement worker pool: %w", err)
	}

	return &Poller{
		orderRepo:    orderRepo,
		crediter:     crediter,
		pool:         pool,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
	}, nil
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting settlement poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"workers", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Settlement poller stopping")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("Settlement batch failed", "error", err)
			}
		}
	}
}

// processBatch fans one batch of uncredited orders out over the worker pool
// and waits for all of them before returning
func (p *Poller) processBatch(ctx context.Context) error {
	orders, err := p.orderRepo.ListPaidUncredited(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list uncredited orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	p.logger.Info("Recovering uncredited orders", "count", len(orders))

	var wg sync.WaitGroup
	for _, o := range orders {
		o := o
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.crediter.Credit(ctx, o); err != nil {
				p.logger.Error("Failed to credit recovered order", "order_id", o.ID, "error", err)
			}
		}); err != nil {
			wg.Done()
			p.logger.Error("Failed to submit order to settlement pool", "order_id", o.ID, "error", err)
		}
	}
	wg.Wait()

	return nil
}

// Shutdown releases the worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down settlement worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}
