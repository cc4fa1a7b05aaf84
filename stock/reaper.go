package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/storage"
)

const (
	compensationReason = "Reservation release"
	reaperBatchSize    = 100
)

// reaper releases orphaned stock reservations. The order worker publishes
// DECREASE entries before the order row exists; when a later phase fails,
// the reservation has no matching order and would otherwise leak. Each
// sweep pages through order-tagged DECREASE entries older than the grace
// period and appends a compensating INCREASE for those whose order never
// materialized. Settled and already-compensated entries stay in the ledger,
// so the page cursor is what lets a sweep get past them to newer orphans.
// Compensation ids are derived from the decrease entry id, so a repeated
// sweep hits the conditional insert and stays idempotent.
type reaper struct {
	ledger   LedgerScanner
	orders   OrderChecker
	grace    time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func newReaper(ledger LedgerScanner, orders OrderChecker, grace, interval time.Duration, logger *zap.Logger) *reaper {
	return &reaper{
		ledger:   ledger,
		orders:   orders,
		grace:    grace,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a fixed ticker until the context is cancelled.
func (r *reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := r.sweep(ctx)
			if err != nil {
				r.logger.Error("reaper sweep failed", zap.Error(err))
			} else if released > 0 {
				r.logger.Info("released orphaned reservations", zap.Int("count", released))
			}
		}
	}
}

// sweep runs one pass over the whole stale backlog and returns the number of
// reservations released.
func (r *reaper) sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.grace)

	released := 0
	var after storage.LedgerCursor
	for {
		entries, err := r.ledger.FindStaleDecreases(ctx, cutoff, after, reaperBatchSize)
		if err != nil {
			return released, err
		}
		if len(entries) == 0 {
			return released, nil
		}

		for _, entry := range entries {
			n, err := r.release(ctx, entry)
			released += n
			if err != nil {
				return released, err
			}
		}

		last := entries[len(entries)-1]
		after = storage.LedgerCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if int64(len(entries)) < reaperBatchSize {
			return released, nil
		}
	}
}

// release compensates one stale decrease if its order never materialized.
func (r *reaper) release(ctx context.Context, entry api.StockEntry) (int, error) {
	exists, err := r.orders.Exists(ctx, entry.OrderID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, nil
	}

	compensation := &api.StockEntry{
		ID:        "comp-" + entry.ID,
		ProductID: entry.ProductID,
		Type:      api.StockIncrease,
		Quantity:  entry.Quantity,
		Reason:    compensationReason,
		OrderID:   entry.OrderID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.ledger.Append(ctx, compensation); err != nil {
		if errors.Is(err, api.ErrConflict) {
			// Already compensated on an earlier sweep.
			return 0, nil
		}
		return 0, err
	}

	r.logger.Info("compensated orphaned reservation",
		zap.String("decrease_id", entry.ID),
		zap.String("product_id", entry.ProductID),
		zap.Int("quantity", entry.Quantity),
		zap.String("order_id", entry.OrderID),
	)
	return 1, nil
}
