package main

import (
	"context"
	"time"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/storage"
)

// ProductGetter validates ledger targets against the catalog.
type ProductGetter interface {
	Get(ctx context.Context, productID string) (*api.Product, error)
}

// Ledger is the append-only stock ledger surface this worker writes.
type Ledger interface {
	Append(ctx context.Context, entry *api.StockEntry) error
	CurrentStock(ctx context.Context, productID string) (int, error)
}

// LedgerScanner is the reaper's read surface.
type LedgerScanner interface {
	Append(ctx context.Context, entry *api.StockEntry) error
	FindStaleDecreases(ctx context.Context, cutoff time.Time, after storage.LedgerCursor, limit int64) ([]api.StockEntry, error)
}

// OrderChecker reports whether an order row exists.
type OrderChecker interface {
	Exists(ctx context.Context, orderID string) (bool, error)
}

// Config collects the stock worker process configuration.
type Config struct {
	ServiceName    string
	MetricsAddr    string
	AMQPUser       string
	AMQPPass       string
	AMQPHost       string
	AMQPPort       string
	MongoURI       string
	ReaperGrace    time.Duration
	ReaperInterval time.Duration
}
