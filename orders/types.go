package main

import (
	"context"
	"time"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// Catalog reads products, possibly through the cache.
type Catalog interface {
	Get(ctx context.Context, productID string) (*api.Product, error)
}

// StockReader recomputes the ledger sum for the pre-check.
type StockReader interface {
	CurrentStock(ctx context.Context, productID string) (int, error)
}

// LeadFinder is the same find-or-create the lead worker runs.
type LeadFinder interface {
	FindOrCreate(ctx context.Context, customer api.CustomerData) (*api.Lead, bool, error)
}

// OrderCreator inserts the order aggregate with an id-uniqueness
// precondition.
type OrderCreator interface {
	Insert(ctx context.Context, order *api.Order) error
}

// Config collects the order worker process configuration.
type Config struct {
	ServiceName     string
	MetricsAddr     string
	AMQPUser        string
	AMQPPass        string
	AMQPHost        string
	AMQPPort        string
	MongoURI        string
	RedisAddr       string
	CatalogCacheTTL time.Duration
}
