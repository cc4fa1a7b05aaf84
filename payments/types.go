package main

import (
	"context"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// OrderGetter loads the order being charged.
type OrderGetter interface {
	Get(ctx context.Context, orderID string) (*api.Order, error)
}

// TransactionWriter is the transaction store surface this worker uses. Get
// resolves the stored outcome when a redelivered request hits the
// conditional insert.
type TransactionWriter interface {
	Insert(ctx context.Context, txn *api.Transaction) error
	Get(ctx context.Context, id string) (*api.Transaction, error)
}

// Config collects the payment worker process configuration.
type Config struct {
	ServiceName string
	MetricsAddr string
	AMQPUser    string
	AMQPPass    string
	AMQPHost    string
	AMQPPort    string
	MongoURI    string
}
