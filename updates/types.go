package main

import (
	"context"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// OrderPatcher is the order store surface the update worker uses: read the
// current status, then patch it conditionally.
type OrderPatcher interface {
	Get(ctx context.Context, orderID string) (*api.Order, error)
	ApplyTransition(ctx context.Context, orderID string, from, to api.OrderStatus, reason, transactionID string) error
}

// Config collects the update worker process configuration.
type Config struct {
	ServiceName string
	MetricsAddr string
	AMQPUser    string
	AMQPPass    string
	AMQPHost    string
	AMQPPort    string
	MongoURI    string
}
