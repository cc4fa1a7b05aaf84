package main

import (
	"context"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// LeadFinder is the slice of the lead store this worker needs.
type LeadFinder interface {
	FindOrCreate(ctx context.Context, customer api.CustomerData) (*api.Lead, bool, error)
}

// Config collects the lead worker process configuration.
type Config struct {
	ServiceName string
	MetricsAddr string
	AMQPUser    string
	AMQPPass    string
	AMQPHost    string
	AMQPPort    string
	MongoURI    string
}
