package main

import (
	"context"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// OrderRequest is the POST /orders body. Field shapes are validated and
// sanitized before anything is published; nothing is written to the store on
// the synchronous path.
type OrderRequest struct {
	CustomerData api.CustomerData    `json:"customerData"`
	Items        []api.RequestedItem `json:"items"`
	PaymentData  api.PaymentData     `json:"paymentData"`
	AddressData  api.AddressData     `json:"addressData"`
}

// OrderReader is the read-back surface for GET /orders/{orderID}.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (*api.Order, error)
}

// Config collects the gateway process configuration.
type Config struct {
	ServiceName string
	HTTPAddr    string
	MetricsAddr string
	AMQPUser    string
	AMQPPass    string
	AMQPHost    string
	AMQPPort    string
	MongoURI    string
}
