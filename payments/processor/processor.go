// Package processor is the payment gateway client surface. The pipeline
// only ever talks to the gateway through the Processor interface, so the
// simulated gateway can be swapped for a real acquirer integration without
// touching the worker.
package processor

import (
	"context"
	"time"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// Result is a completed gateway call. Status is APPROVED or DECLINED;
// infrastructure failures surface as an error instead.
type Result struct {
	Status        api.PaymentStatus
	AuthCode      string
	FailureReason string
	Duration      time.Duration
}

// Processor charges one payment request. A returned *api.GatewayError means
// the gateway itself failed before producing an outcome.
type Processor interface {
	Charge(ctx context.Context, req *api.ProcessTransaction) (*Result, error)
}
