package main

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/broker"
	"github.com/lucaslcw/order-pipeline/common/metrics"
)

const processTimeout = 25 * time.Second

func newConsumer(ch *amqp.Channel, svc *service, business *metrics.BusinessMetrics, worker *metrics.WorkerMetrics, logger *zap.Logger) *broker.Consumer {
	handler := func(ctx context.Context, body []byte) error {
		var msg api.ProcessTransaction
		if err := json.Unmarshal(body, &msg); err != nil {
			return api.Validationf("malformed payment request: %v", err)
		}

		txn, err := svc.ProcessRecord(ctx, &msg)
		if err != nil {
			if business != nil && api.IsGatewayError(err) {
				business.Payments.WithLabelValues(string(api.PaymentError)).Inc()
			}
			return err
		}
		if business != nil && txn != nil {
			business.Payments.WithLabelValues(string(txn.PaymentStatus)).Inc()
			business.GatewayDuration.Observe(float64(txn.ProcessingTime) / 1000)
		}
		return nil
	}

	return broker.NewConsumer(ch, broker.PaymentQueue, "payments", processTimeout, logger, worker, handler)
}
