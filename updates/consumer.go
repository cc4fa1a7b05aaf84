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
		var msg api.UpdateOrder
		if err := json.Unmarshal(body, &msg); err != nil {
			return api.Validationf("malformed order update: %v", err)
		}

		if err := svc.ProcessRecord(ctx, &msg); err != nil {
			return err
		}
		if business != nil {
			business.OrderUpdates.WithLabelValues(string(msg.Status)).Inc()
		}
		return nil
	}

	return broker.NewConsumer(ch, broker.UpdateOrderQueue, "updates", processTimeout, logger, worker, handler)
}
