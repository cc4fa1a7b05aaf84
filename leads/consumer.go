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
		var msg api.InitializeOrder
		if err := json.Unmarshal(body, &msg); err != nil {
			return api.Validationf("malformed initialize message: %v", err)
		}

		created, err := svc.ProcessRecord(ctx, &msg)
		if err != nil {
			return err
		}
		if created && business != nil {
			business.LeadsCreated.Inc()
		}
		return nil
	}

	return broker.NewConsumer(ch, broker.LeadsQueue, "leads", processTimeout, logger, worker, handler)
}
