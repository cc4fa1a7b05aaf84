package broker

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/metrics"
)

// HandlerFunc processes one delivery body. The error class decides the
// record's fate: nil and conflicts ack, transient errors are requeued with a
// bounded retry count, everything else is fatal and dead-letters immediately.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer drives one queue with manual acks. Deliveries in a batch are
// handled sequentially (prefetch 1); each record runs under its own deadline
// so a stuck dependency surrenders the record instead of holding the queue.
type Consumer struct {
	ch      *amqp.Channel
	queue   string
	service string
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.WorkerMetrics
	handler HandlerFunc
}

func NewConsumer(ch *amqp.Channel, queue, service string, timeout time.Duration, logger *zap.Logger, m *metrics.WorkerMetrics, handler HandlerFunc) *Consumer {
	return &Consumer{
		ch:      ch,
		queue:   queue,
		service: service,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		handler: handler,
	}
}

// Listen consumes until the context is cancelled or the channel closes.
func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack off; acks are manual
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	c.logger.Info("consumer started", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(parent context.Context, d amqp.Delivery) {
	start := time.Now()

	msgCtx := ExtractAMQPHeaders(parent, d.Headers)
	tracer := otel.Tracer(c.service)
	msgCtx, span := tracer.Start(msgCtx, "AMQP - consume - "+c.queue)
	defer span.End()

	msgCtx, cancel := context.WithTimeout(msgCtx, c.timeout)
	defer cancel()

	err := c.handler(msgCtx, d.Body)

	var outcome string
	switch {
	case err == nil, errors.Is(err, api.ErrConflict):
		outcome = "ok"
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", zap.String("queue", c.queue), zap.Error(ackErr))
		}
	case api.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		outcome = "retried"
		c.logger.Warn("transient failure, surrendering record",
			zap.String("queue", c.queue),
			zap.Int64("retry_count", RetryCount(&d)),
			zap.Error(err),
		)
		if retryErr := HandleRetry(c.ch, &d, c.queue); retryErr != nil {
			c.logger.Error("failed to requeue message", zap.String("queue", c.queue), zap.Error(retryErr))
			_ = d.Nack(false, false)
		}
	default:
		outcome = "fatal"
		c.logger.Error("fatal record failure, dead-lettering",
			zap.String("queue", c.queue),
			zap.Error(err),
		)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("failed to nack message", zap.String("queue", c.queue), zap.Error(nackErr))
		}
	}

	if c.metrics != nil {
		c.metrics.RecordMessage(c.queue, outcome, time.Since(start))
	}
}
