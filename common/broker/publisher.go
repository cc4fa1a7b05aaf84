package broker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// Publisher is the narrow publish surface workers depend on; tests swap in
// an in-memory implementation.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg any, attributes map[string]any) error
}

// ChannelPublisher publishes JSON messages over one AMQP channel. Message
// attributes travel as AMQP headers alongside the injected trace context.
type ChannelPublisher struct {
	ch *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, exchange, routingKey string, msg any, attributes map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := InjectAMQPHeaders(ctx)
	for k, v := range attributes {
		headers[k] = v
	}

	err = p.ch.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Headers:      headers,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return api.Transient(fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err))
	}
	return nil
}
