package broker

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange and queue names. The initialize exchange is a fanout: every
// submission is delivered once to the lead queue and once to the order
// queue. The work exchanges are direct with routing key = queue name.
const (
	InitializeOrderExchange = "order.initialize"
	StockExchange           = "product.stock"
	PaymentExchange         = "transaction.process"
	UpdateOrderExchange     = "order.update"

	LeadsQueue       = "order.initialize.leads"
	OrdersQueue      = "order.initialize.orders"
	StockQueue       = "product.stock"
	PaymentQueue     = "transaction.process"
	UpdateOrderQueue = "order.update"
)

// DLX receives messages that exhausted their retries; each queue has its own
// <queue>.dlq bound by the queue name.
const DLX = "dlx"

// MaxRetryCount bounds transient redeliveries before a message is
// dead-lettered.
const MaxRetryCount = 3

var workQueues = []string{LeadsQueue, OrdersQueue, StockQueue, PaymentQueue, UpdateOrderQueue}

// Connect dials RabbitMQ, opens a channel and declares the full topology:
// DLX and per-queue DLQs, exchanges, work queues and their bindings. The
// returned close function releases the channel and the connection in order.
func Connect(user, pass, host, port string) (*amqp.Channel, func() error, error) {
	address := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One in-flight record per consumer; records in a batch are processed
	// sequentially for predictable failure semantics.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		if err := ch.Close(); err != nil {
			return err
		}
		return conn.Close()
	}

	return ch, closeFn, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := declareDLX(ch); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(
		InitializeOrderExchange,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", InitializeOrderExchange, err)
	}

	for _, exchange := range []string{StockExchange, PaymentExchange, UpdateOrderExchange} {
		if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare %s exchange: %w", exchange, err)
		}
	}

	for _, queue := range workQueues {
		// x-dead-letter-routing-key pins DLX routing to the queue name; fanout
		// deliveries otherwise carry an empty routing key and would not reach
		// their DLQ.
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			amqp.Table{
				"x-dead-letter-exchange":    DLX,
				"x-dead-letter-routing-key": queue,
			},
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	bindings := []struct {
		queue    string
		key      string
		exchange string
	}{
		{LeadsQueue, "", InitializeOrderExchange},
		{OrdersQueue, "", InitializeOrderExchange},
		{StockQueue, StockQueue, StockExchange},
		{PaymentQueue, PaymentQueue, PaymentExchange},
		{UpdateOrderQueue, UpdateOrderQueue, UpdateOrderExchange},
	}
	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

func declareDLX(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX exchange: %w", err)
	}

	for _, queue := range workQueues {
		dlq := queue + ".dlq"
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare DLQ %s: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, queue, DLX, false, nil); err != nil {
			return fmt.Errorf("failed to bind DLQ %s to DLX: %w", dlq, err)
		}
	}

	return nil
}

// RetryCount reads the redelivery counter carried in the message headers.
func RetryCount(d *amqp.Delivery) int64 {
	if d.Headers == nil {
		return 0
	}
	count, ok := d.Headers["x-retry-count"].(int64)
	if !ok {
		return 0
	}
	return count
}

// HandleRetry requeues a transiently failed delivery with an incremented
// x-retry-count, republishing to the named queue via the default exchange so
// fanout siblings do not see the message again. Once MaxRetryCount is
// reached it nacks without requeue, which dead-letters the message to the
// queue's DLQ. On the republish path the caller must ack the original
// delivery afterwards.
func HandleRetry(ch *amqp.Channel, d *amqp.Delivery, queue string) error {
	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}

	retryCount := RetryCount(d)
	retryCount++
	d.Headers["x-retry-count"] = retryCount

	if retryCount >= MaxRetryCount {
		return d.Nack(false, false)
	}

	// Linear backoff gives downstream dependencies time to recover.
	time.Sleep(time.Second * time.Duration(retryCount))

	err := ch.Publish(
		"",    // default exchange routes directly to the queue
		queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Headers:      d.Headers,
			Body:         d.Body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return d.Ack(false)
}
