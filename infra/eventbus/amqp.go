package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/barncase/barn/pkg/domain/events"
	"github.com/barncase/barn/pkg/eventbus"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPEventBus publishes to a durable topic exchange with the event type as
// routing key. Each handler consumes from its own durable queue.
type AMQPEventBus struct {
	conn          *amqp.Connection
	pub           *amqp.Channel
	pubMu         sync.Mutex
	exchange      string
	typeFactories map[string]func() events.Event
	logger        *slog.Logger

	mu  sync.Mutex
	seq int
	wg  sync.WaitGroup
}

// NewWithAMQP dials url and declares exchange.
func NewWithAMQP(
	url, exchange string,
	types map[string]func() events.Event,
	logger *slog.Logger,
) (*AMQPEventBus, error) {
	if url == "" || exchange == "" {
		return nil, fmt.Errorf("amqp event bus: url and exchange are required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp event bus: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp event bus: channel open failed: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp event bus: exchange declare failed: %w", err)
	}
	return &AMQPEventBus{
		conn:          conn,
		pub:           ch,
		exchange:      exchange,
		typeFactories: types,
		logger:        logger.With("bus", "amqp", "exchange", exchange),
	}, nil
}

// Emit publishes a persistent JSON message.
func (b *AMQPEventBus) Emit(ctx context.Context, event events.Event) error {
	body, err := encode(event)
	if err != nil {
		b.logger.Error("failed to encode event", "error", err, "type", event.Type())
		return fmt.Errorf("amqp event bus: %w", err)
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if err := b.pub.PublishWithContext(ctx, b.exchange, event.Type(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type(),
		Body:         body,
	}); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("amqp event bus: publish failed: %w", err)
	}
	return nil
}

// Register binds a queue to eventType and consumes it until Close.
func (b *AMQPEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.seq++
	queue := fmt.Sprintf("%s.%s.%d", b.exchange, eventType, b.seq)
	b.mu.Unlock()

	ch, err := b.conn.Channel()
	if err != nil {
		b.logger.Error("channel open failed", "error", err, "event_type", eventType)
		return
	}
	if err := ch.Qos(50, 0, false); err != nil {
		b.logger.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		b.logger.Error("queue declare failed", "error", err, "queue", queue)
		_ = ch.Close()
		return
	}
	if err := ch.QueueBind(queue, eventType, b.exchange, false, nil); err != nil {
		b.logger.Error("queue bind failed", "error", err, "queue", queue)
		_ = ch.Close()
		return
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		b.logger.Error("queue consume failed", "error", err, "queue", queue)
		_ = ch.Close()
		return
	}
	b.logger.Info("handler registered", "event_type", eventType, "queue", queue)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { _ = ch.Close() }()
		for d := range deliveries {
			if err := b.handleDelivery(d.Body, handler); err != nil {
				b.logger.Error("handle message failed", "error", err, "event_type", eventType)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}()
}

func (b *AMQPEventBus) handleDelivery(body []byte, handler eventbus.HandlerFunc) (err error) {
	evt, err := decode(body, b.typeFactories)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(context.Background(), evt)
}

// Close shuts the connection, which ends every consumer.
func (b *AMQPEventBus) Close() error {
	err := b.conn.Close()
	b.wg.Wait()
	return err
}

var _ eventbus.Bus = (*AMQPEventBus)(nil)
