package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig locates the broker and the fanout exchange peers share.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// AMQP broadcasts envelopes through a RabbitMQ fanout exchange. Every peer
// consumes from its own exclusive queue, so it also receives its own
// envelopes; the store drops those by peer id.
type AMQP struct {
	cfg    AMQPConfig
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger

	mu sync.Mutex
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(cfg AMQPConfig, logger *slog.Logger) (*AMQP, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "tablesync.deltas"
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQP{cfg: cfg, conn: conn, ch: ch, logger: logger}, nil
}

// Publish sends env to the exchange. Deltas are transient: a peer that is
// not connected when they are sent never sees them.
func (a *AMQP) Publish(ctx context.Context, env Envelope) error {
	body, err := Encode(env)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	err = a.ch.PublishWithContext(ctx, a.cfg.Exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    env.SentAt,
		AppId:        env.Peer,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", a.cfg.Exchange, err)
	}
	return nil
}

// Subscribe binds an exclusive auto-delete queue to the exchange and hands
// every delivery to h.
func (a *AMQP) Subscribe(ctx context.Context, h Handler) error {
	a.mu.Lock()
	q, err := a.ch.QueueDeclare("", false, true, true, false, nil)
	if err == nil {
		err = a.ch.QueueBind(q.Name, "", a.cfg.Exchange, false, nil)
	}
	var deliveries <-chan amqp.Delivery
	if err == nil {
		deliveries, err = a.ch.Consume(q.Name, "", true, true, false, false, nil)
	}
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", a.cfg.Exchange, err)
	}

	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					a.logger.Warn("rabbitmq delivery channel closed", "action", "amqp_consume")
					return
				}
				env, err := Decode(d.Body)
				if err != nil {
					a.logger.Warn("dropping malformed envelope", "action", "amqp_consume", "error", err)
					continue
				}
				h(env)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Close closes the channel and the connection.
func (a *AMQP) Close() error {
	if a.ch != nil && !a.ch.IsClosed() {
		if err := a.ch.Close(); err != nil {
			return fmt.Errorf("failed to close rabbitmq channel: %w", err)
		}
	}
	if a.conn != nil && !a.conn.IsClosed() {
		if err := a.conn.Close(); err != nil {
			return fmt.Errorf("failed to close rabbitmq connection: %w", err)
		}
	}
	return nil
}
