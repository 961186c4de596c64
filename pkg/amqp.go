package pkg

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "dinein.events"

// AMQPConfig configures an AMQPPublisher.
type AMQPConfig struct {
	URL      string
	Exchange string // durable topic exchange; DefaultExchange when empty
}

// AMQPPublisher publishes change events to a RabbitMQ topic exchange, routed
// by event topic. Consumers bind their own queues with patterns such as
// "dinein.kitchen".
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("no amqp url configured")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQPPublisher{conn: conn, channel: channel, exchange: cfg.Exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, p.exchange, topic, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		CorrelationId: string(messageKey(msg)),
		Body:          msg,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %s: %w", p.exchange, err)
	}
	return nil
}

func (p *AMQPPublisher) Exchange() string {
	return p.exchange
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.channel.Close(), p.conn.Close())
}
