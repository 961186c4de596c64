package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStream implements events.Stream on top of JetStream. Change events are
// retained so late consumers can replay what happened while they were away.
type NATSStream struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	subject  string
	logger   apt.Logger
	consumed jetstream.ConsumeContext
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	URL          string        // NATS server URL
	StreamName   string        // JetStream stream name (e.g. "DINEIN_EVENTS")
	Subject      string        // Subject pattern captured by the stream (e.g. "dinein.>")
	ConsumerName string        // Durable consumer name
	MaxAge       time.Duration // Retention window
	MaxMsgs      int64         // Maximum retained messages (0 = unlimited)
}

// NewNATSStream connects and makes sure the stream and its consumer exist.
func NewNATSStream(ctx context.Context, cfg NATSStreamConfig, logger apt.Logger) (*NATSStream, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	conn, err := connect(cfg.URL, "dinein-stream")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Subject},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: cfg.Subject,
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.ConsumerName, err)
	}

	return &NATSStream{
		conn:     conn,
		js:       js,
		stream:   stream,
		consumer: consumer,
		subject:  cfg.Subject,
		logger:   logger,
	}, nil
}

// Publish appends a message to the stream.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// Fetch retrieves up to limit retained messages.
func (s *NATSStream) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if limit <= 0 {
		limit = 1000
	}

	batch, err := s.consumer.Fetch(limit, jetstream.FetchMaxWait(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []events.StreamMessage
	for msg := range batch.Messages() {
		metadata, err := msg.Metadata()
		if err != nil {
			_ = msg.Ack()
			continue
		}

		messages = append(messages, events.StreamMessage{
			Data:      msg.Data(),
			Sequence:  metadata.Sequence.Stream,
			Timestamp: metadata.Timestamp.UnixNano(),
		})
		_ = msg.Ack()
	}
	if err := batch.Error(); err != nil {
		return messages, fmt.Errorf("fetch interrupted: %w", err)
	}

	return messages, nil
}

// SubscribeStream delivers new messages to handler until Close.
func (s *NATSStream) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	cc, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Error("stream handler failed", "subject", msg.Subject(), "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("cannot consume stream: %w", err)
	}
	s.consumed = cc
	return nil
}

func (s *NATSStream) Close() error {
	if s.consumed != nil {
		s.consumed.Stop()
	}
	s.conn.Close()
	return nil
}
