package pkg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/dinein/pkg/event"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// KafkaPublisher writes change events to Kafka, one topic per event topic.
// Messages are keyed by session id when there is one, so a session's events
// keep their order within a partition. Writes are asynchronous; delivery
// failures are logged.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, logger apt.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			Async:                  true,
			BatchTimeout:           50 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Error("kafka delivery failed", "messages", len(messages), "error", err)
				}
			},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m := kafka.Message{
		Topic:   topic,
		Value:   msg,
		Key:     messageKey(msg),
		Headers: InjectTraceHeaders(ctx, nil),
	}
	if err := p.writer.WriteMessages(ctx, m); err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// InjectTraceHeaders carries the trace context of ctx on Kafka headers.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// ExtractTraceHeaders is the consumer side of InjectTraceHeaders.
func ExtractTraceHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func messageKey(msg []byte) []byte {
	evt, err := event.Decode(msg)
	if err != nil {
		return nil
	}
	if evt.SessionID != "" {
		return []byte(evt.SessionID)
	}
	return []byte(evt.EntityID)
}

// Publishers fans a message out to every publisher. All are attempted; the
// failures are joined.
type Publishers []events.Publisher

func (ps Publishers) Publish(ctx context.Context, topic string, msg []byte) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, topic, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
