package feed

import (
	"context"
	"sync"
)

// MockPublisher records published messages.
type MockPublisher struct {
	mu              sync.Mutex
	PublishedEvents []PublishedEvent
	PublishFunc     func(ctx context.Context, topic string, msg []byte) error
}

type PublishedEvent struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{Topic: topic, Data: msg})
	return nil
}

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PublishedEvents)
}
