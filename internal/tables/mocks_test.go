package tables

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/dinein/pkg/event"
)

type MockSessionStarter struct {
	OpenSessionFunc func(ctx context.Context, table *Table) (string, error)
	opened          int
}

func (m *MockSessionStarter) OpenSession(ctx context.Context, table *Table) (string, error) {
	if m.OpenSessionFunc != nil {
		return m.OpenSessionFunc(ctx, table)
	}
	m.opened++
	return fmt.Sprintf("session-%d", m.opened), nil
}

type MockSessionCloser struct {
	CloseSessionFunc func(ctx context.Context, sessionID string) error
	Closed           []string
}

func (m *MockSessionCloser) CloseSession(ctx context.Context, sessionID string) error {
	if m.CloseSessionFunc != nil {
		return m.CloseSessionFunc(ctx, sessionID)
	}
	m.Closed = append(m.Closed, sessionID)
	return nil
}

// MockNotifier records notified events.
type MockNotifier struct {
	mu     sync.Mutex
	Events []event.ChangeEvent
}

func (m *MockNotifier) Notify(ctx context.Context, evt event.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt)
}

func (m *MockNotifier) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.EventType)
	}
	return out
}
