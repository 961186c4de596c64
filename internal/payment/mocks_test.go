package payment

import (
	"context"
	"sync"

	"github.com/appetiteclub/dinein/internal/kitchen"
)

// MockDispatcher records dispatch calls. Calls without a Func override
// delegate to Next when set.
type MockDispatcher struct {
	mu                    sync.Mutex
	Next                  KitchenDispatcher
	DispatchFunc          func(ctx context.Context, sessionID string) (*kitchen.Ticket, error)
	DispatchOnPaymentFunc func(ctx context.Context, sessionID string) (*kitchen.Ticket, error)
	Calls                 []string
}

func (m *MockDispatcher) Dispatch(ctx context.Context, sessionID string) (*kitchen.Ticket, error) {
	m.record("dispatch")
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, sessionID)
	}
	if m.Next != nil {
		return m.Next.Dispatch(ctx, sessionID)
	}
	return nil, nil
}

func (m *MockDispatcher) DispatchOnPayment(ctx context.Context, sessionID string) (*kitchen.Ticket, error) {
	m.record("dispatchOnPayment")
	if m.DispatchOnPaymentFunc != nil {
		return m.DispatchOnPaymentFunc(ctx, sessionID)
	}
	if m.Next != nil {
		return m.Next.DispatchOnPayment(ctx, sessionID)
	}
	return nil, nil
}

func (m *MockDispatcher) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}
