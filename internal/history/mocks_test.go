package history

import (
	"context"
)

type MockTicketRemover struct {
	DeleteTicketsFunc func(ctx context.Context, sessionID string) (int, error)
	Deleted           []string
}

func (m *MockTicketRemover) DeleteTickets(ctx context.Context, sessionID string) (int, error) {
	if m.DeleteTicketsFunc != nil {
		return m.DeleteTicketsFunc(ctx, sessionID)
	}
	m.Deleted = append(m.Deleted, sessionID)
	return 0, nil
}
