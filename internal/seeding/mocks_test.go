package seeding

import (
	"context"

	"github.com/appetiteclub/apt/seed"
)

type MockTracker struct {
	HasRunFunc  func(ctx context.Context, id string) (bool, error)
	MarkRunFunc func(ctx context.Context, record seed.Record) error
	Marked      []string
}

func (m *MockTracker) HasRun(ctx context.Context, id string) (bool, error) {
	if m.HasRunFunc != nil {
		return m.HasRunFunc(ctx, id)
	}
	for _, marked := range m.Marked {
		if marked == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTracker) MarkRun(ctx context.Context, record seed.Record) error {
	if m.MarkRunFunc != nil {
		return m.MarkRunFunc(ctx, record)
	}
	m.Marked = append(m.Marked, record.ID)
	return nil
}
