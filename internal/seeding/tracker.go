package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt/seed"
	"github.com/appetiteclub/dinein/internal/store"
)

const trackerPrefix = store.SystemPrefix + "seed:"

type trackerRecord struct {
	ID          string    `json:"id"`
	Application string    `json:"application"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"appliedAt"`
}

// StoreTracker remembers applied seeds under system:seed:<id>, next to the
// data they created.
type StoreTracker struct {
	store store.Store
}

func NewStoreTracker(s store.Store) *StoreTracker {
	return &StoreTracker{store: s}
}

func (t *StoreTracker) HasRun(ctx context.Context, id string) (bool, error) {
	rec, err := store.GetJSON[trackerRecord](ctx, t.store, trackerPrefix+id)
	if err != nil {
		return false, fmt.Errorf("query seed %s: %w", id, err)
	}
	return rec != nil, nil
}

func (t *StoreTracker) MarkRun(ctx context.Context, record seed.Record) error {
	rec := trackerRecord{
		ID:          record.ID,
		Application: record.Application,
		Description: record.Description,
		AppliedAt:   record.AppliedAt,
	}
	if err := store.SetJSON(ctx, t.store, trackerPrefix+record.ID, rec); err != nil {
		return fmt.Errorf("insert seed record %s: %w", record.ID, err)
	}
	return nil
}
