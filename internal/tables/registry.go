package tables

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/enums/tablestatus"
	"github.com/appetiteclub/dinein/pkg/event"
)

// SessionStarter creates a session for a table and returns its id. It is
// called with the table lock held.
type SessionStarter interface {
	OpenSession(ctx context.Context, table *Table) (string, error)
}

// SessionCloser archives a finished session and removes it together with
// its kitchen tickets. It is called with the table lock held.
type SessionCloser interface {
	CloseSession(ctx context.Context, sessionID string) error
}

// Registry owns table records and every status/sessionId transition.
type Registry struct {
	repo     TableRepo
	locks    *store.KeyLocker
	notifier feed.Notifier
	logger   apt.Logger
	starter  SessionStarter
	closer   SessionCloser
}

func NewRegistry(repo TableRepo, locks *store.KeyLocker, notifier feed.Notifier, logger apt.Logger) *Registry {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if locks == nil {
		locks = store.NewKeyLocker()
	}
	if notifier == nil {
		notifier = feed.Nop{}
	}
	return &Registry{
		repo:     repo,
		locks:    locks,
		notifier: notifier,
		logger:   logger,
	}
}

// UseSessions wires the ledger and archiver, which are built after the
// registry because they depend on it.
func (r *Registry) UseSessions(starter SessionStarter, closer SessionCloser) {
	r.starter = starter
	r.closer = closer
}

func (r *Registry) List(ctx context.Context) ([]*Table, error) {
	return r.repo.List(ctx)
}

func (r *Registry) Get(ctx context.Context, id string) (*Table, error) {
	t, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("table %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// Update locks the table, applies fn and persists the result when it
// changed. Callers that also need the session lock take it inside fn, so
// table locks are always acquired first.
func (r *Registry) Update(ctx context.Context, id, reason string, fn func(t *Table) error) (*Table, error) {
	unlock := r.locks.Lock(Key(id))
	defer unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	before := t.clone()
	if err := fn(t); err != nil {
		return nil, err
	}

	if t.equal(before) {
		return t, nil
	}

	if err := r.repo.Save(ctx, t); err != nil {
		return nil, err
	}

	if t.Status != before.Status || t.CurrentSession() != before.CurrentSession() {
		r.emitStatus(ctx, t, before.Status, reason)
	}
	return t, nil
}

func (r *Registry) Reserve(ctx context.Context, id string) (*Table, error) {
	return r.Update(ctx, id, "reserved", func(t *Table) error {
		if t.status() != tablestatus.Statuses.Empty {
			return fmt.Errorf("table %s is %s, not empty: %w", id, t.Status, core.ErrInvalidState)
		}
		t.Status = tablestatus.Statuses.Reserved.Code()
		return nil
	})
}

func (r *Registry) Unreserve(ctx context.Context, id string) (*Table, error) {
	return r.Update(ctx, id, "unreserved", func(t *Table) error {
		if t.status() != tablestatus.Statuses.Reserved {
			return fmt.Errorf("table %s is %s, not reserved: %w", id, t.Status, core.ErrInvalidState)
		}
		t.Status = tablestatus.Statuses.Empty.Code()
		return nil
	})
}

func (r *Registry) Add(ctx context.Context, number, capacity int) (*Table, error) {
	if number < 1 {
		return nil, fmt.Errorf("table number must be positive: %w", core.ErrInvalidInput)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("table capacity must be positive: %w", core.ErrInvalidInput)
	}

	t := NewTable(number, capacity)

	unlock := r.locks.Lock(Key(t.ID))
	defer unlock()

	existing, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Number == number || e.ID == t.ID {
			return nil, fmt.Errorf("table number %d already exists: %w", number, core.ErrConflict)
		}
	}

	if err := r.repo.Save(ctx, t); err != nil {
		return nil, err
	}

	feed.Emit(ctx, r.notifier, r.logger, event.TablesTopic, event.EventTableAdded, t.ID, "", t.ID, t)
	return t, nil
}

func (r *Registry) Remove(ctx context.Context, id string) error {
	unlock := r.locks.Lock(Key(id))
	defer unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.status() != tablestatus.Statuses.Empty {
		return fmt.Errorf("table %s is %s, only empty tables can be removed: %w", id, t.Status, core.ErrInvalidState)
	}

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	feed.Emit(ctx, r.notifier, r.logger, event.TablesTopic, event.EventTableRemoved, id, "", id, t)
	return nil
}

// StartSession opens a session on an empty or reserved table and marks it
// occupied.
func (r *Registry) StartSession(ctx context.Context, id string) (*Table, error) {
	return r.Update(ctx, id, "session started", func(t *Table) error {
		if !t.status().Startable() {
			return fmt.Errorf("table %s is %s: %w", id, t.Status, core.ErrInvalidState)
		}
		if r.starter == nil {
			return fmt.Errorf("no session starter configured")
		}

		sessionID, err := r.starter.OpenSession(ctx, t)
		if err != nil {
			return err
		}
		t.Attach(sessionID, tablestatus.Statuses.Occupied)
		return nil
	})
}

// Complete archives and removes the table's session and tickets, then resets
// the table. A table without a session is simply reset.
func (r *Registry) Complete(ctx context.Context, id string) (*Table, error) {
	return r.Update(ctx, id, "session completed", func(t *Table) error {
		if sessionID := t.CurrentSession(); sessionID != "" && r.closer != nil {
			if err := r.closer.CloseSession(ctx, sessionID); err != nil {
				return err
			}
		}
		t.Reset()
		return nil
	})
}

func (r *Registry) emitStatus(ctx context.Context, t *Table, previous, reason string) {
	payload := event.TableStatusChanged{
		TableID:        t.ID,
		Number:         t.Number,
		Status:         t.Status,
		PreviousStatus: previous,
		SessionID:      t.SessionID,
		Reason:         reason,
	}
	feed.Emit(ctx, r.notifier, r.logger, event.TablesTopic, event.EventTableStatusChanged, t.ID, t.CurrentSession(), t.ID, payload)
}
