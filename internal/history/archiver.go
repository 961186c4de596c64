package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/event"
	"github.com/google/uuid"
)

const tokenLayout = "20060102T150405.000000000Z"

// Record is an immutable snapshot of a completed session.
type Record struct {
	order.Session
	HistoryID   string    `json:"historyId"`
	CompletedAt time.Time `json:"completedAt"`
}

// Key returns the store key of a history id.
func Key(historyID string) string {
	return store.HistoryPrefix + historyID
}

// Archiver writes history records. Records are never updated.
type Archiver struct {
	store    store.Store
	notifier feed.Notifier
	logger   apt.Logger
	now      func() time.Time
}

func NewArchiver(s store.Store, notifier feed.Notifier, logger apt.Logger) *Archiver {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if notifier == nil {
		notifier = feed.Nop{}
	}
	return &Archiver{
		store:    s,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Archive snapshots s with the completion time under a fresh key.
func (a *Archiver) Archive(ctx context.Context, s *order.Session) (*Record, error) {
	completed := a.now()
	rec := &Record{
		Session:     *s.Clone(),
		HistoryID:   newHistoryID(completed, s.ID),
		CompletedAt: completed,
	}

	key := Key(rec.HistoryID)
	existing, err := a.store.Get(ctx, key)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("history record %s already exists: %w", rec.HistoryID, core.ErrConflict)
	case err != nil && !store.IsNotFound(err):
		return nil, fmt.Errorf("cannot check history record %s: %w", rec.HistoryID, err)
	}

	if err := store.SetJSON(ctx, a.store, key, rec); err != nil {
		return nil, fmt.Errorf("cannot archive session %s: %w", s.ID, err)
	}

	feed.Emit(ctx, a.notifier, a.logger, event.HistoryTopic, event.EventHistoryArchived, rec.HistoryID, s.ID, s.TableID, rec)
	a.logger.Info("session archived", "session_id", s.ID, "history_id", rec.HistoryID, "total", s.TotalAmount)
	return rec, nil
}

// List returns archived sessions, newest first. A limit of zero or less
// returns all of them.
func (a *Archiver) List(ctx context.Context, limit int) ([]*Record, error) {
	entries, err := store.ScanJSON[Record](ctx, a.store, store.HistoryPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot list history: %w", err)
	}

	out := make([]*Record, 0, len(entries))
	for i := range entries {
		rec := &entries[i].Value
		if rec.HistoryID == "" {
			rec.HistoryID = strings.TrimPrefix(entries[i].Key, store.HistoryPrefix)
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// newHistoryID builds <utc timestamp>-<uuid fragment>-<sessionId>. The
// fragment keeps two archives of the same session in the same instant
// apart.
func newHistoryID(at time.Time, sessionID string) string {
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%s-%s", at.UTC().Format(tokenLayout), frag, sessionID)
}
