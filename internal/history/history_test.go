package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/kitchen"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/internal/tables"
	"github.com/go-chi/chi/v5"
)

type fixture struct {
	store      *store.MemoryStore
	registry   *tables.Registry
	ledger     *order.Ledger
	dispatcher *kitchen.Dispatcher
	archiver   *Archiver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	locks := store.NewKeyLocker()
	registry := tables.NewRegistry(tables.NewStoreRepo(st), locks, nil, apt.NewNoopLogger())
	ledger := order.NewLedger(order.LedgerDeps{Store: st, Tables: registry, Locks: locks}, apt.NewNoopLogger())
	dispatcher := kitchen.NewDispatcher(kitchen.DispatcherDeps{Store: st, Ledger: ledger}, apt.NewNoopLogger())
	archiver := NewArchiver(st, nil, apt.NewNoopLogger())
	registry.UseSessions(ledger, NewCloser(archiver, ledger, dispatcher, apt.NewNoopLogger()))

	for _, n := range []int{1, 2} {
		if _, err := registry.Add(context.Background(), n, 4); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return &fixture{store: st, registry: registry, ledger: ledger, dispatcher: dispatcher, archiver: archiver}
}

func (f *fixture) order(t *testing.T, tableID string) *order.Session {
	t.Helper()
	s, err := f.ledger.CreateOrAppendOrder(context.Background(), tableID, []order.LineInput{
		{Name: "Soup", Price: 6, Quantity: 1},
		{Name: "Steak", Price: 22, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateOrAppendOrder() error = %v", err)
	}
	return s
}

func TestArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "table-1")

	fixed := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)
	f.archiver.now = func() time.Time { return fixed }

	first, err := f.archiver.Archive(ctx, s)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	second, err := f.archiver.Archive(ctx, s)
	if err != nil {
		t.Fatalf("second Archive() error = %v", err)
	}

	if first.HistoryID == second.HistoryID {
		t.Error("archives in the same instant must not share a key")
	}
	if !strings.HasSuffix(first.HistoryID, "-"+s.ID) || !strings.HasPrefix(first.HistoryID, "20260314T203000") {
		t.Errorf("history id = %s", first.HistoryID)
	}
	if !first.CompletedAt.Equal(fixed) || first.ID != s.ID || first.TotalAmount != s.TotalAmount {
		t.Errorf("record = %+v", first)
	}

	raw, err := f.store.Get(ctx, Key(first.HistoryID))
	if err != nil {
		t.Fatalf("stored record missing: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"id", "tableId", "items", "totalAmount", "completedAt"} {
		if _, ok := doc[field]; !ok {
			t.Errorf("stored record lacks %s", field)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "table-1")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		f.archiver.now = func() time.Time { return at }
		if _, err := f.archiver.Archive(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "all", limit: 0, want: 3},
		{name: "limited", limit: 2, want: 2},
		{name: "limitAboveCount", limit: 10, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.archiver.List(ctx, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("List() = %d records, want %d", len(got), tt.want)
			}
			if !got[0].CompletedAt.Equal(base.Add(2 * time.Hour)) {
				t.Errorf("first record completed at %v", got[0].CompletedAt)
			}
		})
	}
}

func TestCompleteTableArchivesAndCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "table-1")
	if _, err := f.dispatcher.Dispatch(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	other := f.order(t, "table-2")
	if _, err := f.dispatcher.Dispatch(ctx, other.ID); err != nil {
		t.Fatal(err)
	}

	tbl, err := f.registry.Complete(ctx, "table-1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if tbl.Status != "empty" || tbl.SessionID != nil {
		t.Errorf("table = %+v", tbl)
	}

	if got, _ := f.ledger.Find(ctx, s.ID); got != nil {
		t.Error("session should be deleted")
	}
	if left := ticketsOf(t, f, s.ID); len(left) != 0 {
		t.Errorf("tickets left = %d", len(left))
	}
	if left := ticketsOf(t, f, other.ID); len(left) != 1 {
		t.Error("other session's ticket should remain")
	}

	records, _ := f.archiver.List(ctx, 0)
	if len(records) != 1 || records[0].ID != s.ID || records[0].CompletedAt.IsZero() {
		t.Errorf("history = %+v", records)
	}
}

func TestCloserMissingSession(t *testing.T) {
	f := newFixture(t)
	remover := &MockTicketRemover{}
	closer := NewCloser(f.archiver, f.ledger, remover, apt.NewNoopLogger())

	if err := closer.CloseSession(context.Background(), "session-gone"); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if records, _ := f.archiver.List(context.Background(), 0); len(records) != 0 {
		t.Error("nothing should be archived")
	}
	if len(remover.Deleted) != 1 || remover.Deleted[0] != "session-gone" {
		t.Errorf("tickets deleted for %v", remover.Deleted)
	}
}

func TestCloserTicketFailure(t *testing.T) {
	f := newFixture(t)
	s := f.order(t, "table-1")
	remover := &MockTicketRemover{DeleteTicketsFunc: func(context.Context, string) (int, error) {
		return 0, errors.New("store down")
	}}
	closer := NewCloser(f.archiver, f.ledger, remover, apt.NewNoopLogger())

	if err := closer.CloseSession(context.Background(), s.ID); err == nil {
		t.Fatal("CloseSession() should fail")
	}
	// Archive happened before the ticket failure.
	if records, _ := f.archiver.List(context.Background(), 0); len(records) != 1 {
		t.Errorf("history = %d records", len(records))
	}
}

func TestHandlerListHistory(t *testing.T) {
	f := newFixture(t)
	s := f.order(t, "table-1")
	if _, err := f.archiver.Archive(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(HandlerDeps{Archiver: f.archiver}, apt.NewConfig(), apt.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{name: "default", wantStatus: http.StatusOK, wantCount: 1},
		{name: "explicitLimit", query: "?limit=1", wantStatus: http.StatusOK, wantCount: 1},
		{name: "badLimit", query: "?limit=x", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history"+tt.query, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Data []Record `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Data) != tt.wantCount {
				t.Errorf("records = %d, want %d", len(resp.Data), tt.wantCount)
			}
		})
	}
}

func ticketsOf(t *testing.T, f *fixture, sessionID string) []*kitchen.Ticket {
	t.Helper()
	all, err := f.dispatcher.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var out []*kitchen.Ticket
	for _, tk := range all {
		if tk.SessionID == sessionID {
			out = append(out, tk)
		}
	}
	return out
}
