package seeding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/appetiteclub/dinein/internal/authn"
	"github.com/appetiteclub/dinein/internal/menu"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/internal/tables"
	"github.com/appetiteclub/dinein/pkg/enums/tablestatus"
	"github.com/go-chi/chi/v5"
)

type fixture struct {
	store    *store.MemoryStore
	registry *tables.Registry
	menu     *menu.Service
	users    *authn.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	locks := store.NewKeyLocker()
	users, err := authn.NewService(st, authn.Config{}, apt.NewNoopLogger())
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		store:    st,
		registry: tables.NewRegistry(tables.NewStoreRepo(st), locks, nil, apt.NewNoopLogger()),
		menu:     menu.NewService(st, locks, nil, apt.NewNoopLogger()),
		users:    users,
	}
}

func (f *fixture) seeder(t *testing.T, tracker seed.Tracker) *Seeder {
	t.Helper()
	s, err := NewSeeder(Deps{Tables: f.registry, Menu: f.menu, Users: f.users, Tracker: tracker}, apt.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewSeeder() error = %v", err)
	}
	return s
}

func TestApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seeder(t, NewStoreTracker(f.store))

	if err := s.Apply(ctx); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Initialized || status.UserCount != 4 || status.TableCount != 12 || status.MenuCount != 14 {
		t.Errorf("status = %+v", status)
	}

	capacities := map[int]int{1: 2, 2: 4, 3: 6, 4: 4, 9: 6, 11: 2, 12: 6}
	for number, want := range capacities {
		tbl, err := f.registry.Get(ctx, tables.IDFor(number))
		if err != nil {
			t.Fatalf("Get(table %d) error = %v", number, err)
		}
		if tbl.Capacity != want || tbl.Status != tablestatus.Statuses.Empty.Code() {
			t.Errorf("table %d = %+v", number, tbl)
		}
	}

	coffee, err := f.menu.Get(ctx, "menu-13")
	if err != nil || coffee.Name != "Coffee" || coffee.Price != 2.99 || !coffee.Available {
		t.Errorf("menu-13 = %+v, %v", coffee, err)
	}

	if _, err := f.users.Login(ctx, "kitchen@restaurant.com", "kitchen123"); err != nil {
		t.Errorf("seeded kitchen user cannot sign in: %v", err)
	}
}

func TestApplyRunsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := &MockTracker{}
	s := f.seeder(t, tracker)

	if err := s.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if len(tracker.Marked) != 3 {
		t.Fatalf("marked = %v", tracker.Marked)
	}

	// Remove a table; a second Apply must not bring it back.
	if err := f.registry.Remove(ctx, "table-12"); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if len(tracker.Marked) != 3 {
		t.Errorf("seeds marked again: %v", tracker.Marked)
	}
	if _, err := f.registry.Get(ctx, "table-12"); err == nil {
		t.Error("table-12 should stay removed")
	}
}

func TestApplyTrackerFailure(t *testing.T) {
	f := newFixture(t)
	s := f.seeder(t, &MockTracker{HasRunFunc: func(context.Context, string) (bool, error) {
		return false, errors.New("tracker down")
	}})

	if err := s.Apply(context.Background()); err == nil {
		t.Error("Apply() should fail when the tracker fails")
	}
}

func TestForceKeepsLiveTables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seeder(t, NewStoreTracker(f.store))
	if err := s.Apply(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.registry.Reserve(ctx, "table-1"); err != nil {
		t.Fatal(err)
	}
	if err := f.registry.Remove(ctx, "table-12"); err != nil {
		t.Fatal(err)
	}
	if err := f.menu.Delete(ctx, "menu-1"); err != nil {
		t.Fatal(err)
	}

	if err := s.Force(ctx); err != nil {
		t.Fatalf("Force() error = %v", err)
	}

	tbl, _ := f.registry.Get(ctx, "table-1")
	if tbl.Status != tablestatus.Statuses.Reserved.Code() {
		t.Errorf("table-1 status = %s, want reserved", tbl.Status)
	}
	if _, err := f.registry.Get(ctx, "table-12"); err != nil {
		t.Error("table-12 should be recreated")
	}
	if _, err := f.menu.Get(ctx, "menu-1"); err != nil {
		t.Error("menu-1 should be recreated")
	}
}

func TestHandlerInitRoutes(t *testing.T) {
	f := newFixture(t)
	s := f.seeder(t, NewStoreTracker(f.store))
	h := NewHandler(HandlerDeps{Seeder: s}, apt.NewConfig(), apt.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	status := func() Status {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/init-status", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("init-status = %d", w.Code)
		}
		var resp struct {
			Data Status `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		return resp.Data
	}

	if before := status(); before.Initialized || before.UserCount != 0 {
		t.Errorf("before = %+v", before)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/force-init", bytes.NewBufferString(`{}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("force-init = %d, body = %s", w.Code, w.Body.String())
	}

	after := status()
	if !after.Initialized || after.UserCount != 4 {
		t.Errorf("after = %+v", after)
	}
	for _, u := range after.Users {
		if u.Email == "" || u.Role == "" {
			t.Errorf("user profile = %+v", u)
		}
	}
}
