package menu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/go-chi/chi/v5"
)

func newService() *Service {
	return NewService(store.NewMemoryStore(), nil, nil, apt.NewNoopLogger())
}

func TestServiceAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		item    *Item
		wantErr error
	}{
		{name: "valid", item: NewItem("Coffee", "Beverages", 2.99)},
		{name: "freeItem", item: NewItem("Water", "Beverages", 0)},
		{name: "emptyName", item: NewItem("  ", "Beverages", 1), wantErr: core.ErrInvalidInput},
		{name: "negativePrice", item: NewItem("Tea", "Beverages", -1), wantErr: core.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().Add(context.Background(), tt.item)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServiceListSortedByName(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	for _, n := range []string{"tiramisu", "Coffee", "Beef Steak"} {
		if _, err := svc.Add(ctx, NewItem(n, "x", 1)); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if items[0].Name != "Beef Steak" || items[1].Name != "Coffee" || items[2].Name != "tiramisu" {
		t.Errorf("List() order = %s, %s, %s", items[0].Name, items[1].Name, items[2].Name)
	}
}

func TestServiceUpdatePartial(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	item, _ := svc.Add(ctx, NewItem("Coffee", "Beverages", 2.99))

	price := 3.5
	got, err := svc.Update(ctx, item.ID, ItemUpdate{Price: &price})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Price != 3.5 || got.Name != "Coffee" || got.UpdatedAt == nil {
		t.Errorf("Update() = %+v", got)
	}

	if _, err := svc.Update(ctx, "menu-missing", ItemUpdate{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update(missing) error = %v", err)
	}
}

func TestServiceSetAvailability(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	item, _ := svc.Add(ctx, NewItem("Coffee", "Beverages", 2.99))

	got, err := svc.SetAvailability(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("SetAvailability() error = %v", err)
	}
	if got.Available {
		t.Error("item should be unavailable")
	}
}

func TestHandlerMenuRoutes(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	item, _ := svc.Add(ctx, NewItem("Coffee", "Beverages", 2.99))

	h := NewHandler(HandlerDeps{Service: svc}, apt.NewConfig(), apt.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "list", method: http.MethodGet, path: "/menu", wantStatus: http.StatusOK},
		{name: "add", method: http.MethodPost, path: "/add-menu-item", body: `{"name":"Tea","category":"Beverages","price":2.5}`, wantStatus: http.StatusCreated},
		{name: "addInvalid", method: http.MethodPost, path: "/add-menu-item", body: `{"name":"","price":2.5}`, wantStatus: http.StatusBadRequest},
		{name: "update", method: http.MethodPost, path: "/update-menu-item", body: `{"id":"` + item.ID + `","name":"Espresso"}`, wantStatus: http.StatusOK},
		{name: "updateMissingID", method: http.MethodPost, path: "/update-menu-item", body: `{"name":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "updateUnknown", method: http.MethodPost, path: "/update-menu-item", body: `{"id":"menu-x","name":"x"}`, wantStatus: http.StatusNotFound},
		{name: "toggle", method: http.MethodPost, path: "/toggle-menu-availability", body: `{"id":"` + item.ID + `","available":false}`, wantStatus: http.StatusOK},
		{name: "delete", method: http.MethodPost, path: "/delete-menu-item", body: `{"id":"menu-x"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	stored, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Name != "Espresso" || stored.Available {
		t.Errorf("stored item = %+v", stored)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/menu", nil))
	var resp struct {
		Data []Item `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("menu size = %d, want 2", len(resp.Data))
	}
}
