package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/kitchen"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/internal/tables"
)

type fixture struct {
	store      *store.MemoryStore
	registry   *tables.Registry
	ledger     *order.Ledger
	dispatcher *kitchen.Dispatcher
	mock       *MockDispatcher
	gate       *Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	locks := store.NewKeyLocker()
	registry := tables.NewRegistry(tables.NewStoreRepo(st), locks, nil, apt.NewNoopLogger())
	ledger := order.NewLedger(order.LedgerDeps{Store: st, Tables: registry, Locks: locks}, apt.NewNoopLogger())
	registry.UseSessions(ledger, nil)
	dispatcher := kitchen.NewDispatcher(kitchen.DispatcherDeps{Store: st, Ledger: ledger}, apt.NewNoopLogger())
	mock := &MockDispatcher{Next: dispatcher}
	gate := NewGate(GateDeps{Ledger: ledger, Tables: registry, Kitchen: mock}, apt.NewNoopLogger())

	if _, err := registry.Add(ctx, 1, 4); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return &fixture{store: st, registry: registry, ledger: ledger, dispatcher: dispatcher, mock: mock, gate: gate}
}

func (f *fixture) order(t *testing.T, names ...string) *order.Session {
	t.Helper()
	lines := make([]order.LineInput, 0, len(names))
	for _, n := range names {
		lines = append(lines, order.LineInput{Name: n, Price: 12.5, Quantity: 2})
	}
	s, err := f.ledger.CreateOrAppendOrder(context.Background(), "table-1", lines)
	if err != nil {
		t.Fatalf("CreateOrAppendOrder() error = %v", err)
	}
	return s
}

func (f *fixture) tableStatus(t *testing.T) string {
	t.Helper()
	tbl, err := f.registry.Get(context.Background(), "table-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return tbl.Status
}

func (f *fixture) tickets(t *testing.T) []*kitchen.Ticket {
	t.Helper()
	list, err := f.dispatcher.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return list
}

func TestPay(t *testing.T) {
	f := newFixture(t)
	s := f.order(t, "Soup", "Steak")

	paid, err := f.gate.Pay(context.Background(), s.ID, s.TotalAmount, "card")
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}

	if !paid.Paid() || paid.PaidAt == nil || paid.PaymentMethod != "card" {
		t.Errorf("paid session = %+v", paid)
	}
	if paid.AmountPaid == nil || *paid.AmountPaid != s.TotalAmount {
		t.Errorf("amountPaid = %v", paid.AmountPaid)
	}
	if !paid.OrderSent {
		t.Error("payment should dispatch an unsent order")
	}
	if got := f.tableStatus(t); got != "payment_confirmed" {
		t.Errorf("table status = %s", got)
	}
	if list := f.tickets(t); len(list) != 1 || len(list[0].Items) != 2 {
		t.Errorf("tickets after payment = %+v", list)
	}
}

func TestPayErrors(t *testing.T) {
	tests := []struct {
		name    string
		session func(f *fixture, s *order.Session) string
		method  string
		prepay  bool
		wantErr error
	}{
		{name: "emptyMethod", method: " ", wantErr: core.ErrInvalidInput},
		{name: "unknownSession", session: func(*fixture, *order.Session) string { return "session-missing" }, method: "cash", wantErr: core.ErrNotFound},
		{name: "alreadyPaid", method: "cash", prepay: true, wantErr: core.ErrConflict},
		{name: "unknownSessionWithoutMethod", session: func(*fixture, *order.Session) string { return "session-missing" }, wantErr: core.ErrNotFound},
		{name: "alreadyPaidWithoutMethod", prepay: true, wantErr: core.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.order(t, "Soup")
			if tt.prepay {
				if _, err := f.gate.Pay(context.Background(), s.ID, s.TotalAmount, "card"); err != nil {
					t.Fatal(err)
				}
			}

			id := s.ID
			if tt.session != nil {
				id = tt.session(f, s)
			}

			_, err := f.gate.Pay(context.Background(), id, 1, tt.method)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Pay() error = %v, want %v", err, tt.wantErr)
			}
			if !tt.prepay && tt.session == nil {
				if got, _ := f.ledger.Get(context.Background(), s.ID); got.Paid() {
					t.Error("rejected payment settled the session")
				}
			}
		})
	}
}

func TestPaidSessionIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "Soup")
	if _, err := f.gate.Pay(ctx, s.ID, s.TotalAmount, "cash"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.ledger.UpdateQuantity(ctx, s.ID, s.Items[0].ID, 5); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("UpdateQuantity() error = %v, want forbidden", err)
	}
	if _, err := f.ledger.RemoveItem(ctx, s.ID, s.Items[0].ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("RemoveItem() error = %v, want forbidden", err)
	}
	_, err := f.ledger.CreateOrAppendOrder(ctx, "table-1", []order.LineInput{{Name: "Cake", Price: 3, Quantity: 1}})
	if !errors.Is(err, core.ErrForbidden) {
		t.Errorf("append error = %v, want forbidden", err)
	}
}

func TestPayRecordsMismatchedAmount(t *testing.T) {
	f := newFixture(t)
	s := f.order(t, "Soup")

	paid, err := f.gate.Pay(context.Background(), s.ID, 1, "cash")
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if *paid.AmountPaid != 1 || paid.TotalAmount != s.TotalAmount {
		t.Errorf("paid = %+v", paid)
	}
}

func TestPayKeepsPaymentWhenDispatchFails(t *testing.T) {
	f := newFixture(t)
	f.mock.DispatchOnPaymentFunc = func(context.Context, string) (*kitchen.Ticket, error) {
		return nil, errors.New("kitchen unavailable")
	}
	s := f.order(t, "Soup")

	paid, err := f.gate.Pay(context.Background(), s.ID, s.TotalAmount, "card")
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if !paid.Paid() {
		t.Error("session should be paid")
	}
	stored, _ := f.ledger.Get(context.Background(), s.ID)
	if !stored.Paid() || stored.OrderSent {
		t.Errorf("stored session = %+v", stored)
	}
}

func TestPayWithoutTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "Soup")
	if err := f.store.Delete(ctx, tables.Key("table-1")); err != nil {
		t.Fatal(err)
	}

	paid, err := f.gate.Pay(ctx, s.ID, s.TotalAmount, "card")
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if !paid.Paid() {
		t.Error("session should be paid")
	}
}

func TestConfirmPayLater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "Soup", "Steak")

	confirmed, err := f.gate.ConfirmPayLater(ctx, s.ID)
	if err != nil {
		t.Fatalf("ConfirmPayLater() error = %v", err)
	}
	if !confirmed.OrderSent {
		t.Error("orderSent should be true")
	}
	if got := f.tableStatus(t); got != "payment_pending" {
		t.Errorf("table status = %s", got)
	}
	if list := f.tickets(t); len(list) != 1 || len(list[0].Items) != 2 {
		t.Fatalf("tickets = %+v", list)
	}

	// Nothing new to send.
	if _, err := f.gate.ConfirmPayLater(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if list := f.tickets(t); len(list) != 1 {
		t.Errorf("repeat confirm created a ticket, have %d", len(list))
	}

	appended := f.order(t, "Cake")
	if _, err := f.gate.ConfirmPayLater(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	list := f.tickets(t)
	if len(list) != 2 {
		t.Fatalf("tickets = %d, want 2", len(list))
	}
	second := list[1]
	if !second.IsUpdate || len(second.Items) != 1 || second.Items[0].ID != appended.Items[2].ID {
		t.Errorf("second ticket = %+v", second)
	}
}

func TestConfirmPayLaterReattachesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "Soup")

	_, err := f.registry.Update(ctx, "table-1", "detach", func(tbl *tables.Table) error {
		tbl.SessionID = nil
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.gate.ConfirmPayLater(ctx, s.ID); err != nil {
		t.Fatalf("ConfirmPayLater() error = %v", err)
	}
	tbl, _ := f.registry.Get(ctx, "table-1")
	if tbl.CurrentSession() != s.ID || tbl.Status != "payment_pending" {
		t.Errorf("table = %+v", tbl)
	}
}

func TestConfirmAfterPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.order(t, "Soup")
	if _, err := f.gate.Pay(ctx, s.ID, s.TotalAmount, "card"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.gate.ConfirmPayLater(ctx, s.ID); err != nil {
		t.Fatalf("ConfirmPayLater() error = %v", err)
	}
	if got := f.tableStatus(t); got != "payment_confirmed" {
		t.Errorf("table status = %s, want payment_confirmed", got)
	}
	if len(f.tickets(t)) != 1 {
		t.Error("confirm after payment should not dispatch again")
	}
}

func TestConfirmPayLaterUnknownSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.gate.ConfirmPayLater(context.Background(), "session-missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
	if len(f.mock.Calls) != 0 {
		t.Errorf("dispatcher called %v", f.mock.Calls)
	}
}
