package kitchen

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/enums/itemstatus"
	"github.com/appetiteclub/dinein/pkg/event"
)

type DispatcherDeps struct {
	Store    store.Store
	Ledger   *order.Ledger
	Notifier feed.Notifier
}

// Dispatcher is the only writer of kitchen tickets. It turns unsent session
// items into tickets and keeps ticket item statuses in line with the
// session, which is the source of truth.
type Dispatcher struct {
	store    store.Store
	ledger   *order.Ledger
	notifier feed.Notifier
	logger   apt.Logger
	clock    batchClock
}

func NewDispatcher(deps DispatcherDeps, logger apt.Logger) *Dispatcher {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = feed.Nop{}
	}
	return &Dispatcher{
		store:    deps.Store,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		logger:   logger,
	}
}

// List returns every ticket, oldest first.
func (d *Dispatcher) List(ctx context.Context) ([]*Ticket, error) {
	entries, err := store.ScanJSON[Ticket](ctx, d.store, store.KitchenPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot list tickets: %w", err)
	}

	out := make([]*Ticket, 0, len(entries))
	for i := range entries {
		out = append(out, &entries[i].Value)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ticketsFor unions the tickets whose key embeds sessionID with every ticket
// whose sessionId field matches, so tickets stored under an unexpected key
// shape are still found.
func (d *Dispatcher) ticketsFor(ctx context.Context, sessionID string) (map[string]*Ticket, error) {
	all, err := store.ScanJSON[Ticket](ctx, d.store, store.KitchenPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot scan tickets: %w", err)
	}

	exact := store.KitchenPrefix + sessionID
	out := make(map[string]*Ticket)
	for i := range all {
		e := all[i]
		byKey := e.Key == exact || strings.HasPrefix(e.Key, exact+"-")
		if byKey || e.Value.SessionID == sessionID {
			t := e.Value
			out[e.Key] = &t
		}
	}
	return out, nil
}

// Dispatch sends the session's unsent items to the kitchen as one new
// ticket. It returns nil when there is nothing to send, so calling it twice
// creates at most one ticket.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string) (*Ticket, error) {
	unlock := d.ledger.Lock(sessionID)
	defer unlock()

	s, err := d.ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return d.dispatch(ctx, s)
}

// DispatchOnPayment makes sure the kitchen acts on everything ordered once
// the session is paid. Nothing happens when the current batch was already
// sent.
func (d *Dispatcher) DispatchOnPayment(ctx context.Context, sessionID string) (*Ticket, error) {
	unlock := d.ledger.Lock(sessionID)
	defer unlock()

	s, err := d.ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.OrderSent {
		return nil, nil
	}
	return d.dispatch(ctx, s)
}

func (d *Dispatcher) dispatch(ctx context.Context, s *order.Session) (*Ticket, error) {
	batch := s.Unsent()
	if len(batch) == 0 {
		if s.OrderSent || len(s.Items) == 0 {
			return nil, nil
		}
		// Every item reads sent but the batch was never confirmed: send the
		// whole order rather than nothing.
		d.logger.Info("no unsent items on an unconfirmed session, dispatching all", "session_id", s.ID)
		batch = s.Items
	}

	existing, err := d.ticketsFor(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	t := newTicket(s, batch, d.clock.next(), len(existing) > 0)
	if err := d.save(ctx, t, event.EventKitchenTicketCreated); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(batch))
	for _, it := range batch {
		ids = append(ids, it.ID)
	}
	s.MarkSent(ids...)
	s.OrderSent = true
	if err := d.ledger.Save(ctx, s, event.EventSessionConfirmed); err != nil {
		return nil, err
	}

	d.logger.Info("ticket dispatched", "ticket_id", t.ID, "session_id", s.ID, "items", len(t.Items), "is_update", t.IsUpdate)
	return t, nil
}

// UpdateItemStatus sets the status of one item. The ticket named by ref is
// looked up first by key, then by its normalized id, and finally by scanning
// every ticket for itemID. The status lands in the session and every ticket
// of the session is re-projected from it; only tickets that changed are
// written.
func (d *Dispatcher) UpdateItemStatus(ctx context.Context, ref, itemID, status string) (*Ticket, error) {
	if itemID == "" {
		return nil, fmt.Errorf("itemId is required: %w", core.ErrInvalidInput)
	}
	if !itemstatus.IsValid(status) {
		return nil, fmt.Errorf("unknown item status %q: %w", status, core.ErrInvalidInput)
	}

	key, resolved, err := d.resolve(ctx, ref, itemID)
	if err != nil {
		return nil, err
	}
	sessionID := resolved.SessionID

	unlock := d.ledger.Lock(sessionID)
	defer unlock()

	tickets, err := d.ticketsFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	current, ok := tickets[key]
	if !ok {
		return nil, fmt.Errorf("ticket %s was removed: %w", resolved.ID, core.ErrNotFound)
	}

	s, err := d.ledger.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s != nil && s.SetItemStatus(itemID, status) {
		if err := d.ledger.Save(ctx, s, event.EventSessionUpdated); err != nil {
			return nil, err
		}
	}

	touched, err := d.writeChanged(ctx, tickets, func(t *Ticket) bool {
		changed := t.setStatus(itemID, status)
		if s != nil && t.project(s) {
			changed = true
		}
		return changed
	})
	if err != nil {
		return nil, err
	}

	feed.Emit(ctx, d.notifier, d.logger, event.KitchenTopic, event.EventKitchenItemStatus, resolved.ID, sessionID, "",
		event.KitchenItemStatusChanged{
			TicketID:       resolved.ID,
			SessionID:      sessionID,
			ItemID:         itemID,
			Status:         status,
			TicketsTouched: touched,
		})

	return current, nil
}

// UpdateAllItemsStatus sets status on every item of every ticket of a
// session and mirrors it into the session. The session is named directly or
// through one of its tickets.
func (d *Dispatcher) UpdateAllItemsStatus(ctx context.Context, ref, sessionID, status string) ([]*Ticket, error) {
	if !itemstatus.IsValid(status) {
		return nil, fmt.Errorf("unknown item status %q: %w", status, core.ErrInvalidInput)
	}
	if ref == "" && sessionID == "" {
		return nil, fmt.Errorf("either sessionId or orderId is required: %w", core.ErrInvalidInput)
	}

	if sessionID == "" {
		t, _, err := d.lookup(ctx, ref)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, fmt.Errorf("ticket %s: %w", ref, core.ErrNotFound)
		}
		sessionID = t.SessionID
	}

	unlock := d.ledger.Lock(sessionID)
	defer unlock()

	tickets, err := d.ticketsFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s, err := d.ledger.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 && s == nil {
		return nil, fmt.Errorf("no tickets for session %s: %w", sessionID, core.ErrNotFound)
	}

	if s != nil {
		changed := false
		for i := range s.Items {
			if s.Items[i].Status != status {
				s.Items[i].Status = status
				changed = true
			}
		}
		if changed {
			if err := d.ledger.Save(ctx, s, event.EventSessionUpdated); err != nil {
				return nil, err
			}
		}
	}

	if _, err := d.writeChanged(ctx, tickets, func(t *Ticket) bool { return t.setStatus("", status) }); err != nil {
		return nil, err
	}

	return sortTickets(tickets), nil
}

// DeleteTickets removes every ticket of a session and returns how many were
// deleted.
func (d *Dispatcher) DeleteTickets(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("sessionId is required: %w", core.ErrInvalidInput)
	}

	unlock := d.ledger.Lock(sessionID)
	defer unlock()

	tickets, err := d.ticketsFor(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if err := d.deleteAll(ctx, tickets); err != nil {
		return 0, err
	}
	return len(tickets), nil
}

// DeleteAllCompleted removes the tickets of every session whose tickets are
// all ready. A session with any item still pending or preparing keeps all
// of its tickets. It returns the ids of the deleted tickets.
func (d *Dispatcher) DeleteAllCompleted(ctx context.Context) ([]string, error) {
	all, err := d.List(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make(map[string]struct{})
	for _, t := range all {
		sessions[t.SessionID] = struct{}{}
	}

	deleted := make([]string, 0)
	for sessionID := range sessions {
		ids, err := d.deleteIfReady(ctx, sessionID)
		if err != nil {
			return deleted, err
		}
		deleted = append(deleted, ids...)
	}
	sort.Strings(deleted)
	return deleted, nil
}

func (d *Dispatcher) deleteIfReady(ctx context.Context, sessionID string) ([]string, error) {
	unlock := d.ledger.Lock(sessionID)
	defer unlock()

	tickets, err := d.ticketsFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if !t.Ready() {
			return nil, nil
		}
	}

	if err := d.deleteAll(ctx, tickets); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// resolve finds the ticket to edit for itemID.
func (d *Dispatcher) resolve(ctx context.Context, ref, itemID string) (string, *Ticket, error) {
	if ref != "" {
		t, key, err := d.lookup(ctx, ref)
		if err != nil {
			return "", nil, err
		}
		if t != nil && t.Has(itemID) {
			return key, t, nil
		}
	}

	entries, err := store.ScanJSON[Ticket](ctx, d.store, store.KitchenPrefix)
	if err != nil {
		return "", nil, fmt.Errorf("cannot scan tickets: %w", err)
	}
	for i := range entries {
		if entries[i].Value.Has(itemID) {
			t := entries[i].Value
			return entries[i].Key, &t, nil
		}
	}

	return "", nil, fmt.Errorf("no ticket contains item %s: %w", itemID, core.ErrNotFound)
}

// lookup tries ref as a store key (or key suffix) and then as a ticket id.
func (d *Dispatcher) lookup(ctx context.Context, ref string) (*Ticket, string, error) {
	direct := ref
	if !strings.HasPrefix(direct, store.KitchenPrefix) {
		direct = store.KitchenPrefix + ref
	}

	for _, key := range []string{direct, KeyOf(ref)} {
		t, err := store.GetJSON[Ticket](ctx, d.store, key)
		if err != nil {
			return nil, "", fmt.Errorf("cannot get ticket %s: %w", key, err)
		}
		if t != nil {
			return t, key, nil
		}
	}
	return nil, "", nil
}

// writeChanged applies fn to every ticket and stores the ones it changed.
func (d *Dispatcher) writeChanged(ctx context.Context, tickets map[string]*Ticket, fn func(t *Ticket) bool) ([]string, error) {
	var entries []store.Entry
	var changed []*Ticket

	for key, t := range tickets {
		if !fn(t) {
			continue
		}
		raw, err := encode(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, store.Entry{Key: key, Value: raw})
		changed = append(changed, t)
	}

	if len(entries) == 0 {
		return nil, nil
	}
	if err := d.store.MSet(ctx, entries); err != nil {
		return nil, fmt.Errorf("cannot save tickets: %w", err)
	}

	ids := make([]string, 0, len(changed))
	for _, t := range changed {
		ids = append(ids, t.ID)
		d.emit(ctx, t, event.EventKitchenTicketUpdated)
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *Dispatcher) deleteAll(ctx context.Context, tickets map[string]*Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tickets))
	for key := range tickets {
		keys = append(keys, key)
	}
	if err := d.store.MDelete(ctx, keys); err != nil {
		return fmt.Errorf("cannot delete tickets: %w", err)
	}

	for _, t := range tickets {
		d.emit(ctx, t, event.EventKitchenTicketDeleted)
	}
	return nil
}

func (d *Dispatcher) save(ctx context.Context, t *Ticket, eventType string) error {
	if err := store.SetJSON(ctx, d.store, KeyOf(t.ID), t); err != nil {
		return fmt.Errorf("cannot save ticket %s: %w", t.ID, err)
	}
	d.emit(ctx, t, eventType)
	return nil
}

func (d *Dispatcher) emit(ctx context.Context, t *Ticket, eventType string) {
	feed.Emit(ctx, d.notifier, d.logger, event.KitchenTopic, eventType, t.ID, t.SessionID, "", t)
}

func sortTickets(m map[string]*Ticket) []*Ticket {
	out := make([]*Ticket, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
