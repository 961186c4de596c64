package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/internal/menu"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/internal/tables"
	"github.com/appetiteclub/dinein/pkg/enums/tablestatus"
	"github.com/appetiteclub/dinein/pkg/event"
)

// MenuCatalog resolves menu entries referenced by order lines.
type MenuCatalog interface {
	Get(ctx context.Context, id string) (*menu.Item, error)
}

type LedgerDeps struct {
	Store    store.Store
	Tables   *tables.Registry
	Menu     MenuCatalog
	Locks    *store.KeyLocker
	Notifier feed.Notifier
}

// Ledger owns session records: their items, totals and payment status.
type Ledger struct {
	store    store.Store
	tables   *tables.Registry
	menu     MenuCatalog
	locks    *store.KeyLocker
	notifier feed.Notifier
	logger   apt.Logger
}

func NewLedger(deps LedgerDeps, logger apt.Logger) *Ledger {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if deps.Locks == nil {
		deps.Locks = store.NewKeyLocker()
	}
	if deps.Notifier == nil {
		deps.Notifier = feed.Nop{}
	}
	return &Ledger{
		store:    deps.Store,
		tables:   deps.Tables,
		menu:     deps.Menu,
		locks:    deps.Locks,
		notifier: deps.Notifier,
		logger:   logger,
	}
}

// Lock serializes writers of one session. Table locks, when needed, must be
// taken before calling it.
func (l *Ledger) Lock(sessionID string) func() {
	return l.locks.Lock(Key(sessionID))
}

// Find returns nil when the session does not exist.
func (l *Ledger) Find(ctx context.Context, id string) (*Session, error) {
	s, err := store.GetJSON[Session](ctx, l.store, Key(id))
	if err != nil {
		return nil, fmt.Errorf("cannot get session %s: %w", id, err)
	}
	if s != nil && s.Items == nil {
		s.Items = []LineItem{}
	}
	return s, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*Session, error) {
	s, err := l.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	return s, nil
}

// List returns every open session, oldest first.
func (l *Ledger) List(ctx context.Context) ([]*Session, error) {
	entries, err := store.ScanJSON[Session](ctx, l.store, store.SessionPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot list sessions: %w", err)
	}
	out := make([]*Session, 0, len(entries))
	for i := range entries {
		out = append(out, &entries[i].Value)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Save recomputes the total, persists the session and announces the change.
// Callers hold the session lock.
func (l *Ledger) Save(ctx context.Context, s *Session, eventType string) error {
	s.Recompute()
	if err := store.SetJSON(ctx, l.store, Key(s.ID), s); err != nil {
		return fmt.Errorf("cannot save session %s: %w", s.ID, err)
	}
	feed.Emit(ctx, l.notifier, l.logger, event.SessionsTopic, eventType, s.ID, s.ID, s.TableID, s)
	return nil
}

func (l *Ledger) Delete(ctx context.Context, s *Session) error {
	if err := l.store.Delete(ctx, Key(s.ID)); err != nil {
		return fmt.Errorf("cannot delete session %s: %w", s.ID, err)
	}
	feed.Emit(ctx, l.notifier, l.logger, event.SessionsTopic, event.EventSessionClosed, s.ID, s.ID, s.TableID, nil)
	return nil
}

// OpenSession creates an empty session for table. The registry calls it with
// the table lock held and attaches the returned id.
func (l *Ledger) OpenSession(ctx context.Context, t *tables.Table) (string, error) {
	s := NewSession(t.ID, t.Number)
	if err := l.Save(ctx, s, event.EventSessionCreated); err != nil {
		return "", err
	}
	l.logger.Info("session opened", "session_id", s.ID, "table_id", t.ID)
	return s.ID, nil
}

// StartSession opens a session on an empty or reserved table.
func (l *Ledger) StartSession(ctx context.Context, tableID string) (*Session, error) {
	t, err := l.tables.StartSession(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return l.Get(ctx, t.CurrentSession())
}

// CreateOrAppendOrder adds lines to the table's live session, creating one
// when the table has none. Only an empty or reserved table may open a new
// session. A table pointing at a session that no longer exists gets a fresh
// session attached instead of failing the order.
func (l *Ledger) CreateOrAppendOrder(ctx context.Context, tableID string, lines []LineInput) (*Session, error) {
	resolved, err := l.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	var result *Session
	_, err = l.tables.Update(ctx, tableID, "order placed", func(t *tables.Table) error {
		sessionID := t.CurrentSession()

		if sessionID == "" || t.Status == tablestatus.Statuses.Empty.Code() {
			if !startable(t) {
				if t.Inconsistent() {
					l.logger.Info("table holds no session for its status, complete it to reset", "table_id", t.ID, "status", t.Status)
				}
				return fmt.Errorf("table %s is %s and has no session: %w", t.ID, t.Status, core.ErrInvalidState)
			}
			s, err := l.openWith(ctx, t, resolved)
			if err != nil {
				return err
			}
			result = s
			return nil
		}

		unlock := l.Lock(sessionID)
		defer unlock()

		s, err := l.Find(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			l.logger.Info("table references a missing session, recreating", "table_id", t.ID, "session_id", sessionID)
			s, err = l.openWith(ctx, t, resolved)
			if err != nil {
				return err
			}
			result = s
			return nil
		}

		if s.Paid() {
			return fmt.Errorf("session %s is paid: %w", s.ID, core.ErrForbidden)
		}

		l.append(s, resolved)
		if err := l.Save(ctx, s, event.EventSessionUpdated); err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func startable(t *tables.Table) bool {
	s := tablestatus.ByName(t.Status)
	return s != nil && s.Startable()
}

// openWith creates a session holding lines and attaches it to t as occupied.
func (l *Ledger) openWith(ctx context.Context, t *tables.Table, lines []LineInput) (*Session, error) {
	s := NewSession(t.ID, t.Number)
	l.append(s, lines)
	if err := l.Save(ctx, s, event.EventSessionCreated); err != nil {
		return nil, err
	}
	t.Attach(s.ID, tablestatus.Statuses.Occupied)
	return s, nil
}

// append adds lines as pending, unsent items. When the previous batch was
// already dispatched, every existing item is marked sent so only the new
// lines count as unsent.
func (l *Ledger) append(s *Session, lines []LineInput) {
	if len(lines) == 0 {
		return
	}
	if s.OrderSent {
		s.MarkSent()
	}
	for _, in := range lines {
		s.Items = append(s.Items, in.item())
	}
	s.OrderSent = false
}

// resolveLines validates lines. Guests may only order available menu items
// and always pay the menu price; staff lines that name a menu item but no
// name are completed from the menu.
func (l *Ledger) resolveLines(ctx context.Context, lines []LineInput) ([]LineInput, error) {
	guest := core.CallerFrom(ctx) == core.CallerGuest
	out := make([]LineInput, 0, len(lines))

	for _, in := range lines {
		if in.MenuItemID != "" && l.menu != nil && (guest || in.Name == "") {
			item, err := l.menu.Get(ctx, in.MenuItemID)
			switch {
			case errors.Is(err, core.ErrNotFound):
				if guest {
					return nil, fmt.Errorf("menu item %s does not exist: %w", in.MenuItemID, core.ErrInvalidInput)
				}
			case err != nil:
				return nil, err
			default:
				if guest && !item.Available {
					return nil, fmt.Errorf("menu item %s is not available: %w", item.Name, core.ErrInvalidInput)
				}
				in.Name = item.Name
				in.Price = item.Price
			}
		} else if guest {
			return nil, fmt.Errorf("guests can only order menu items: %w", core.ErrInvalidInput)
		}

		if err := in.validate(); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// UpdateQuantity sets the quantity of one item.
func (l *Ledger) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*Session, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", core.ErrInvalidInput)
	}
	return l.mutateItems(ctx, sessionID, func(s *Session) error {
		i := s.ItemIndex(itemID)
		if i < 0 {
			return fmt.Errorf("item %s in session %s: %w", itemID, sessionID, core.ErrNotFound)
		}
		s.Items[i].Quantity = quantity
		return nil
	})
}

// RemoveItem deletes one item. An unknown item id is reported as NotFound.
func (l *Ledger) RemoveItem(ctx context.Context, sessionID, itemID string) (*Session, error) {
	return l.mutateItems(ctx, sessionID, func(s *Session) error {
		i := s.ItemIndex(itemID)
		if i < 0 {
			return fmt.Errorf("item %s in session %s: %w", itemID, sessionID, core.ErrNotFound)
		}
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		return nil
	})
}

func (l *Ledger) mutateItems(ctx context.Context, sessionID string, fn func(s *Session) error) (*Session, error) {
	unlock := l.Lock(sessionID)
	defer unlock()

	s, err := l.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Paid() {
		return nil, fmt.Errorf("session %s is paid and cannot be modified: %w", sessionID, core.ErrForbidden)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := l.Save(ctx, s, event.EventSessionUpdated); err != nil {
		return nil, err
	}
	return s, nil
}
