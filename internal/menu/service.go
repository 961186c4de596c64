package menu

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/feed"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/event"
)

// Service manages the menu catalog stored under menu:<id>.
type Service struct {
	store    store.Store
	locks    *store.KeyLocker
	notifier feed.Notifier
	logger   apt.Logger
}

func NewService(s store.Store, locks *store.KeyLocker, notifier feed.Notifier, logger apt.Logger) *Service {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if locks == nil {
		locks = store.NewKeyLocker()
	}
	if notifier == nil {
		notifier = feed.Nop{}
	}
	return &Service{store: s, locks: locks, notifier: notifier, logger: logger}
}

// List returns the catalog sorted by name.
func (s *Service) List(ctx context.Context) ([]*Item, error) {
	entries, err := store.ScanJSON[Item](ctx, s.store, store.MenuPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu: %w", err)
	}

	items := make([]*Item, 0, len(entries))
	for i := range entries {
		items = append(items, &entries[i].Value)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	item, err := store.GetJSON[Item](ctx, s.store, Key(id))
	if err != nil {
		return nil, fmt.Errorf("cannot get menu item %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("menu item %s: %w", id, core.ErrNotFound)
	}
	return item, nil
}

func (s *Service) Add(ctx context.Context, item *Item) (*Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.Put(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Put stores item as is, replacing any previous version.
func (s *Service) Put(ctx context.Context, item *Item) error {
	if err := store.SetJSON(ctx, s.store, Key(item.ID), item); err != nil {
		return fmt.Errorf("cannot save menu item %s: %w", item.ID, err)
	}
	feed.Emit(ctx, s.notifier, s.logger, event.MenuTopic, event.EventMenuItemChanged, item.ID, "", "", item)
	return nil
}

func (s *Service) Update(ctx context.Context, id string, u ItemUpdate) (*Item, error) {
	unlock := s.locks.Lock(Key(id))
	defer unlock()

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.apply(u)
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.Put(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (*Item, error) {
	return s.Update(ctx, id, ItemUpdate{Available: &available})
}

// Delete removes the item. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("cannot delete menu item %s: %w", id, err)
	}
	feed.Emit(ctx, s.notifier, s.logger, event.MenuTopic, event.EventMenuItemDeleted, id, "", "", nil)
	return nil
}
