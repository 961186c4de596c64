package tables

import (
	"context"
	"fmt"
	"sort"

	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/store"
)

type TableRepo interface {
	Get(ctx context.Context, id string) (*Table, error)
	List(ctx context.Context) ([]*Table, error)
	Save(ctx context.Context, table *Table) error
	Delete(ctx context.Context, id string) error
}

// StoreRepo keeps tables under table:<id>.
type StoreRepo struct {
	store store.Store
}

func NewStoreRepo(s store.Store) *StoreRepo {
	return &StoreRepo{store: s}
}

// Get returns nil when the table does not exist.
func (r *StoreRepo) Get(ctx context.Context, id string) (*Table, error) {
	t, err := store.GetJSON[Table](ctx, r.store, Key(id))
	if err != nil {
		return nil, fmt.Errorf("cannot get table %s: %w", id, err)
	}
	return t, nil
}

// List returns every table sorted by number.
func (r *StoreRepo) List(ctx context.Context) ([]*Table, error) {
	entries, err := store.ScanJSON[Table](ctx, r.store, store.TablePrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}

	out := make([]*Table, 0, len(entries))
	for i := range entries {
		out = append(out, &entries[i].Value)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *StoreRepo) Save(ctx context.Context, table *Table) error {
	if table == nil || table.ID == "" {
		return fmt.Errorf("table without id: %w", core.ErrInvalidInput)
	}
	if err := store.SetJSON(ctx, r.store, Key(table.ID), table); err != nil {
		return fmt.Errorf("cannot save table %s: %w", table.ID, err)
	}
	return nil
}

func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("cannot delete table %s: %w", id, err)
	}
	return nil
}
