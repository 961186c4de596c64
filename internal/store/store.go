package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appetiteclub/dinein/internal/core"
)

// Key prefixes of the persisted layout.
const (
	TablePrefix   = "table:"
	SessionPrefix = "session:"
	KitchenPrefix = "kitchen:"
	HistoryPrefix = "history:"
	MenuPrefix    = "menu:"
	UserPrefix    = "user:"
	SystemPrefix  = "system:"
)

// Prefixes lists every namespace owned by the engine.
var Prefixes = []string{
	TablePrefix,
	SessionPrefix,
	KitchenPrefix,
	HistoryPrefix,
	MenuPrefix,
	UserPrefix,
	SystemPrefix,
}

// Entry is a key with its raw JSON value.
type Entry struct {
	Key   string
	Value []byte
}

// Store is an associative map from string keys to JSON values. It offers no
// transactions and no compare-and-swap; callers serialize read-modify-write
// sequences with a KeyLocker.
type Store interface {
	// Get returns an error wrapping core.ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Scan returns every entry whose key starts with prefix, ordered by key.
	Scan(ctx context.Context, prefix string) ([]Entry, error)
	// MGet returns values in key order; absent keys yield nil.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	MSet(ctx context.Context, entries []Entry) error
	MDelete(ctx context.Context, keys []string) error
	Ping(ctx context.Context) error
}

func notFound(key string) error {
	return fmt.Errorf("key %s: %w", key, core.ErrNotFound)
}

// IsNotFound reports whether err signals an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

// GetJSON loads key into a new T. Absent keys return (nil, nil), the same way
// the repositories answer a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", key, err)
	}
	return &v, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Keyed pairs a decoded value with the key it was stored under.
type Keyed[T any] struct {
	Key   string
	Value T
}

// ScanJSON decodes every value under prefix. Entries that fail to decode are
// reported as an error rather than skipped.
func ScanJSON[T any](ctx context.Context, s Store, prefix string) ([]Keyed[T], error) {
	entries, err := s.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]Keyed[T], 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("cannot decode %s: %w", e.Key, err)
		}
		out = append(out, Keyed[T]{Key: e.Key, Value: v})
	}
	return out, nil
}

// Clear deletes every key under the engine prefixes and returns how many
// were removed.
func Clear(ctx context.Context, s Store) (int, error) {
	removed := 0
	for _, prefix := range Prefixes {
		entries, err := s.Scan(ctx, prefix)
		if err != nil {
			return removed, fmt.Errorf("cannot scan %s: %w", prefix, err)
		}
		if len(entries) == 0 {
			continue
		}
		keys := make([]string, 0, len(entries))
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		if err := s.MDelete(ctx, keys); err != nil {
			return removed, fmt.Errorf("cannot delete %s keys: %w", prefix, err)
		}
		removed += len(keys)
	}
	return removed, nil
}
