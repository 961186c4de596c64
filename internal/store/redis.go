package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisStore maps every key to a redis string holding the JSON value. All keys
// live under a namespace so several engines can share one redis database.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(rdb, cfg.Namespace)
}

func NewRedisStoreWithClient(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("cannot get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("cannot set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("cannot delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	keys, err := s.scanKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(keys))
	for i, k := range keys {
		// Deleted between SCAN and MGET.
		if values[i] == nil {
			continue
		}
		out = append(out, Entry{Key: k, Value: values[i]})
	}
	return out, nil
}

func (s *RedisStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	values, err := s.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot mget: %w", err)
	}

	for i, v := range values {
		if str, ok := v.(string); ok {
			out[i] = []byte(str)
		}
	}
	return out, nil
}

func (s *RedisStore) MSet(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, s.key(e.Key), e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot mset: %w", err)
	}
	return nil
}

func (s *RedisStore) MDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cannot mdelete: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Purge deletes every key in the store namespace that starts with one of the
// given prefixes.
func (s *RedisStore) Purge(ctx context.Context, prefixes ...string) (int, error) {
	total := 0
	for _, p := range prefixes {
		keys, err := s.scanKeys(ctx, p)
		if err != nil {
			return total, err
		}
		if err := s.MDelete(ctx, keys); err != nil {
			return total, err
		}
		total += len(keys)
	}
	return total, nil
}

func (s *RedisStore) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	match := globEscape(s.key(prefix)) + "*"

	var keys []string
	iter := s.rdb.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *RedisStore) key(k string) string {
	return s.namespace + k
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
