package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore keeps every key in one table of (key text, value jsonb) rows.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore wraps pool. table must be a plain lower case identifier.
func NewPostgresStore(pool *pgxpool.Pool, table string) (*PostgresStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid postgres table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// EnsureSchema creates the table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key   TEXT PRIMARY KEY,
		value JSONB NOT NULL
	)`, s.table))
	if err != nil {
		return fmt.Errorf("cannot create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table), key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("cannot get %s: %w", key, err)
	}
	return v, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, s.upsert(), key, value); err != nil {
		return fmt.Errorf("cannot set %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key); err != nil {
		return fmt.Errorf("cannot delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	// COLLATE "C" keeps the ordering bytewise, matching the other backends.
	q := fmt.Sprintf(`SELECT key, value FROM %s WHERE key LIKE $1 ESCAPE '\' ORDER BY key COLLATE "C"`, s.table)
	rows, err := s.pool.Query(ctx, q, likeEscape(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("cannot read %s row: %w", prefix, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", prefix, err)
	}
	return out, nil
}

func (s *PostgresStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT key, value FROM %s WHERE key = ANY($1)`, s.table), keys)
	if err != nil {
		return nil, fmt.Errorf("cannot mget: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(keys))
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("cannot read mget row: %w", err)
		}
		found[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot mget: %w", err)
	}

	for i, k := range keys {
		out[i] = found[k]
	}
	return out, nil
}

// MSet writes all entries in one transaction.
func (s *PostgresStore) MSet(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("cannot begin mset: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(s.upsert(), e.Key, e.Value)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("cannot mset: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) MDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, s.table), keys); err != nil {
		return fmt.Errorf("cannot mdelete: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) upsert() string {
	return fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, s.table)
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
