package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/05vukasin/check-in/internal/db"
)

// KeyStore is the durable store.KeyStore implementation backed by the kv
// table.  Writes go through the single-writer worker; reads hit the handle
// directly.
type KeyStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewKeyStore(conn *sql.DB, writer *dbpkg.Writer) *KeyStore {
	return &KeyStore{db: conn, writer: writer}
}

func (s *KeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?;`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *KeyStore) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv(key, value, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value = excluded.value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, now); err != nil {
			return fmt.Errorf("kv set %q: %w", key, err)
		}
		return nil
	})
}

func (s *KeyStore) Delete(ctx context.Context, key string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?;`, key); err != nil {
			return fmt.Errorf("kv delete %q: %w", key, err)
		}
		return nil
	})
}
