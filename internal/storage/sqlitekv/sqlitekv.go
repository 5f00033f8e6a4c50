// Package sqlitekv stores session blobs in the station's SQLite database,
// one row per key in the goose-migrated kv table.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maxepunk/ALNScanner-sub001/internal/migrations"
	"github.com/maxepunk/ALNScanner-sub001/internal/storage"
)

// Store is a KV backed by a libSQL connection. It owns the connection and
// closes it on Close.
type Store struct {
	db *sql.DB
}

var _ storage.KV = (*Store)(nil)

// New runs migrations and wraps db as a KV store.
func New(db *sql.DB) (*Store, error) {
	if err := migrations.Run(db); err != nil {
		return nil, fmt.Errorf("migrating kv store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv WHERE key = ?
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return value, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *Store) Close() error { return s.db.Close() }
