package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/leadsync/dbopen"
)

// Schema is the DDL of the SQLite backend.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite is a Store backed by one table.
type SQLite struct {
	DB *sql.DB
}

// OpenSQLite opens (or creates) a kv database at path.
func OpenSQLite(path string, opts ...dbopen.Option) (*SQLite, error) {
	opts = append(opts, dbopen.WithSchema(Schema), dbopen.WithMkdirAll())
	db, err := dbopen.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("kv: open: %w", err)
	}
	return &SQLite{DB: db}, nil
}

// NewSQLite wraps an open database, creating the table if needed.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("kv: schema: %w", err)
	}
	return &SQLite{DB: db}, nil
}

func (s *SQLite) Close() error { return s.DB.Close() }

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	_, err := dbopen.Exec(ctx, s.DB, upsertSQL, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := dbopen.Exec(ctx, s.DB, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Take(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		v = nil
		err := tx.QueryRowContext(ctx, `DELETE FROM kv WHERE key = ? RETURNING value`, key).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: take %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var cur []byte
		err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&cur)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("kv: update %s: read: %w", key, err)
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		} else {
			_, err = tx.ExecContext(ctx, upsertSQL, key, next, time.Now().UnixMilli())
		}
		if err != nil {
			return fmt.Errorf("kv: update %s: write: %w", key, err)
		}
		return nil
	})
}

const upsertSQL = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
