// Package store provides the SQLite persistence layer for the schema registry.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/leadsync/dbopen"
)

// Store is the schema registry database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the registry database at path and applies Schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// InTx runs fn in a transaction. Every mutation goes through Tx so that the
// element change and its history record commit together.
func (s *Store) InTx(ctx context.Context, actor string, fn func(*Tx) error) error {
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		return fn(&Tx{tx: tx, actor: actor})
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
