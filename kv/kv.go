// Package kv is the small persistent key-value area shared by the contexts
// of one installation: the token store and the sync handoff slot live here.
//
// Two backends implement Store. SQLite is the default for a single host;
// Redis lets a browser worker on another machine pick up a handoff.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Take when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// UpdateFunc computes the next value of a key from its current value (nil
// when absent). Returning a nil next deletes the key; returning an error
// aborts the update and leaves the key unchanged.
type UpdateFunc func(cur []byte) (next []byte, err error)

// Store is a persistent key-value store with the two atomic operations the
// handoff slot needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) ([]byte, error)

	// Update applies fn under the store's isolation so that no other writer
	// interleaves between the read and the write.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	Close() error
}
