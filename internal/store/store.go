// Package store persists enrolled fingerprints as opaque JSON values keyed by
// modality.
//
// Every backend implements Store. Values are written and read whole; there
// is no partial update and no namespacing beyond the key itself.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("store: not found")

	// ErrTampered is returned by a sealed store when a record fails its
	// integrity check.
	ErrTampered = errors.New("store: record integrity check failed")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store is the pattern persistence port.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}
