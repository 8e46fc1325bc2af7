// Package contentstore holds the reference ContentStore backends: a
// Postgres-backed implementation of the full collaborators.ContentStore
// contract, plus a smaller BlobStore contract the Postgres adapter
// delegates generated-content bodies to (local filesystem or GCS),
// mirroring the teacher's separation of metadata from bulk object
// storage.
package contentstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a BlobStore when the requested key has no
// stored object.
var ErrNotFound = errors.New("contentstore: blob not found")

// BlobStore persists and retrieves opaque byte payloads by key. It is
// the same shape as the teacher's core.Storage contract (create/get
// object by id), narrowed from a TodoList-shaped record to a raw byte
// body since generated-content text is the only large, bulk-storage
// candidate in this domain — everything else fits comfortably in a
// Postgres row.
type BlobStore interface {
	// Put writes body under key, overwriting any existing object.
	Put(ctx context.Context, key string, body []byte) error

	// Get reads the object stored under key. Returns ErrNotFound if
	// absent.
	Get(ctx context.Context, key string) ([]byte, error)
}
