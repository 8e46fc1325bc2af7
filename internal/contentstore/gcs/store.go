// Package gcs adapts the teacher's internal/storage/gcs.Store — a
// bucket-of-JSON-objects todo-list store — into a contentstore.BlobStore
// for generated-content bodies, for deployments where those bodies are
// too large or too numerous to keep comfortably in Postgres.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/arkady/edgarflow/internal/contentstore"
)

// Store is a GCS-backed BlobStore, one object per key.
type Store struct {
	client *storage.Client
	bucket string
}

// NewStore creates a new GCS-backed blob store. It assumes the client
// is authenticated, e.g. via GOOGLE_APPLICATION_CREDENTIALS.
func NewStore(ctx context.Context, bucketName string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &Store{client: client, bucket: bucketName}, nil
}

func (s *Store) objectName(key string) string {
	return key + ".blob"
}

// Put writes body to the object for key, overwriting any prior object.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))
	w := obj.NewWriter(ctx)
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	return w.Close()
}

// Get reads the object for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, contentstore.ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object body %s: %w", key, err)
	}
	return data, nil
}
