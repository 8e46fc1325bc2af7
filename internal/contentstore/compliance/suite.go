// Package compliance runs a standard behavioral suite against any
// contentstore.BlobStore implementation, adapted from the teacher's
// internal/storage/compliance.RunStorageComplianceTest: the same
// setup/teardown closure shape, narrowed to put/get semantics.
package compliance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkady/edgarflow/internal/contentstore"
)

// RunBlobStoreComplianceTest runs a standard set of tests against a
// BlobStore implementation. setup returns a fresh store and a teardown
// func called after each subtest.
func RunBlobStoreComplianceTest(t *testing.T, setup func() (contentstore.BlobStore, func())) {
	t.Run("PutAndGet", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		key := uuid.New().String()
		body := []byte("generated content body")

		require.NoError(t, store.Put(ctx, key, body))

		fetched, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, body, fetched)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		key := uuid.New().String()
		require.NoError(t, store.Put(ctx, key, []byte("first")))
		require.NoError(t, store.Put(ctx, key, []byte("second")))

		fetched, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), fetched)
	})

	t.Run("GetMissingKey", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		_, err := store.Get(ctx, "missing-"+uuid.New().String())
		assert.ErrorIs(t, err, contentstore.ErrNotFound)
	})
}
