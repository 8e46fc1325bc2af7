package gcs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"github.com/arkady/edgarflow/internal/contentstore"
	"github.com/arkady/edgarflow/internal/contentstore/compliance"
)

func TestStore_Compliance(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set, skipping GCS tests")
	}

	compliance.RunBlobStoreComplianceTest(t, func() (contentstore.BlobStore, func()) {
		// Assumes Application Default Credentials are configured and
		// grant access to the bucket.
		ctx := context.Background()

		store, err := NewStore(ctx, bucket)
		require.NoError(t, err)

		cleanup := func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			it := store.client.Bucket(bucket).Objects(cleanupCtx, nil)
			for {
				attrs, err := it.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					t.Logf("warning: failed to list objects during cleanup: %v", err)
					break
				}
				if err := store.client.Bucket(bucket).Object(attrs.Name).Delete(cleanupCtx); err != nil {
					t.Logf("warning: failed to delete object %s: %v", attrs.Name, err)
				}
			}
		}

		return store, cleanup
	})
}
