package fs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkady/edgarflow/internal/contentstore"
	"github.com/arkady/edgarflow/internal/contentstore/compliance"
)

func TestStore_Compliance(t *testing.T) {
	compliance.RunBlobStoreComplianceTest(t, func() (contentstore.BlobStore, func()) {
		tmpDir, err := os.MkdirTemp("", "contentstore-fs-test-*")
		require.NoError(t, err)

		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		cleanup := func() {
			os.RemoveAll(tmpDir)
		}

		return store, cleanup
	})
}
