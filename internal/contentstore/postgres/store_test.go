package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/arkady/edgarflow/internal/collaborators"
	cspostgres "github.com/arkady/edgarflow/internal/contentstore/postgres"
	persistpostgres "github.com/arkady/edgarflow/internal/infrastructure/persistence/postgres"
)

type memBlobs struct {
	data map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Put(ctx context.Context, key string, body []byte) error {
	m.data[key] = body
	return nil
}

func (m *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	return m.data[key], nil
}

// TestStore_CompanyFilingLifecycle exercises upsert-idempotence and the
// accession-number dedup the scheduler relies on.
func TestStore_CompanyFilingLifecycle(t *testing.T) {
	pgURL := os.Getenv("TEST_POSTGRES_URL")
	if pgURL == "" {
		t.Skip("TEST_POSTGRES_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	persisted, err := persistpostgres.NewPostgresStore(ctx, pgURL)
	require.NoError(t, err)
	defer persisted.Close()

	defer func() {
		db, err := sql.Open("pgx", pgURL)
		if err == nil {
			db.Exec("TRUNCATE TABLE ratings, generated_content, document_sections, filings, companies CASCADE")
			db.Close()
		}
	}()

	store := cspostgres.NewStore(persisted.Pool(), newMemBlobs())

	company := collaborators.Company{ID: "company-acme", Ticker: "ACME", CIK: "0001", Name: "Acme Corp"}
	require.NoError(t, store.UpsertCompany(ctx, company))
	require.NoError(t, store.UpsertCompany(ctx, company)) // idempotent

	filing := collaborators.Filing{
		ID:              "filing-1",
		CompanyID:       company.ID,
		AccessionNumber: "0001-23-000001",
		Form:            "10-K",
		FilingDate:      time.Now().UTC(),
	}
	require.NoError(t, store.UpsertFiling(ctx, filing))

	known, err := store.KnownAccessionNumbers(ctx, company.ID, "10-K")
	require.NoError(t, err)
	_, ok := known[filing.AccessionNumber]
	assert.True(t, ok)

	tickers, err := store.TrackedTickers(ctx)
	require.NoError(t, err)
	assert.Contains(t, tickers, "ACME")

	gc := collaborators.GeneratedContent{
		ID:          "gc-1",
		CompanyID:   company.ID,
		FilingID:    filing.ID,
		PromptName:  "summary",
		Text:        "generated summary text",
		ContentHash: "hash-1",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.PutGeneratedContent(ctx, gc))
	require.NoError(t, store.PutGeneratedContent(ctx, gc)) // idempotent on content hash
}
