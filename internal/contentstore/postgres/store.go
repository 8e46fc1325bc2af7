// Package postgres implements collaborators.ContentStore against the
// companies/filings/document_sections/generated_content/ratings tables
// goose-migrated alongside the job queue and pipeline run tables
// (internal/infrastructure/persistence/postgres/migrations). Generated
// content bodies are delegated to an injected contentstore.BlobStore
// (filesystem or GCS) rather than stored inline, keeping large
// LLM-generated text out of Postgres rows.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/contentstore"
)

// Store is the Postgres-backed ContentStore. It takes an already
// configured pool (typically shared with the job-queue/pipeline-run
// persistence adapter via its Pool() accessor, so migrations run once).
type Store struct {
	pool  *pgxpool.Pool
	blobs contentstore.BlobStore
}

// NewStore wraps pool and blobs into a ContentStore.
func NewStore(pool *pgxpool.Pool, blobs contentstore.BlobStore) *Store {
	return &Store{pool: pool, blobs: blobs}
}

// UpsertCompany inserts or updates a company row, keyed by ID.
func (s *Store) UpsertCompany(ctx context.Context, c collaborators.Company) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO companies (id, ticker, cik, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			ticker     = EXCLUDED.ticker,
			cik        = EXCLUDED.cik,
			name       = EXCLUDED.name,
			updated_at = now()
	`, c.ID, c.Ticker, c.CIK, c.Name)
	if err != nil {
		return fmt.Errorf("upsert company %s: %w", c.ID, err)
	}
	return nil
}

// UpsertFiling inserts or updates a filing row, keyed by accession
// number (the natural key for a SEC filing).
func (s *Store) UpsertFiling(ctx context.Context, f collaborators.Filing) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO filings (id, company_id, accession_number, form, filing_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (accession_number) DO UPDATE SET
			company_id  = EXCLUDED.company_id,
			form        = EXCLUDED.form,
			filing_date = EXCLUDED.filing_date
	`, f.ID, f.CompanyID, f.AccessionNumber, f.Form, f.FilingDate)
	if err != nil {
		return fmt.Errorf("upsert filing %s: %w", f.AccessionNumber, err)
	}
	return nil
}

// PutDocumentSections stores the extracted sections for one filing,
// one row per section kind.
func (s *Store) PutDocumentSections(ctx context.Context, filingID string, sections map[collaborators.SectionKind]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin put document sections: %w", err)
	}
	defer tx.Rollback(ctx)

	for kind, content := range sections {
		if _, err := tx.Exec(ctx, `
			INSERT INTO document_sections (filing_id, kind, content)
			VALUES ($1, $2, $3)
			ON CONFLICT (filing_id, kind) DO UPDATE SET
				content    = EXCLUDED.content,
				updated_at = now()
		`, filingID, string(kind), content); err != nil {
			return fmt.Errorf("put document section %s/%s: %w", filingID, kind, err)
		}
	}
	return tx.Commit(ctx)
}

// PutGeneratedContent writes gc.Text to the blob store under a key
// derived from its content hash, then records the metadata row.
// Idempotent on content hash: re-generating identical content for the
// same filing/prompt is a no-op write, not a duplicate row.
func (s *Store) PutGeneratedContent(ctx context.Context, gc collaborators.GeneratedContent) error {
	blobKey := "generated-content-" + gc.ContentHash
	if err := s.blobs.Put(ctx, blobKey, []byte(gc.Text)); err != nil {
		return fmt.Errorf("store generated content body: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO generated_content (id, company_id, filing_id, prompt_name, content_hash, blob_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (content_hash) DO NOTHING
	`, gc.ID, gc.CompanyID, gc.FilingID, gc.PromptName, gc.ContentHash, blobKey)
	if err != nil {
		return fmt.Errorf("put generated content metadata: %w", err)
	}
	return nil
}

// PutRating inserts one rating row. Ratings are append-only: distinct
// evaluations of the same filing/kind are distinct rows.
func (s *Store) PutRating(ctx context.Context, r collaborators.Rating) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ratings (id, company_id, filing_id, kind, score)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.CompanyID, r.FilingID, r.Kind, r.Score)
	if err != nil {
		return fmt.Errorf("put rating %s: %w", r.ID, err)
	}
	return nil
}

// KnownAccessionNumbers returns the set of accession numbers already
// ingested for companyID+form.
func (s *Store) KnownAccessionNumbers(ctx context.Context, companyID, form string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT accession_number FROM filings WHERE company_id = $1 AND form = $2
	`, companyID, form)
	if err != nil {
		return nil, fmt.Errorf("query known accession numbers: %w", err)
	}
	return scanAccessionSet(rows)
}

// AllKnownAccessionNumbers returns the global accession-number set for
// form, across every company.
func (s *Store) AllKnownAccessionNumbers(ctx context.Context, form string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT accession_number FROM filings WHERE form = $1
	`, form)
	if err != nil {
		return nil, fmt.Errorf("query all known accession numbers: %w", err)
	}
	return scanAccessionSet(rows)
}

// TrackedTickers returns every company marked tracked, the population
// the scheduler polls each tick.
func (s *Store) TrackedTickers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker FROM companies WHERE tracked AND ticker <> '' ORDER BY ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("query tracked tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("scan tracked ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}

func scanAccessionSet(rows pgx.Rows) (map[string]struct{}, error) {
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var accession string
		if err := rows.Scan(&accession); err != nil {
			return nil, fmt.Errorf("scan accession number: %w", err)
		}
		set[accession] = struct{}{}
	}
	return set, rows.Err()
}
