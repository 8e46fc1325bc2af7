package handlers

import (
	"context"
	"fmt"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/domain"
)

type bulkIngestResult struct {
	FilingsIngested int `json:"filings_ingested"`
	FilingsFailed   int `json:"filings_failed"`
}

// BulkIngest processes one batch of filings discovered by the
// scheduler's optional global current-filings diff (spec §4.E step 2).
// Unlike filing_ingestion it has no ticker to key off of — each entry
// names its own company by CIK — and it does not fan out
// content_generation jobs, since bulk discovery's purpose is coverage
// of newly-seen accession numbers, not per-ticker summarization.
func (d Deps) BulkIngest(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
	var params domain.BulkIngestParams
	if err := raw.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode bulk_ingest params: %w", err)
	}

	ingested, failed := 0, 0
	for _, entry := range params.Filings {
		cid := "company-cik-" + entry.CIK
		if err := d.Content.UpsertCompany(ctx, collaborators.Company{
			ID:   cid,
			CIK:  entry.CIK,
			Name: entry.CompanyName,
		}); err != nil {
			failed++
			continue
		}

		if err := d.Content.UpsertFiling(ctx, collaborators.Filing{
			ID:              "filing-" + entry.AccessionNumber,
			CompanyID:       cid,
			AccessionNumber: entry.AccessionNumber,
			Form:            params.Form,
			FilingDate:      entry.FilingDate,
		}); err != nil {
			failed++
			continue
		}
		ingested++
	}

	return domain.EncodeParams(bulkIngestResult{FilingsIngested: ingested, FilingsFailed: failed})
}
