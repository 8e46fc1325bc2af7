package handlers

import (
	"context"
	"fmt"

	"github.com/arkady/edgarflow/internal/domain"
)

type companyGroupPipelineResult struct {
	GroupID         string `json:"group_id"`
	CompaniesOK     int    `json:"companies_ok"`
	CompaniesFailed int    `json:"companies_failed"`
}

// CompanyGroupPipeline analyzes a defined group of companies as one
// unit, e.g. a sector rollup (spec §4.C table). It runs the
// ingest_pipeline logic for each ticker in the group, containing
// per-company failures so one bad ticker doesn't abort the batch —
// the same swallow-and-continue policy the scheduler's tick loop uses
// across tickers (spec §7).
func (d Deps) CompanyGroupPipeline(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
	var params domain.CompanyGroupPipelineParams
	if err := raw.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode company_group_pipeline params: %w", err)
	}
	if params.GroupID == "" {
		return nil, fmt.Errorf("company_group_pipeline: group_id is required")
	}

	ok, failed := 0, 0
	for _, ticker := range params.Tickers {
		ingestParams, err := domain.EncodeParams(domain.IngestPipelineParams{Ticker: ticker, Forms: params.Forms})
		if err != nil {
			return nil, err
		}
		if _, err := d.IngestPipeline(ctx, ingestParams); err != nil {
			failed++
			continue
		}
		ok++
	}

	return domain.EncodeParams(companyGroupPipelineResult{GroupID: params.GroupID, CompaniesOK: ok, CompaniesFailed: failed})
}
