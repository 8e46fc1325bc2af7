package handlers

import (
	"context"
	"fmt"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/domain"
)

type companyIngestionResult struct {
	CompanyID string `json:"company_id"`
	Ticker    string `json:"ticker"`
}

// CompanyIngestion fetches a company's EDGAR metadata and upserts it.
// Idempotent by contract: re-running it for the same ticker is a plain
// overwrite, never a duplicate insert.
func (d Deps) CompanyIngestion(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
	var params domain.CompanyIngestionParams
	if err := raw.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode company_ingestion params: %w", err)
	}
	if params.Ticker == "" {
		return nil, fmt.Errorf("company_ingestion: ticker is required")
	}

	filings, err := d.Edgar.GetRecentFilings(ctx, params.Ticker, "10-K", 1)
	if err != nil {
		return nil, fmt.Errorf("resolve company for %s: %w", params.Ticker, err)
	}

	name := params.Ticker
	cik := ""
	if len(filings) > 0 {
		name = filings[0].CompanyName
		cik = filings[0].CIK
	}

	company := collaborators.Company{
		ID:     companyID(params.Ticker),
		Ticker: params.Ticker,
		CIK:    cik,
		Name:   name,
	}
	if err := d.Content.UpsertCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("upsert company %s: %w", params.Ticker, err)
	}

	return domain.EncodeParams(companyIngestionResult{CompanyID: company.ID, Ticker: params.Ticker})
}

// companyID derives a stable company identifier from a ticker. The
// content store is an opaque external collaborator (spec §1); handlers
// only need a natural key that round-trips, which the ticker already
// is for this system's scope (one tracked security per ticker).
func companyID(ticker string) string {
	return "company-" + ticker
}
