package handlers

import (
	"context"
	"fmt"

	"github.com/arkady/edgarflow/internal/domain"
)

type ingestPipelineResult struct {
	CompanyID       string `json:"company_id"`
	FilingsIngested int    `json:"filings_ingested"`
}

// IngestPipeline ingests a company's metadata plus its filings across
// every requested form in one job (spec §4.C table), calling the same
// logic the standalone company_ingestion/filing_ingestion handlers use
// rather than going back through the queue for sub-steps.
func (d Deps) IngestPipeline(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
	var params domain.IngestPipelineParams
	if err := raw.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode ingest_pipeline params: %w", err)
	}
	if params.Ticker == "" {
		return nil, fmt.Errorf("ingest_pipeline: ticker is required")
	}
	forms := params.Forms
	if len(forms) == 0 {
		forms = []string{"10-K", "10-Q"}
	}

	companyParams, err := domain.EncodeParams(domain.CompanyIngestionParams{Ticker: params.Ticker})
	if err != nil {
		return nil, err
	}
	if _, err := d.CompanyIngestion(ctx, companyParams); err != nil {
		return nil, fmt.Errorf("ingest company %s: %w", params.Ticker, err)
	}
	cid := companyID(params.Ticker)

	total := 0
	for _, form := range forms {
		filingParams, err := domain.EncodeParams(domain.FilingIngestionParams{
			CompanyID: cid,
			Ticker:    params.Ticker,
			Form:      form,
			Count:     10,
		})
		if err != nil {
			return nil, err
		}
		resultRaw, err := d.FilingIngestion(ctx, filingParams)
		if err != nil {
			return nil, fmt.Errorf("ingest filings for %s/%s: %w", params.Ticker, form, err)
		}
		var r filingIngestionResult
		if err := resultRaw.Decode(&r); err != nil {
			return nil, err
		}
		total += r.FilingsIngested
	}

	return domain.EncodeParams(ingestPipelineResult{CompanyID: cid, FilingsIngested: total})
}
