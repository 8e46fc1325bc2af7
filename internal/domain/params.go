package domain

import "time"

// JobParams is the marker interface every job type's typed params
// struct implements. The queue stores and transports params as
// RawParams (opaque JSON); these structs exist so handlers never touch
// an untyped map the way the source system's dynamically-typed job
// dictionaries did — see SPEC_FULL.md §3.
type JobParams interface {
	jobParams()
}

// CompanyIngestionParams fetches company metadata for one ticker.
type CompanyIngestionParams struct {
	Ticker string `json:"ticker"`
}

func (CompanyIngestionParams) jobParams() {}

// FilingIngestionParams fetches filings for one company/form/count,
// extracts their sections, and enqueues content generation as a
// follow-up.
type FilingIngestionParams struct {
	CompanyID string `json:"company_id"`
	Ticker    string `json:"ticker"`
	Form      string `json:"form"`
	Count     int    `json:"count"`
}

func (FilingIngestionParams) jobParams() {}

// ContentGenerationParams invokes the LLM for one (company,
// document-set, prompt) and stores the output.
type ContentGenerationParams struct {
	CompanyID   string   `json:"company_id"`
	FilingID    string   `json:"filing_id"`
	PromptName  string   `json:"prompt_name"`
	ModelConfig string   `json:"model_config"`
	SectionKeys []string `json:"section_keys"`
}

func (ContentGenerationParams) jobParams() {}

// IngestPipelineParams ingests a company plus its filings together.
type IngestPipelineParams struct {
	Ticker string   `json:"ticker"`
	Forms  []string `json:"forms"`
}

func (IngestPipelineParams) jobParams() {}

// FullPipelineParams runs ingest plus all summarization stages for a
// company, as enqueued by the scheduler's tick loop.
type FullPipelineParams struct {
	Ticker  string   `json:"ticker"`
	Forms   []string `json:"forms"`
	Trigger string   `json:"trigger"`
}

func (FullPipelineParams) jobParams() {}

// BulkFilingEntry is one filing discovered by the scheduler's global
// current-filings diff, carried verbatim into a bulk_ingest job since
// the handler has no per-ticker context to re-derive it from.
type BulkFilingEntry struct {
	AccessionNumber string    `json:"accession_number"`
	CIK             string    `json:"cik"`
	CompanyName     string    `json:"company_name"`
	FilingDate      time.Time `json:"filing_date"`
}

// BulkIngestParams processes a batch of filings discovered across all
// EDGAR companies via the current-filings feed.
type BulkIngestParams struct {
	Form    string            `json:"form"`
	Filings []BulkFilingEntry `json:"filings"`
}

func (BulkIngestParams) jobParams() {}

// CompanyGroupPipelineParams analyzes a defined group of companies as
// one unit, e.g. for a sector rollup.
type CompanyGroupPipelineParams struct {
	GroupID string   `json:"group_id"`
	Tickers []string `json:"tickers"`
	Forms   []string `json:"forms"`
}

func (CompanyGroupPipelineParams) jobParams() {}

// TestParams is the echo handler's params, used by integration tests.
// It is an open map rather than a fixed struct because the echo
// handler's entire purpose is to reflect back whatever it was given.
type TestParams map[string]any

func (TestParams) jobParams() {}
