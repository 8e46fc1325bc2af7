// Package collaborators defines the interfaces handlers depend on for
// everything outside the coordination core: the SEC EDGAR client, the
// document section extractor, the LLM client, and the content store.
// Per spec §1 these are specified only by contract; this package holds
// the interfaces and shared value types, not a production EDGAR/LLM
// integration.
package collaborators

import (
	"context"
	"time"
)

// SectionKind identifies one extractable section of a filing.
type SectionKind string

const (
	SectionBusinessDescription   SectionKind = "business_description"
	SectionRiskFactors           SectionKind = "risk_factors"
	SectionManagementDiscussion  SectionKind = "management_discussion"
	SectionLegalProceedings      SectionKind = "legal_proceedings"
	SectionFinancialStatements   SectionKind = "financial_statements"
	SectionControlsAndProcedures SectionKind = "controls_and_procedures"
	SectionMarketForStock        SectionKind = "market_for_stock"
	SectionQuantitativeDisclosure SectionKind = "quantitative_disclosure"
)

// FilingRef identifies one SEC filing as returned by EdgarClient.
type FilingRef struct {
	AccessionNumber string
	FilingDate      time.Time
	Form            string
	CIK             string
	CompanyName     string
}

// EdgarClient fetches filing references from SEC EDGAR.
type EdgarClient interface {
	// GetRecentFilings returns up to count filings of form for ticker,
	// most recent first.
	GetRecentFilings(ctx context.Context, ticker, form string, count int) ([]FilingRef, error)

	// GetCurrentFilings returns the global current-filings feed for
	// form, used by the scheduler's optional bulk-discovery tick.
	GetCurrentFilings(ctx context.Context, form string) ([]FilingRef, error)

	// GetFilingsByDate returns filings of form between from and to.
	GetFilingsByDate(ctx context.Context, form string, from, to time.Time) ([]FilingRef, error)
}

// DocumentExtractor derives structured sections from a filing's raw
// HTML/XBRL.
type DocumentExtractor interface {
	GetSections(ctx context.Context, filing FilingRef, kinds []SectionKind) (map[SectionKind]string, error)
}

// ModelConfig names the LLM model and sampling parameters a generation
// request should use.
type ModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// GenerateResult is the LLM response, including usage accounting the
// content-generation handler persists alongside the generated text.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	StopReason   string
}

// LLMClient generates text from a system/user prompt pair. Must honor
// ctx cancellation so the llmretry helper's cooperative shutdown
// propagates all the way down to the in-flight network call.
type LLMClient interface {
	Generate(ctx context.Context, cfg ModelConfig, systemPrompt, userPrompt string) (GenerateResult, error)
}

// Company is the minimal company record handlers upsert on ingestion.
type Company struct {
	ID     string
	Ticker string
	CIK    string
	Name   string
}

// Filing is the persisted filing metadata row.
type Filing struct {
	ID              string
	CompanyID       string
	AccessionNumber string
	Form            string
	FilingDate      time.Time
}

// GeneratedContent is one LLM output persisted against a filing.
type GeneratedContent struct {
	ID          string
	CompanyID   string
	FilingID    string
	PromptName  string
	Text        string
	ContentHash string
	CreatedAt   time.Time
}

// Rating is a structured score derived from generated content, e.g. a
// sentiment or risk rating attached to a filing.
type Rating struct {
	ID        string
	CompanyID string
	FilingID  string
	Kind      string
	Score     float64
	CreatedAt time.Time
}

// ContentStore persists the domain tables (companies, filings,
// documents, generated content, ratings) the core treats as opaque.
// Upserts are keyed by natural key: accession number for filings,
// content hash for generated content.
type ContentStore interface {
	UpsertCompany(ctx context.Context, c Company) error
	UpsertFiling(ctx context.Context, f Filing) error
	PutDocumentSections(ctx context.Context, filingID string, sections map[SectionKind]string) error
	PutGeneratedContent(ctx context.Context, gc GeneratedContent) error
	PutRating(ctx context.Context, r Rating) error

	// KnownAccessionNumbers returns the accession numbers already
	// ingested for one company+form, used by the scheduler to diff
	// against newly discovered filings.
	KnownAccessionNumbers(ctx context.Context, companyID, form string) (map[string]struct{}, error)

	// AllKnownAccessionNumbers returns the global accession-number set
	// for form, used by the scheduler's bulk-discovery diff.
	AllKnownAccessionNumbers(ctx context.Context, form string) (map[string]struct{}, error)

	// TrackedTickers returns the rolling population of companies the
	// scheduler polls each tick (spec §1's "rolling population of
	// tracked companies").
	TrackedTickers(ctx context.Context) ([]string, error)
}
