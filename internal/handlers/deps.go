// Package handlers implements the eight registered job-type handlers
// (spec §4.C table) the worker pool dispatches to. Each handler is a
// thin orchestration layer over the collaborators package's external
// contracts (EDGAR, extraction, LLM, content store) plus the queue and
// pipeline packages for fanning out follow-up work — the business
// logic those collaborators themselves embody is out of scope (spec
// §1) and is represented here only by the interfaces handlers call
// through.
package handlers

import (
	"time"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/handler"
	"github.com/arkady/edgarflow/internal/pipeline"
	"github.com/arkady/edgarflow/internal/queue"
)

// Deps bundles everything a handler needs beyond its own params:
// the external collaborators, the queue (to enqueue follow-up jobs),
// and the pipeline tracker (to update run state as compound jobs
// progress).
type Deps struct {
	Edgar        collaborators.EdgarClient
	Extractor    collaborators.DocumentExtractor
	LLM          collaborators.LLMClient
	Content      collaborators.ContentStore
	Jobs         queue.Store
	Runs         *pipeline.Tracker
	LLMTimeout   time.Duration
	SectionKinds []collaborators.SectionKind
}

// DefaultSectionKinds is the set of sections filing_ingestion extracts
// from each filing and lists in the content_generation jobs it enqueues.
var DefaultSectionKinds = []collaborators.SectionKind{
	collaborators.SectionBusinessDescription,
	collaborators.SectionRiskFactors,
	collaborators.SectionManagementDiscussion,
}

// Register binds all eight closed-set job types to their handler
// functions, per spec §4.C's "explicit registration at process start"
// replacement for the source system's decorator-based registration.
func Register(registry *handler.Registry, deps Deps) {
	if deps.LLMTimeout == 0 {
		deps.LLMTimeout = 5 * time.Minute
	}
	if len(deps.SectionKinds) == 0 {
		deps.SectionKinds = DefaultSectionKinds
	}

	registry.Register("company_ingestion", deps.CompanyIngestion)
	registry.Register("filing_ingestion", deps.FilingIngestion)
	registry.Register("content_generation", deps.ContentGeneration)
	registry.Register("ingest_pipeline", deps.IngestPipeline)
	registry.Register("full_pipeline", deps.FullPipeline)
	registry.Register("bulk_ingest", deps.BulkIngest)
	registry.Register("company_group_pipeline", deps.CompanyGroupPipeline)
	registry.Register("test", Echo)
}
