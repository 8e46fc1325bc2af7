package handlers

import (
	"context"
	"fmt"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/domain"
)

type filingIngestionResult struct {
	FilingsIngested int      `json:"filings_ingested"`
	ContentJobIDs   []string `json:"content_job_ids"`
}

// FilingIngestion fetches up to Count filings of Form for one company,
// persists them, extracts their sections, and enqueues one
// content_generation follow-up job per filing (spec §4.C table).
func (d Deps) FilingIngestion(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
	var params domain.FilingIngestionParams
	if err := raw.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode filing_ingestion params: %w", err)
	}
	if params.Ticker == "" || params.Form == "" {
		return nil, fmt.Errorf("filing_ingestion: ticker and form are required")
	}
	count := params.Count
	if count <= 0 {
		count = 10
	}
	companyID := params.CompanyID
	if companyID == "" {
		companyID = "company-" + params.Ticker
	}

	refs, err := d.Edgar.GetRecentFilings(ctx, params.Ticker, params.Form, count)
	if err != nil {
		return nil, fmt.Errorf("fetch filings for %s/%s: %w", params.Ticker, params.Form, err)
	}

	known, err := d.Content.KnownAccessionNumbers(ctx, companyID, params.Form)
	if err != nil {
		return nil, fmt.Errorf("list known accession numbers for %s: %w", companyID, err)
	}

	var jobIDs []string
	for _, ref := range refs {
		if _, seen := known[ref.AccessionNumber]; seen {
			continue
		}

		filing := collaborators.Filing{
			ID:              "filing-" + ref.AccessionNumber,
			CompanyID:       companyID,
			AccessionNumber: ref.AccessionNumber,
			Form:            ref.Form,
			FilingDate:      ref.FilingDate,
		}
		if err := d.Content.UpsertFiling(ctx, filing); err != nil {
			return nil, fmt.Errorf("upsert filing %s: %w", ref.AccessionNumber, err)
		}

		sections, err := d.Extractor.GetSections(ctx, ref, d.SectionKinds)
		if err != nil {
			return nil, fmt.Errorf("extract sections for %s: %w", ref.AccessionNumber, err)
		}
		if err := d.Content.PutDocumentSections(ctx, filing.ID, sections); err != nil {
			return nil, fmt.Errorf("store sections for %s: %w", ref.AccessionNumber, err)
		}

		jobParams, err := domain.EncodeParams(domain.ContentGenerationParams{
			CompanyID:   companyID,
			FilingID:    filing.ID,
			PromptName:  "filing_summary",
			SectionKeys: sectionKeyStrings(d.SectionKinds),
		})
		if err != nil {
			return nil, fmt.Errorf("encode content_generation params: %w", err)
		}
		job, err := d.Jobs.InsertJob(ctx, domain.JobSpec{
			Type:   domain.JobTypeContentGeneration,
			Params: jobParams,
		})
		if err != nil {
			return nil, fmt.Errorf("enqueue content_generation for %s: %w", ref.AccessionNumber, err)
		}
		jobIDs = append(jobIDs, job.ID)
	}

	return domain.EncodeParams(filingIngestionResult{FilingsIngested: len(jobIDs), ContentJobIDs: jobIDs})
}

func sectionKeyStrings(kinds []collaborators.SectionKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
