package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/llmretry"
)

type contentGenerationResult struct {
	ContentID    string `json:"content_id"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// ContentGeneration invokes the LLM for one (company, filing, prompt)
// and stores the output, upserted by content hash (spec §6's
// ContentStore contract). The LLM call is wrapped in the bounded
// exponential-backoff helper (spec §4.F) so a transient LLM outage
// doesn't fail the job outright.
func (d Deps) ContentGeneration(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
	var params domain.ContentGenerationParams
	if err := raw.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode content_generation params: %w", err)
	}
	if params.CompanyID == "" || params.FilingID == "" {
		return nil, fmt.Errorf("content_generation: company_id and filing_id are required")
	}

	cfg := collaborators.ModelConfig{Model: params.ModelConfig, Temperature: 0.2, MaxTokens: 2048}
	systemPrompt := "You are a financial filings analyst."
	userPrompt := fmt.Sprintf("Summarize filing %s for %s using sections: %v", params.FilingID, params.CompanyID, params.SectionKeys)

	var result collaborators.GenerateResult
	err := llmretry.Do(ctx, d.LLMTimeout, func(ctx context.Context) error {
		var genErr error
		result, genErr = d.LLM.Generate(ctx, cfg, systemPrompt, userPrompt)
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("generate content for %s: %w", params.FilingID, err)
	}

	hash := contentHash(params.FilingID, params.PromptName, result.Text)
	gc := collaborators.GeneratedContent{
		ID:          "content-" + hash,
		CompanyID:   params.CompanyID,
		FilingID:    params.FilingID,
		PromptName:  params.PromptName,
		Text:        result.Text,
		ContentHash: hash,
	}
	if err := d.Content.PutGeneratedContent(ctx, gc); err != nil {
		return nil, fmt.Errorf("store generated content for %s: %w", params.FilingID, err)
	}

	return domain.EncodeParams(contentGenerationResult{
		ContentID:    gc.ID,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	})
}

func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
