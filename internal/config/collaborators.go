package config

import "github.com/arkady/edgarflow/internal/env"

// Collaborators holds the credentials the reference EdgarClient,
// DocumentExtractor, and LLMClient implementations need. None of this
// is named in spec §6 — the collaborators themselves are contract-only
// there (spec §1) — but cmd/worker and cmd/scheduler need something
// concrete to construct, so their reference implementations' own
// configuration lives here rather than inline in main.
type Collaborators struct {
	EdgarContactEmail string `env:"EDGAR_CONTACT_EMAIL"`
	AnthropicAPIKey   string `env:"ANTHROPIC_API_KEY"`
	DefaultModel      string `env:"LLM_DEFAULT_MODEL"`
}

// LoadCollaborators reads the collaborator credentials from the
// environment.
func LoadCollaborators() (Collaborators, error) {
	c := Collaborators{
		EdgarContactEmail: "edgarflow-ops@example.com",
		DefaultModel:      "claude-3-5-sonnet-20241022",
	}
	if err := env.Load(&c); err != nil {
		return Collaborators{}, err
	}
	return c, nil
}
