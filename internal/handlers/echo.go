package handlers

import (
	"context"

	"github.com/arkady/edgarflow/internal/domain"
)

// echoResult is the shape the test handler returns so S1's integration
// scenario (spec §8) can assert on both fields.
type echoResult struct {
	Echo   domain.RawParams `json:"echo"`
	Status string           `json:"status"`
}

// Echo is the `test` job type's handler: it reflects its params back
// verbatim. It has no Deps dependency, matching spec §4.C's
// description of it as an integration-test fixture.
func Echo(_ context.Context, params domain.RawParams) (domain.RawParams, error) {
	return domain.EncodeParams(echoResult{Echo: params, Status: "ok"})
}
