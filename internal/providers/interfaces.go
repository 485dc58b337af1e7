package providers

import (
	"context"

	"github.com/tributary-ai/routing-engine/internal/types"
)

// GenerationResult is the uniform success shape every backend adapter
// normalizes into.
type GenerationResult struct {
	Text      string `json:"text"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	LatencyMS int64  `json:"latency_ms"`
}

// Provider is the single capability interface the execution controller
// depends on. One implementation per backend provider; the controller never
// touches concrete provider types. Timeouts arrive on ctx; implementations
// must honor cancellation promptly.
type Provider interface {
	Name() string
	Generate(ctx context.Context, modelID, prompt string, params types.GenerationParams) (*GenerationResult, error)
}
