package types

import "time"

// Constraint names used in CandidateScore.ConstraintViolations and in
// RoutingDecision.Explanation. Relaxation proceeds quality, latency, cost.
const (
	ConstraintQuality = "quality"
	ConstraintLatency = "latency"
	ConstraintCost    = "cost"
)

// GenerationParams are sampling parameters passed through to the backend
// untouched. Nil fields mean "provider default".
type GenerationParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// RoutingRequest is one incoming task to route. Constraint pointers
// distinguish "unset" from zero; max_cost=0 is a real (if unsatisfiable)
// constraint, not an absent one.
type RoutingRequest struct {
	ID              string           `json:"id,omitempty"`
	Prompt          string           `json:"prompt"`
	MaxCost         *float64         `json:"max_cost,omitempty"`
	MaxLatencyMS    *float64         `json:"max_latency_ms,omitempty"`
	MinQuality      *float64         `json:"min_quality,omitempty"`
	PreferredModels []string         `json:"preferred_models,omitempty"`
	Params          GenerationParams `json:"params"`
}

// RetrievalHint is per-candidate evidence from the documentation corpus.
// A missing hint means no additional evidence, not zero relevance.
type RetrievalHint struct {
	Relevance  float64  `json:"relevance"`
	SnippetIDs []string `json:"snippet_ids,omitempty"`
}

// CandidateScore is one candidate's scoring breakdown. Sub-scores are
// normalized within the candidate set of a single request.
type CandidateScore struct {
	ModelID              string   `json:"model_id"`
	CompositeScore       float64  `json:"composite_score"`
	Capability           float64  `json:"capability"`
	Cost                 float64  `json:"cost"`
	Latency              float64  `json:"latency"`
	Quality              float64  `json:"quality"`
	EstimatedCost        float64  `json:"estimated_cost"`
	ConstraintViolations []string `json:"constraint_violations,omitempty"`
}

// RoutingDecision is the ranked outcome of scoring. The fallback chain is
// attempted in order by the execution controller.
type RoutingDecision struct {
	FallbackChain []CandidateScore `json:"fallback_chain"`
	Confidence    float64          `json:"confidence"`
	Degraded      bool             `json:"degraded"`
	Explanation   []string         `json:"explanation,omitempty"`
}

// Selected returns the top-ranked candidate. Callers must only invoke it on
// a decision with a non-empty chain, which scoring guarantees.
func (d *RoutingDecision) Selected() CandidateScore {
	return d.FallbackChain[0]
}

// ExecutionStatus is the terminal status of one routed request.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "SUCCESS"
	StatusFailure ExecutionStatus = "FAILURE"
)

// Attempt records one backend invocation within a fallback chain.
type Attempt struct {
	ModelID   string  `json:"model_id"`
	Outcome   string  `json:"outcome"` // "success" or a provider error kind
	Retryable bool    `json:"retryable"`
	LatencyMS int64   `json:"latency_ms"`
	Cost      float64 `json:"cost"`
	Error     string  `json:"error,omitempty"`
}

// ExecutionResult is either SUCCESS with a complete response or FAILURE with
// the full attempt trail. Nothing in between is ever returned.
type ExecutionResult struct {
	RequestID     string          `json:"request_id"`
	SelectedModel string          `json:"selected_model,omitempty"`
	ResponseText  string          `json:"response_text,omitempty"`
	TokensIn      int             `json:"tokens_in,omitempty"`
	TokensOut     int             `json:"tokens_out,omitempty"`
	Attempts      []Attempt       `json:"attempts"`
	FallbackUsed  bool            `json:"fallback_used"`
	Status        ExecutionStatus `json:"status"`
	TotalDuration time.Duration   `json:"total_duration_ns"`
}
