package types

import (
	"fmt"
)

// Capability dimensions every profile is scored on. The registry rejects
// profiles with capability keys outside this set.
const (
	DimReasoning    = "reasoning"
	DimCreative     = "creative"
	DimCode         = "code"
	DimAnalysis     = "analysis"
	DimConversation = "conversation"
)

// CapabilityDimensions lists the fixed dimensions in canonical order.
// Vector forms of a capability map always use this ordering.
var CapabilityDimensions = []string{
	DimReasoning,
	DimCreative,
	DimCode,
	DimAnalysis,
	DimConversation,
}

// ModelProfile describes a single backend model known to the registry.
// Profiles are owned by a registry snapshot and must be treated as read-only
// once published; quality updates go through the registry, never in place.
type ModelProfile struct {
	ID                  string             `json:"id" yaml:"id"`
	Provider            string             `json:"provider" yaml:"provider"`
	Capabilities        map[string]float64 `json:"capabilities" yaml:"capabilities"`
	CostInPer1K         float64            `json:"cost_in_per_1k" yaml:"cost_in_per_1k"`
	CostOutPer1K        float64            `json:"cost_out_per_1k" yaml:"cost_out_per_1k"`
	AvgLatencyMS        float64            `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	ContextWindowTokens int                `json:"context_window_tokens" yaml:"context_window_tokens"`
	QualityScore        float64            `json:"quality_score" yaml:"quality_score"`
	PreferredTaskTags   []string           `json:"preferred_task_tags" yaml:"preferred_task_tags"`
	Enabled             bool               `json:"enabled" yaml:"enabled"`
}

// Validate checks the numeric invariants: capability values and quality in
// [0,1], costs and latency non-negative, non-empty id and provider.
func (p *ModelProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("model profile missing id")
	}
	if p.Provider == "" {
		return fmt.Errorf("model %s: missing provider", p.ID)
	}
	for dim, v := range p.Capabilities {
		if !isKnownDimension(dim) {
			return fmt.Errorf("model %s: unknown capability dimension %q", p.ID, dim)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("model %s: capability %s=%v out of [0,1]", p.ID, dim, v)
		}
	}
	if p.CostInPer1K < 0 || p.CostOutPer1K < 0 {
		return fmt.Errorf("model %s: negative cost", p.ID)
	}
	if p.AvgLatencyMS < 0 {
		return fmt.Errorf("model %s: negative latency", p.ID)
	}
	if p.ContextWindowTokens < 0 {
		return fmt.Errorf("model %s: negative context window", p.ID)
	}
	if p.QualityScore < 0 || p.QualityScore > 1 {
		return fmt.Errorf("model %s: quality_score %v out of [0,1]", p.ID, p.QualityScore)
	}
	return nil
}

// CapabilityVector returns the capability map as a dense vector in the
// canonical dimension order. Missing dimensions read as zero.
func (p *ModelProfile) CapabilityVector() []float64 {
	vec := make([]float64, len(CapabilityDimensions))
	for i, dim := range CapabilityDimensions {
		vec[i] = p.Capabilities[dim]
	}
	return vec
}

// HasTaskTag reports whether tag is in the profile's preferred task tags.
func (p *ModelProfile) HasTaskTag(tag string) bool {
	for _, t := range p.PreferredTaskTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used when the registry builds a new snapshot.
func (p *ModelProfile) Clone() *ModelProfile {
	cp := *p
	cp.Capabilities = make(map[string]float64, len(p.Capabilities))
	for k, v := range p.Capabilities {
		cp.Capabilities[k] = v
	}
	cp.PreferredTaskTags = append([]string(nil), p.PreferredTaskTags...)
	return &cp
}

func isKnownDimension(dim string) bool {
	for _, d := range CapabilityDimensions {
		if d == dim {
			return true
		}
	}
	return false
}
