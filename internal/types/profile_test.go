package types

import (
	"testing"
)

func validProfile() *ModelProfile {
	return &ModelProfile{
		ID:       "test-model",
		Provider: "openai",
		Capabilities: map[string]float64{
			DimReasoning: 0.8,
			DimCode:      0.9,
		},
		CostInPer1K:         0.001,
		CostOutPer1K:        0.002,
		AvgLatencyMS:        500,
		ContextWindowTokens: 8192,
		QualityScore:        0.85,
		PreferredTaskTags:   []string{"code"},
		Enabled:             true,
	}
}

func TestModelProfile_Validate(t *testing.T) {
	if err := validProfile().Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ModelProfile)
	}{
		{"missing id", func(p *ModelProfile) { p.ID = "" }},
		{"missing provider", func(p *ModelProfile) { p.Provider = "" }},
		{"unknown capability dimension", func(p *ModelProfile) { p.Capabilities["telepathy"] = 0.5 }},
		{"capability above 1", func(p *ModelProfile) { p.Capabilities[DimCode] = 1.2 }},
		{"capability below 0", func(p *ModelProfile) { p.Capabilities[DimCode] = -0.1 }},
		{"negative input cost", func(p *ModelProfile) { p.CostInPer1K = -0.001 }},
		{"negative output cost", func(p *ModelProfile) { p.CostOutPer1K = -0.001 }},
		{"negative latency", func(p *ModelProfile) { p.AvgLatencyMS = -1 }},
		{"negative context window", func(p *ModelProfile) { p.ContextWindowTokens = -1 }},
		{"quality above 1", func(p *ModelProfile) { p.QualityScore = 1.5 }},
		{"quality below 0", func(p *ModelProfile) { p.QualityScore = -0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(p)
			if err := p.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestModelProfile_CapabilityVector(t *testing.T) {
	p := validProfile()
	vec := p.CapabilityVector()

	if len(vec) != len(CapabilityDimensions) {
		t.Fatalf("expected %d dimensions, got %d", len(CapabilityDimensions), len(vec))
	}

	// reasoning is dimension 0, code is dimension 2; unset dimensions read 0
	if vec[0] != 0.8 {
		t.Errorf("expected reasoning 0.8, got %v", vec[0])
	}
	if vec[2] != 0.9 {
		t.Errorf("expected code 0.9, got %v", vec[2])
	}
	if vec[1] != 0 || vec[3] != 0 || vec[4] != 0 {
		t.Errorf("unset dimensions should be zero: %v", vec)
	}
}

func TestModelProfile_Clone(t *testing.T) {
	p := validProfile()
	cp := p.Clone()

	cp.Capabilities[DimCode] = 0.1
	cp.PreferredTaskTags[0] = "creative"
	cp.QualityScore = 0.2

	if p.Capabilities[DimCode] != 0.9 {
		t.Error("clone shares capability map with original")
	}
	if p.PreferredTaskTags[0] != "code" {
		t.Error("clone shares tag slice with original")
	}
	if p.QualityScore != 0.85 {
		t.Error("clone shares scalar state with original")
	}
}

func TestModelProfile_HasTaskTag(t *testing.T) {
	p := validProfile()
	if !p.HasTaskTag("code") {
		t.Error("expected code tag present")
	}
	if p.HasTaskTag("creative") {
		t.Error("did not expect creative tag")
	}
}

func TestDefaultAnalysis(t *testing.T) {
	a := DefaultAnalysis(0)
	if a.TaskType != TaskOther {
		t.Errorf("expected task other, got %s", a.TaskType)
	}
	if a.Complexity != 0.5 {
		t.Errorf("expected complexity 0.5, got %v", a.Complexity)
	}
	if a.EstimatedInputTokens != 1 {
		t.Errorf("expected token floor of 1, got %d", a.EstimatedInputTokens)
	}
}
