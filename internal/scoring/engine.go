package scoring

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/tributary-ai/routing-engine/internal/registry"
	"github.com/tributary-ai/routing-engine/internal/types"
)

// Weights are the composite blend. Defaults come from DefaultConfig; config
// validation requires them to sum to 1.
type Weights struct {
	Capability float64 `yaml:"capability"`
	Cost       float64 `yaml:"cost"`
	Latency    float64 `yaml:"latency"`
	Quality    float64 `yaml:"quality"`
}

// Config holds scoring tuning knobs.
type Config struct {
	Weights Weights `yaml:"weights"`
	// DefaultOutputTokens is the expected-output estimate used for cost when
	// the request does not cap output tokens.
	DefaultOutputTokens int `yaml:"default_output_tokens"`
	// HintBoost scales the additive retrieval-relevance boost on the
	// capability sub-score. The boosted score is capped at 1.
	HintBoost float64 `yaml:"hint_boost"`
	// PreferredTagBoost is added when a candidate lists the task type in its
	// preferred task tags.
	PreferredTagBoost float64 `yaml:"preferred_tag_boost"`
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Capability: 0.4,
			Cost:       0.2,
			Latency:    0.2,
			Quality:    0.2,
		},
		DefaultOutputTokens: 500,
		HintBoost:           0.2,
		PreferredTagBoost:   0.15,
	}
}

// Validate rejects weight sets that do not form a convex blend.
func (c Config) Validate() error {
	w := c.Weights
	sum := w.Capability + w.Cost + w.Latency + w.Quality
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %v", sum)
	}
	if w.Capability < 0 || w.Cost < 0 || w.Latency < 0 || w.Quality < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	return nil
}

// Engine ranks candidates for a request. Scoring is a pure function of
// (analysis, hints, snapshot, constraints); identical inputs always produce
// the identical ordering.
type Engine struct {
	cfg    Config
	logger *logrus.Logger
}

// New creates a scoring engine.
func New(cfg Config, logger *logrus.Logger) *Engine {
	if cfg.DefaultOutputTokens <= 0 {
		cfg.DefaultOutputTokens = DefaultConfig().DefaultOutputTokens
	}
	if cfg.HintBoost <= 0 {
		cfg.HintBoost = DefaultConfig().HintBoost
	}
	if cfg.PreferredTagBoost <= 0 {
		cfg.PreferredTagBoost = DefaultConfig().PreferredTagBoost
	}
	return &Engine{cfg: cfg, logger: logger}
}

// candidate pairs a profile with its working scores during ranking.
type candidate struct {
	profile *types.ModelProfile
	score   types.CandidateScore
	rawCost float64
	rawLat  float64
}

// Score ranks the snapshot's enabled candidates for the analyzed request.
// Hard constraints exclude candidates; if that empties the set, constraints
// relax one at a time (quality, then latency, then cost) until at least one
// candidate survives, and the decision is marked degraded. Only an empty or
// fully disabled registry is fatal.
func (e *Engine) Score(analysis types.PromptAnalysis, hints map[string]types.RetrievalHint, snap *registry.Snapshot, req *types.RoutingRequest) (*types.RoutingDecision, error) {
	profiles := snap.EnabledProfiles()
	if len(profiles) == 0 {
		return nil, &types.NoCandidateError{Reason: "registry empty or all models disabled"}
	}

	profiles = e.applyAllowlist(profiles, req.PreferredModels)

	cands := e.buildCandidates(profiles, analysis, hints, req)
	e.normalizeAndBlend(cands)
	e.recordViolations(cands, req)

	admitted, relaxed := e.admit(cands, req)

	sortCandidates(admitted)

	chain := make([]types.CandidateScore, len(admitted))
	for i, c := range admitted {
		chain[i] = c.score
	}

	decision := &types.RoutingDecision{
		FallbackChain: chain,
		Confidence:    confidence(chain),
		Degraded:      len(relaxed) > 0,
	}
	for _, name := range relaxed {
		decision.Explanation = append(decision.Explanation, fmt.Sprintf("relaxed %s constraint", name))
	}

	e.logger.WithFields(logrus.Fields{
		"candidates": len(cands),
		"admitted":   len(chain),
		"selected":   chain[0].ModelID,
		"confidence": decision.Confidence,
		"degraded":   decision.Degraded,
		"snapshot":   snap.Version,
	}).Info("Candidates ranked")

	return decision, nil
}

// applyAllowlist restricts to preferred models when possible. An allowlist
// matching nothing is a soft preference and gets ignored with a log note.
func (e *Engine) applyAllowlist(profiles []*types.ModelProfile, allow []string) []*types.ModelProfile {
	if len(allow) == 0 {
		return profiles
	}
	allowed := make(map[string]bool, len(allow))
	for _, id := range allow {
		allowed[id] = true
	}
	var kept []*types.ModelProfile
	for _, p := range profiles {
		if allowed[p.ID] {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		e.logger.WithField("preferred_models", allow).Info("Allowlist matched no enabled models, ignoring it")
		return profiles
	}
	return kept
}

func (e *Engine) buildCandidates(profiles []*types.ModelProfile, analysis types.PromptAnalysis, hints map[string]types.RetrievalHint, req *types.RoutingRequest) []*candidate {
	reqVec := requirementVector(analysis)

	outTokens := e.cfg.DefaultOutputTokens
	if req.Params.MaxTokens != nil && *req.Params.MaxTokens > 0 {
		outTokens = *req.Params.MaxTokens
	}

	cands := make([]*candidate, 0, len(profiles))
	for _, p := range profiles {
		capScore := cosine(p.CapabilityVector(), reqVec)
		if p.HasTaskTag(string(analysis.TaskType)) {
			capScore += e.cfg.PreferredTagBoost
		}
		if hint, ok := hints[p.ID]; ok {
			capScore += e.cfg.HintBoost * hint.Relevance
		}
		if capScore > 1 {
			capScore = 1
		}

		estCost := p.CostInPer1K*float64(analysis.EstimatedInputTokens)/1000 +
			p.CostOutPer1K*float64(outTokens)/1000

		cands = append(cands, &candidate{
			profile: p,
			rawCost: estCost,
			rawLat:  p.AvgLatencyMS,
			score: types.CandidateScore{
				ModelID:       p.ID,
				Capability:    capScore,
				Quality:       p.QualityScore,
				EstimatedCost: estCost,
			},
		})
	}
	return cands
}

// normalizeAndBlend computes the cost/latency sub-scores relative to the
// candidate set's maxima and blends the composite.
func (e *Engine) normalizeAndBlend(cands []*candidate) {
	var maxCost, maxLat float64
	for _, c := range cands {
		if c.rawCost > maxCost {
			maxCost = c.rawCost
		}
		if c.rawLat > maxLat {
			maxLat = c.rawLat
		}
	}

	w := e.cfg.Weights
	for _, c := range cands {
		c.score.Cost = 1.0
		if maxCost > 0 {
			c.score.Cost = 1 - c.rawCost/maxCost
		}
		c.score.Latency = 1.0
		if maxLat > 0 {
			c.score.Latency = 1 - c.rawLat/maxLat
		}
		c.score.CompositeScore = w.Capability*c.score.Capability +
			w.Cost*c.score.Cost +
			w.Latency*c.score.Latency +
			w.Quality*c.score.Quality
	}
}

// recordViolations marks every hard-constraint breach on each candidate.
func (e *Engine) recordViolations(cands []*candidate, req *types.RoutingRequest) {
	for _, c := range cands {
		if req.MinQuality != nil && c.profile.QualityScore < *req.MinQuality {
			c.score.ConstraintViolations = append(c.score.ConstraintViolations, types.ConstraintQuality)
		}
		if req.MaxLatencyMS != nil && c.rawLat > *req.MaxLatencyMS {
			c.score.ConstraintViolations = append(c.score.ConstraintViolations, types.ConstraintLatency)
		}
		if req.MaxCost != nil && c.rawCost > *req.MaxCost {
			c.score.ConstraintViolations = append(c.score.ConstraintViolations, types.ConstraintCost)
		}
	}
}

// admit filters by hard constraints, relaxing them one at a time in the
// fixed order quality, latency, cost until at least one candidate remains.
// Returns the admitted candidates and the names of relaxed constraints.
func (e *Engine) admit(cands []*candidate, req *types.RoutingRequest) ([]*candidate, []string) {
	relaxOrder := []string{types.ConstraintQuality, types.ConstraintLatency, types.ConstraintCost}
	ignored := map[string]bool{}

	var relaxed []string
	for {
		var admitted []*candidate
		for _, c := range cands {
			ok := true
			for _, v := range c.score.ConstraintViolations {
				if !ignored[v] {
					ok = false
					break
				}
			}
			if ok {
				admitted = append(admitted, c)
			}
		}
		if len(admitted) > 0 {
			return admitted, relaxed
		}
		if len(relaxed) == len(relaxOrder) {
			// Unreachable with a non-empty candidate set; admit everything.
			return cands, relaxed
		}
		next := relaxOrder[len(relaxed)]
		ignored[next] = true
		relaxed = append(relaxed, next)
		e.logger.WithField("constraint", next).Warn("No candidate satisfies constraints, relaxing")
	}
}

// sortCandidates establishes the total order: composite descending, then
// lower estimated cost, lower latency, lexicographic id.
func sortCandidates(cands []*candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score.CompositeScore != b.score.CompositeScore {
			return a.score.CompositeScore > b.score.CompositeScore
		}
		if a.rawCost != b.rawCost {
			return a.rawCost < b.rawCost
		}
		if a.rawLat != b.rawLat {
			return a.rawLat < b.rawLat
		}
		return a.score.ModelID < b.score.ModelID
	})
}

// confidence is the normalized gap between the top two composites.
func confidence(chain []types.CandidateScore) float64 {
	if len(chain) < 2 {
		return 1.0
	}
	top := chain[0].CompositeScore
	if top <= 0 {
		return 0
	}
	c := (top - chain[1].CompositeScore) / top
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// requirementVector derives the target capability profile from the analysis.
// Values follow the canonical dimension order of types.CapabilityDimensions.
func requirementVector(analysis types.PromptAnalysis) []float64 {
	base := map[types.TaskType][]float64{
		//                      reasoning creative code analysis conversation
		types.TaskCode:          {0.6, 0.1, 1.0, 0.3, 0.2},
		types.TaskReasoning:     {1.0, 0.1, 0.2, 0.7, 0.2},
		types.TaskCreative:      {0.2, 1.0, 0.1, 0.1, 0.5},
		types.TaskQA:            {0.5, 0.1, 0.1, 0.4, 0.6},
		types.TaskSummarization: {0.4, 0.2, 0.1, 0.8, 0.3},
		types.TaskTranslation:   {0.3, 0.3, 0.1, 0.2, 0.5},
		types.TaskOther:         {0.5, 0.5, 0.5, 0.5, 0.5},
	}

	vec, ok := base[analysis.TaskType]
	if !ok {
		vec = base[types.TaskOther]
	}
	out := append([]float64(nil), vec...)

	// Domain tags sharpen the requirement toward their dimensions.
	bump := map[string][]int{
		"technical":  {2, 3}, // code, analysis
		"scientific": {0, 3}, // reasoning, analysis
		"creative":   {1},
		"business":   {3},
		"legal":      {0, 3},
		"medical":    {0, 3},
	}
	for _, tag := range analysis.DomainTags {
		for _, i := range bump[tag] {
			out[i] += 0.2
			if out[i] > 1 {
				out[i] = 1
			}
		}
	}

	// Complexity raises the reasoning requirement.
	out[0] += 0.2 * analysis.Complexity
	if out[0] > 1 {
		out[0] = 1
	}
	return out
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
