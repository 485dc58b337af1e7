package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/routing-engine/internal/providers"
	"github.com/tributary-ai/routing-engine/internal/registry"
	"github.com/tributary-ai/routing-engine/internal/types"
)

// State is a phase of the per-request execution state machine.
type State string

const (
	StatePending       State = "PENDING"
	StateAttempting    State = "ATTEMPTING"
	StateAttemptFailed State = "ATTEMPT_FAILED"
	StateSuccess       State = "SUCCESS"
	StateExhausted     State = "EXHAUSTED"
)

// Config holds execution tuning knobs.
type Config struct {
	// AttemptTimeout bounds a single backend invocation.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// RequestBudget is the wall-clock budget for a whole fallback chain.
	RequestBudget time.Duration `yaml:"request_budget"`
}

// UnmarshalYAML accepts durations in time.ParseDuration notation ("30s").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		AttemptTimeout string `yaml:"attempt_timeout"`
		RequestBudget  string `yaml:"request_budget"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.AttemptTimeout != "" {
		d, err := time.ParseDuration(raw.AttemptTimeout)
		if err != nil {
			return fmt.Errorf("attempt_timeout: %w", err)
		}
		c.AttemptTimeout = d
	}
	if raw.RequestBudget != "" {
		d, err := time.ParseDuration(raw.RequestBudget)
		if err != nil {
			return fmt.Errorf("request_budget: %w", err)
		}
		c.RequestBudget = d
	}
	return nil
}

// DefaultConfig returns the default execution configuration.
func DefaultConfig() Config {
	return Config{
		AttemptTimeout: 30 * time.Second,
		RequestBudget:  2 * time.Minute,
	}
}

// Controller drives a ranked fallback chain against backend providers.
// Calls within one request are strictly sequential; different requests run
// independently.
type Controller struct {
	cfg       Config
	providers map[string]providers.Provider
	registry  *registry.Registry
	logger    *logrus.Logger
}

// New creates a controller. Providers are keyed by the provider tag that
// model profiles reference.
func New(cfg Config, reg *registry.Registry, logger *logrus.Logger) *Controller {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	if cfg.RequestBudget <= 0 {
		cfg.RequestBudget = DefaultConfig().RequestBudget
	}
	return &Controller{
		cfg:       cfg,
		providers: make(map[string]providers.Provider),
		registry:  reg,
		logger:    logger,
	}
}

// RegisterProvider adds a backend adapter under its provider tag.
func (c *Controller) RegisterProvider(p providers.Provider) {
	c.providers[p.Name()] = p
	c.logger.WithField("provider", p.Name()).Info("Provider registered")
}

// Execute walks the decision's fallback chain until an attempt succeeds, the
// chain is exhausted, or the wall-clock budget elapses. The returned result
// is SUCCESS with a complete response or FAILURE with the full attempt
// trail; a BudgetExceededError accompanies budget-cut failures.
func (c *Controller) Execute(ctx context.Context, req *types.RoutingRequest, decision *types.RoutingDecision, snap *registry.Snapshot) (*types.ExecutionResult, error) {
	start := time.Now()
	result := &types.ExecutionResult{
		RequestID: req.ID,
		Status:    types.StatusFailure,
	}

	state := StatePending
	var failed []string

	for i, cand := range decision.FallbackChain {
		elapsed := time.Since(start)
		if elapsed >= c.cfg.RequestBudget {
			result.TotalDuration = elapsed
			budgetErr := &types.BudgetExceededError{Budget: c.cfg.RequestBudget, Elapsed: elapsed}
			c.logger.WithFields(logrus.Fields{
				"request":  req.ID,
				"attempts": len(result.Attempts),
			}).Warn("Request budget exceeded, abandoning fallback chain")
			return result, budgetErr
		}

		state = StateAttempting
		c.logger.WithFields(logrus.Fields{
			"request":  req.ID,
			"model":    cand.ModelID,
			"state":    state,
			"position": i,
		}).Debug("Attempting candidate")

		attempt, genResult := c.attempt(ctx, req, cand, snap, time.Since(start))
		result.Attempts = append(result.Attempts, attempt)

		if genResult != nil {
			state = StateSuccess
			result.Status = types.StatusSuccess
			result.SelectedModel = cand.ModelID
			result.ResponseText = genResult.Text
			result.TokensIn = genResult.TokensIn
			result.TokensOut = genResult.TokensOut
			result.FallbackUsed = i > 0
			result.TotalDuration = time.Since(start)

			c.publishQuality(cand.ModelID, failed)

			c.logger.WithFields(logrus.Fields{
				"request":       req.ID,
				"model":         cand.ModelID,
				"state":         state,
				"fallback_used": result.FallbackUsed,
				"attempts":      len(result.Attempts),
				"duration_ms":   result.TotalDuration.Milliseconds(),
			}).Info("Request executed")
			return result, nil
		}

		state = StateAttemptFailed
		failed = append(failed, cand.ModelID)
		c.logger.WithFields(logrus.Fields{
			"request": req.ID,
			"model":   cand.ModelID,
			"state":   state,
			"outcome": attempt.Outcome,
		}).Warn("Attempt failed, advancing fallback chain")
	}

	state = StateExhausted
	result.TotalDuration = time.Since(start)
	c.logger.WithFields(logrus.Fields{
		"request":  req.ID,
		"state":    state,
		"attempts": len(result.Attempts),
	}).Error("Fallback chain exhausted")
	return result, nil
}

// attempt invokes one candidate's backend under an attempt-local timeout
// clipped to the remaining request budget.
func (c *Controller) attempt(ctx context.Context, req *types.RoutingRequest, cand types.CandidateScore, snap *registry.Snapshot, elapsed time.Duration) (types.Attempt, *providers.GenerationResult) {
	attempt := types.Attempt{ModelID: cand.ModelID}

	profile := snap.Profile(cand.ModelID)
	if profile == nil {
		attempt.Outcome = string(providers.ErrUnavailable)
		attempt.Error = "model missing from registry snapshot"
		return attempt, nil
	}

	provider, ok := c.providers[profile.Provider]
	if !ok {
		attempt.Outcome = string(providers.ErrUnavailable)
		attempt.Error = fmt.Sprintf("no adapter registered for provider %q", profile.Provider)
		return attempt, nil
	}

	timeout := c.cfg.AttemptTimeout
	if remaining := c.cfg.RequestBudget - elapsed; remaining < timeout {
		timeout = remaining
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	genResult, err := provider.Generate(attemptCtx, cand.ModelID, req.Prompt, req.Params)
	attempt.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		pe := providers.Classify(profile.Provider, cand.ModelID, err)
		attempt.Outcome = string(pe.Kind)
		attempt.Retryable = pe.Kind.Retryable()
		attempt.Error = pe.Error()
		return attempt, nil
	}

	attempt.Outcome = "success"
	attempt.LatencyMS = genResult.LatencyMS
	attempt.Cost = profile.CostInPer1K*float64(genResult.TokensIn)/1000 +
		profile.CostOutPer1K*float64(genResult.TokensOut)/1000
	return attempt, genResult
}

// publishQuality feeds the winner and every failed candidate back into the
// registry as EMA observations. This is the only path that mutates profile
// state, and it goes through a snapshot swap.
func (c *Controller) publishQuality(winner string, failed []string) {
	obs := make([]registry.QualityObservation, 0, len(failed)+1)
	obs = append(obs, registry.QualityObservation{ModelID: winner, Observed: 1.0})
	for _, id := range failed {
		obs = append(obs, registry.QualityObservation{ModelID: id, Observed: 0.0})
	}
	c.registry.ApplyQualityObservations(obs)
}
