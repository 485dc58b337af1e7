package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/analyzer"
	"github.com/tributary-ai/routing-engine/internal/execution"
	"github.com/tributary-ai/routing-engine/internal/registry"
	"github.com/tributary-ai/routing-engine/internal/retrieval"
	"github.com/tributary-ai/routing-engine/internal/scoring"
	"github.com/tributary-ai/routing-engine/internal/types"
)

// Engine wires the routing pipeline: analyze, retrieve, score, execute.
// The decision stages are pure functions of the request and the snapshots
// captured at entry, so any number of requests may run concurrently.
type Engine struct {
	analyzer   *analyzer.Analyzer
	retriever  *retrieval.Retriever
	scorer     *scoring.Engine
	controller *execution.Controller
	registry   *registry.Registry
	logger     *logrus.Logger
}

// New assembles an engine from its components.
func New(a *analyzer.Analyzer, r *retrieval.Retriever, s *scoring.Engine, c *execution.Controller, reg *registry.Registry, logger *logrus.Logger) *Engine {
	return &Engine{
		analyzer:   a,
		retriever:  r,
		scorer:     s,
		controller: c,
		registry:   reg,
		logger:     logger,
	}
}

// Decide runs the decision pipeline without touching any backend. The
// returned decision is computed against a single registry snapshot.
func (e *Engine) Decide(ctx context.Context, req *types.RoutingRequest) (*types.RoutingDecision, types.PromptAnalysis, error) {
	return e.decide(ctx, req, e.registry.Snapshot())
}

func (e *Engine) decide(ctx context.Context, req *types.RoutingRequest, snap *registry.Snapshot) (*types.RoutingDecision, types.PromptAnalysis, error) {
	ensureRequestID(req)
	start := time.Now()

	analysis := e.analyzer.Analyze(req.Prompt)

	candidateIDs := make([]string, 0, snap.Len())
	for _, p := range snap.EnabledProfiles() {
		candidateIDs = append(candidateIDs, p.ID)
	}

	hints := e.retriever.Retrieve(ctx, req.Prompt, analysis, candidateIDs)

	decision, err := e.scorer.Score(analysis, hints, snap, req)
	if err != nil {
		return nil, analysis, err
	}

	e.logger.WithFields(logrus.Fields{
		"request":     req.ID,
		"task_type":   analysis.TaskType,
		"selected":    decision.Selected().ModelID,
		"chain_len":   len(decision.FallbackChain),
		"confidence":  decision.Confidence,
		"degraded":    decision.Degraded,
		"decision_ms": time.Since(start).Milliseconds(),
	}).Info("Routing decision")

	return decision, analysis, nil
}

// Route decides and then executes against the same snapshot the decision
// was made with.
func (e *Engine) Route(ctx context.Context, req *types.RoutingRequest) (*types.ExecutionResult, *types.RoutingDecision, error) {
	ensureRequestID(req)
	snap := e.registry.Snapshot()

	decision, _, err := e.decide(ctx, req, snap)
	if err != nil {
		return nil, nil, err
	}

	result, err := e.controller.Execute(ctx, req, decision, snap)
	if result != nil {
		e.logger.WithFields(logrus.Fields{
			"request":       req.ID,
			"status":        result.Status,
			"model":         result.SelectedModel,
			"fallback_used": result.FallbackUsed,
			"attempts":      len(result.Attempts),
		}).Info("Execution result")
	}
	return result, decision, err
}

func ensureRequestID(req *types.RoutingRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
}
