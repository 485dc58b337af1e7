package retrieval

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/types"
)

// Config holds retriever tuning knobs.
type Config struct {
	// TopK is the per-candidate hit limit.
	TopK int `yaml:"top_k"`
	// SimilarityFloor drops hits below this cosine similarity.
	SimilarityFloor float64 `yaml:"similarity_floor"`
	// CacheSize bounds the prompt-embedding LRU cache.
	CacheSize int `yaml:"cache_size"`
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		TopK:            5,
		SimilarityFloor: 0.7,
		CacheSize:       1024,
	}
}

// Retriever boosts routing decisions with documentation evidence. It is a
// signal, not a requirement: any embedder or index failure degrades to empty
// hints and the request proceeds.
type Retriever struct {
	cfg      Config
	embedder Embedder
	index    Index
	cache    *lru.Cache[string, []float64]
	logger   *logrus.Logger
}

// New creates a retriever over the given embedder and index.
func New(cfg Config, embedder Embedder, index Index, logger *logrus.Logger) (*Retriever, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = DefaultConfig().SimilarityFloor
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	cache, err := lru.New[string, []float64](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Retrieve maps candidate model ids to relevance hints. Candidates with no
// evidence are absent from the result; absence means "no evidence", not
// "zero relevance".
func (r *Retriever) Retrieve(ctx context.Context, prompt string, analysis types.PromptAnalysis, candidateIDs []string) map[string]types.RetrievalHint {
	if len(candidateIDs) == 0 {
		return nil
	}

	embedding, err := r.embedPrompt(ctx, prompt)
	if err != nil {
		r.logger.WithError(err).Warn("Prompt embedding failed, retrieval degraded to empty hints")
		return map[string]types.RetrievalHint{}
	}

	hits, err := r.index.Query(embedding, candidateIDs, r.cfg.TopK, r.cfg.SimilarityFloor)
	if err != nil {
		r.logger.WithError(err).Warn("Index query failed, retrieval degraded to empty hints")
		return map[string]types.RetrievalHint{}
	}

	hints := make(map[string]types.RetrievalHint)
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, h := range hits {
		hint := hints[h.ModelID]
		hint.SnippetIDs = append(hint.SnippetIDs, h.SnippetID)
		hints[h.ModelID] = hint
		sums[h.ModelID] += h.Score
		counts[h.ModelID]++
	}
	for id, hint := range hints {
		hint.Relevance = clamp01(sums[id] / float64(counts[id]))
		hints[id] = hint
	}

	r.logger.WithFields(logrus.Fields{
		"candidates": len(candidateIDs),
		"hinted":     len(hints),
		"task_type":  analysis.TaskType,
	}).Debug("Retrieval hints computed")

	return hints
}

func (r *Retriever) embedPrompt(ctx context.Context, prompt string) ([]float64, error) {
	if vec, ok := r.cache.Get(prompt); ok {
		return vec, nil
	}
	vec, err := r.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, err
	}
	r.cache.Add(prompt, vec)
	return vec, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
