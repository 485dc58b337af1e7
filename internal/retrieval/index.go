package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// Hit is one corpus match for a candidate model.
type Hit struct {
	ModelID   string
	SnippetID string
	Score     float64
}

// Index answers nearest-neighbor queries over per-model documentation
// chunks. Persistence and build pipelines live outside the engine; the
// engine only consumes read snapshots.
type Index interface {
	Query(embedding []float64, candidateIDs []string, k int, floor float64) ([]Hit, error)
}

// Document is one documentation chunk attributed to a model, fed to the
// index builder out-of-band.
type Document struct {
	SnippetID string `yaml:"snippet_id"`
	ModelID   string `yaml:"model_id"`
	Text      string `yaml:"text"`
}

type indexSnapshot struct {
	entries []indexEntry
}

type indexEntry struct {
	modelID   string
	snippetID string
	vector    []float64
}

// MemoryIndex is an in-memory cosine index over documentation chunks.
// Rebuilds publish a fresh snapshot atomically; in-flight queries keep the
// snapshot they started with.
type MemoryIndex struct {
	embedder Embedder
	current  atomic.Pointer[indexSnapshot]
}

// NewMemoryIndex creates an empty index backed by embedder.
func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	idx := &MemoryIndex{embedder: embedder}
	idx.current.Store(&indexSnapshot{})
	return idx
}

// Rebuild embeds docs and swaps in the result as the new snapshot.
func (idx *MemoryIndex) Rebuild(ctx context.Context, docs []Document) error {
	entries := make([]indexEntry, 0, len(docs))
	for _, doc := range docs {
		vec, err := idx.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("embed snippet %s: %w", doc.SnippetID, err)
		}
		entries = append(entries, indexEntry{
			modelID:   doc.ModelID,
			snippetID: doc.SnippetID,
			vector:    vec,
		})
	}
	idx.current.Store(&indexSnapshot{entries: entries})
	return nil
}

// Query returns up to k hits per candidate model at or above the cosine
// similarity floor, best first.
func (idx *MemoryIndex) Query(embedding []float64, candidateIDs []string, k int, floor float64) ([]Hit, error) {
	snap := idx.current.Load()
	if len(snap.entries) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		wanted[id] = true
	}

	perModel := map[string][]Hit{}
	for _, e := range snap.entries {
		if !wanted[e.modelID] {
			continue
		}
		score := cosine(embedding, e.vector)
		if score < floor {
			continue
		}
		perModel[e.modelID] = append(perModel[e.modelID], Hit{
			ModelID:   e.modelID,
			SnippetID: e.snippetID,
			Score:     score,
		})
	}

	var hits []Hit
	for _, id := range candidateIDs {
		mh := perModel[id]
		sort.Slice(mh, func(i, j int) bool {
			if mh[i].Score != mh[j].Score {
				return mh[i].Score > mh[j].Score
			}
			return mh[i].SnippetID < mh[j].SnippetID
		})
		if len(mh) > k {
			mh = mh[:k]
		}
		hits = append(hits, mh...)
	}
	return hits, nil
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
