package retrieval

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testDocs() []Document {
	return []Document{
		{SnippetID: "a-code", ModelID: "model-a", Text: "excellent at code generation debugging functions and algorithms"},
		{SnippetID: "a-chat", ModelID: "model-a", Text: "fast conversational replies and casual chat"},
		{SnippetID: "b-writing", ModelID: "model-b", Text: "creative writing stories poems and long form prose"},
	}
}

func buildTestRetriever(t *testing.T, cfg Config) (*Retriever, *MemoryIndex) {
	t.Helper()
	embedder := NewHashEmbedder(64)
	index := NewMemoryIndex(embedder)
	if err := index.Rebuild(context.Background(), testDocs()); err != nil {
		t.Fatalf("index rebuild failed: %v", err)
	}
	r, err := New(cfg, embedder, index, testLogger())
	if err != nil {
		t.Fatalf("retriever creation failed: %v", err)
	}
	return r, index
}

func TestRetriever_Retrieve(t *testing.T) {
	r, _ := buildTestRetriever(t, Config{TopK: 5, SimilarityFloor: 0.1, CacheSize: 16})

	hints := r.Retrieve(context.Background(), "code generation debugging functions",
		types.PromptAnalysis{TaskType: types.TaskCode}, []string{"model-a", "model-b"})

	hint, ok := hints["model-a"]
	if !ok {
		t.Fatal("expected a hint for model-a")
	}
	if hint.Relevance <= 0 || hint.Relevance > 1 {
		t.Errorf("relevance %v out of (0,1]", hint.Relevance)
	}
	if len(hint.SnippetIDs) == 0 {
		t.Error("hint carries no snippet attribution")
	}
}

func TestRetriever_FloorExcludesWeakMatches(t *testing.T) {
	r, _ := buildTestRetriever(t, Config{TopK: 5, SimilarityFloor: 0.99, CacheSize: 16})

	hints := r.Retrieve(context.Background(), "quantum gardening advice",
		types.PromptAnalysis{}, []string{"model-a", "model-b"})

	if len(hints) != 0 {
		t.Errorf("expected no hints above a 0.99 floor, got %v", hints)
	}
}

func TestRetriever_NoCandidates(t *testing.T) {
	r, _ := buildTestRetriever(t, DefaultConfig())
	if hints := r.Retrieve(context.Background(), "anything", types.PromptAnalysis{}, nil); hints != nil {
		t.Errorf("expected nil hints for empty candidate set, got %v", hints)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("embedder offline")
}
func (failingEmbedder) Dimension() int { return 8 }

func TestRetriever_DegradesOnEmbedderFailure(t *testing.T) {
	index := NewMemoryIndex(NewHashEmbedder(8))
	r, err := New(DefaultConfig(), failingEmbedder{}, index, testLogger())
	if err != nil {
		t.Fatalf("retriever creation failed: %v", err)
	}

	hints := r.Retrieve(context.Background(), "prompt", types.PromptAnalysis{}, []string{"model-a"})
	if hints == nil || len(hints) != 0 {
		t.Errorf("expected empty non-nil hints on embedder failure, got %v", hints)
	}
}

type failingIndex struct{}

func (failingIndex) Query([]float64, []string, int, float64) ([]Hit, error) {
	return nil, errors.New("index offline")
}

func TestRetriever_DegradesOnIndexFailure(t *testing.T) {
	r, err := New(DefaultConfig(), NewHashEmbedder(8), failingIndex{}, testLogger())
	if err != nil {
		t.Fatalf("retriever creation failed: %v", err)
	}

	hints := r.Retrieve(context.Background(), "prompt", types.PromptAnalysis{}, []string{"model-a"})
	if hints == nil || len(hints) != 0 {
		t.Errorf("expected empty non-nil hints on index failure, got %v", hints)
	}
}

type countingEmbedder struct {
	inner Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}
func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }

func TestRetriever_CachesPromptEmbeddings(t *testing.T) {
	counting := &countingEmbedder{inner: NewHashEmbedder(64)}
	index := NewMemoryIndex(NewHashEmbedder(64))
	if err := index.Rebuild(context.Background(), testDocs()); err != nil {
		t.Fatalf("index rebuild failed: %v", err)
	}
	r, err := New(Config{TopK: 5, SimilarityFloor: 0.1, CacheSize: 16}, counting, index, testLogger())
	if err != nil {
		t.Fatalf("retriever creation failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		r.Retrieve(context.Background(), "same prompt every time", types.PromptAnalysis{}, []string{"model-a"})
	}
	if counting.calls != 1 {
		t.Errorf("expected 1 embedder call across repeat prompts, got %d", counting.calls)
	}
}

func TestMemoryIndex_TopKPerModel(t *testing.T) {
	embedder := NewHashEmbedder(64)
	index := NewMemoryIndex(embedder)

	docs := []Document{
		{SnippetID: "s1", ModelID: "m", Text: "alpha beta gamma"},
		{SnippetID: "s2", ModelID: "m", Text: "alpha beta delta"},
		{SnippetID: "s3", ModelID: "m", Text: "alpha beta epsilon"},
	}
	if err := index.Rebuild(context.Background(), docs); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	query, _ := embedder.Embed(context.Background(), "alpha beta")
	hits, err := index.Query(query, []string{"m"}, 2, 0.1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected top-2 per model, got %d hits", len(hits))
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not ordered best first")
	}
}

func TestMemoryIndex_EmptyIndex(t *testing.T) {
	index := NewMemoryIndex(NewHashEmbedder(8))
	hits, err := index.Query([]float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"m"}, 5, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if hits != nil {
		t.Errorf("expected no hits from empty index, got %v", hits)
	}
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(32)

	a, _ := e.Embed(context.Background(), "routing engines rank models")
	b, _ := e.Embed(context.Background(), "routing engines rank models")

	var norm float64
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("embedding not deterministic")
		}
		norm += a[i] * a[i]
	}
	if norm < 0.999 || norm > 1.001 {
		t.Errorf("embedding not L2-normalized: |v|^2 = %v", norm)
	}
}

func TestLoadCorpusFile(t *testing.T) {
	if _, err := LoadCorpusFile("/nonexistent/corpus.yaml"); err == nil {
		t.Error("expected error for missing corpus file")
	}
}
