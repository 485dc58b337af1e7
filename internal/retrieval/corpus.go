package retrieval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// corpusDocument is the on-disk corpus format: a flat list of attributed
// documentation chunks.
type corpusDocument struct {
	Documents []Document `yaml:"documents"`
}

// LoadCorpusFile reads a documentation corpus from disk. Index builds are
// out-of-band with respect to request serving; callers pass the result to
// MemoryIndex.Rebuild.
func LoadCorpusFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	var doc corpusDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	for i, d := range doc.Documents {
		if d.SnippetID == "" || d.ModelID == "" {
			return nil, fmt.Errorf("corpus %s: document %d missing snippet_id or model_id", path, i)
		}
	}
	return doc.Documents, nil
}
