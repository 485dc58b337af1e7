package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/routing-engine/internal/types"
)

// Config holds registry tuning knobs.
type Config struct {
	// QualityAlpha is the EMA weight given to a new quality observation:
	// new = (1-alpha)*old + alpha*observed.
	QualityAlpha float64 `yaml:"quality_alpha"`
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{QualityAlpha: 0.1}
}

// Snapshot is an immutable view of every known model profile. Readers hold a
// snapshot for the duration of a request and never observe later updates.
type Snapshot struct {
	Version  uint64
	profiles map[string]*types.ModelProfile
	ids      []string // sorted, for deterministic iteration
}

// Profile returns the profile for id, or nil when unknown.
func (s *Snapshot) Profile(id string) *types.ModelProfile {
	return s.profiles[id]
}

// IDs returns all profile ids in lexicographic order.
func (s *Snapshot) IDs() []string {
	return s.ids
}

// EnabledProfiles returns enabled profiles in lexicographic id order.
func (s *Snapshot) EnabledProfiles() []*types.ModelProfile {
	out := make([]*types.ModelProfile, 0, len(s.ids))
	for _, id := range s.ids {
		if p := s.profiles[id]; p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of profiles in the snapshot.
func (s *Snapshot) Len() int { return len(s.ids) }

// Registry owns model profiles and publishes them as atomically swapped
// immutable snapshots. All mutation paths (reload, quality feedback) build a
// fresh snapshot; nothing is ever edited in place.
type Registry struct {
	cfg    Config
	logger *logrus.Logger

	current atomic.Pointer[Snapshot]

	// serializes writers; readers never take it
	mu      sync.Mutex
	version uint64
}

// New creates an empty registry.
func New(cfg Config, logger *logrus.Logger) *Registry {
	if cfg.QualityAlpha <= 0 || cfg.QualityAlpha > 1 {
		cfg.QualityAlpha = DefaultConfig().QualityAlpha
	}
	r := &Registry{cfg: cfg, logger: logger}
	r.current.Store(&Snapshot{profiles: map[string]*types.ModelProfile{}})
	return r
}

// Snapshot returns the current published snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// registryDocument is the on-disk registry format: one entry per model.
type registryDocument struct {
	Models []*types.ModelProfile `yaml:"models"`
}

// LoadFile reads and activates a registry document from disk. On any parse or
// validation error the previous snapshot keeps serving and a
// RegistryLoadError is returned.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &types.RegistryLoadError{Path: path, Err: err}
	}
	if err := r.Load(data); err != nil {
		return &types.RegistryLoadError{Path: path, Err: err}
	}
	return nil
}

// Load parses and activates a registry document. Every profile must validate
// before the new snapshot is published; a single bad entry rejects the whole
// document.
func (r *Registry) Load(data []byte) error {
	var doc registryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse registry document: %w", err)
	}
	if len(doc.Models) == 0 {
		return fmt.Errorf("registry document contains no models")
	}

	profiles := make(map[string]*types.ModelProfile, len(doc.Models))
	for _, p := range doc.Models {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		if _, dup := profiles[p.ID]; dup {
			return fmt.Errorf("duplicate model id %q", p.ID)
		}
		profiles[p.ID] = p.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.publish(profiles)

	r.logger.WithFields(logrus.Fields{
		"models":  len(profiles),
		"version": r.version,
	}).Info("Registry snapshot activated")
	return nil
}

// QualityObservation is one post-execution quality signal for a model:
// 1.0 for a successful generation, 0.0 for a failed attempt.
type QualityObservation struct {
	ModelID  string
	Observed float64
}

// ApplyQualityObservations folds observations into quality scores via EMA and
// publishes the result as a new snapshot. Unknown model ids are skipped; this
// is a best-effort feedback signal and may be applied out of request order.
func (r *Registry) ApplyQualityObservations(obs []QualityObservation) {
	if len(obs) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	profiles := make(map[string]*types.ModelProfile, len(cur.profiles))
	for id, p := range cur.profiles {
		profiles[id] = p
	}

	alpha := r.cfg.QualityAlpha
	for _, o := range obs {
		p, ok := profiles[o.ModelID]
		if !ok {
			continue
		}
		observed := clamp01(o.Observed)
		np := p.Clone()
		np.QualityScore = clamp01((1-alpha)*p.QualityScore + alpha*observed)
		profiles[o.ModelID] = np

		r.logger.WithFields(logrus.Fields{
			"model":    o.ModelID,
			"observed": observed,
			"quality":  np.QualityScore,
		}).Debug("Quality score updated")
	}

	r.publish(profiles)
}

// publish swaps in a new snapshot built from profiles. Caller holds r.mu.
func (r *Registry) publish(profiles map[string]*types.ModelProfile) {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	r.version++
	r.current.Store(&Snapshot{
		Version:  r.version,
		profiles: profiles,
		ids:      ids,
	})
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
