package fraud

import (
	"sort"
	"sync"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
)

// PatternRegistry is the in-memory pattern catalog. Detection logic never
// branches on individual pattern IDs at scoring time; evaluators consult the
// catalog so new patterns and weight changes are data edits, not code edits.
// The registry performs no I/O; database rows are merged in at startup and
// through the admin surface.
type PatternRegistry struct {
	mu       sync.RWMutex
	patterns map[string]assessment.FraudPattern
	weights  map[assessment.PatternCategory]float64
}

// NewPatternRegistry creates a registry seeded with the default catalog.
func NewPatternRegistry() *PatternRegistry {
	r := &PatternRegistry{
		patterns: make(map[string]assessment.FraudPattern),
		weights:  make(map[assessment.PatternCategory]float64),
	}
	for _, p := range defaultCatalog() {
		r.patterns[p.ID] = p
	}
	return r
}

// Register inserts or replaces a catalog entry.
func (r *PatternRegistry) Register(p *assessment.FraudPattern) error {
	if p == nil {
		return errors.NewValidationError("INVALID_PATTERN", "pattern cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[p.ID] = *p
	return nil
}

// Get returns the catalog entry for id.
func (r *PatternRegistry) Get(id string) (assessment.FraudPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patterns[id]
	return p, ok
}

// List returns every catalog entry ordered by ID.
func (r *PatternRegistry) List() []assessment.FraudPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]assessment.FraudPattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Deactivate marks a catalog entry inactive so it stops contributing to
// category weights. Detected instances of inactive patterns still score.
func (r *PatternRegistry) Deactivate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patterns[id]
	if !ok {
		return errors.ErrPatternNotFound
	}
	p.Active = false
	r.patterns[id] = p
	return nil
}

// SetCategoryWeight overrides the derived weight for a category.
func (r *PatternRegistry) SetCategoryWeight(category assessment.PatternCategory, weight float64) error {
	if !category.IsValid() {
		return errors.NewValidationError("INVALID_CATEGORY", "unknown pattern category")
	}
	if weight < 0 || weight > 1 {
		return errors.NewValidationError("INVALID_WEIGHT", "category weight must be within [0, 1]")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights[category] = weight
	return nil
}

// WeightFor returns the aggregation weight for a category: the configured
// override when present, otherwise the mean weight of the category's active
// patterns. A category with no signal weighs zero.
func (r *PatternRegistry) WeightFor(category assessment.PatternCategory) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if w, ok := r.weights[category]; ok {
		return w
	}

	sum := 0.0
	n := 0
	for _, p := range r.patterns {
		if p.Category == category && p.Active {
			sum += p.Weight
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Merge overlays persisted catalog rows onto the defaults, letting the
// database win on conflicts.
func (r *PatternRegistry) Merge(rows []*assessment.FraudPattern) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range rows {
		if p == nil || p.Validate() != nil {
			continue
		}
		r.patterns[p.ID] = *p
	}
}

func defaultCatalog() []assessment.FraudPattern {
	return []assessment.FraudPattern{
		{ID: PatternDocumentHashCollision, Name: "Document hash collision", Category: assessment.CategoryDocument, Severity: assessment.SeverityCritical, Weight: 0.9, Active: true},
		{ID: PatternDocumentMetadataAnomaly, Name: "Document metadata anomaly", Category: assessment.CategoryDocument, Severity: assessment.SeverityMedium, Weight: 0.6, Active: true},
		{ID: PatternIdentityInconsistency, Name: "Identity field inconsistency", Category: assessment.CategoryIdentity, Severity: assessment.SeverityHigh, Weight: 0.8, Active: true},
		{ID: PatternKnownFraudIdentity, Name: "Known fraud identity", Category: assessment.CategoryIdentity, Severity: assessment.SeverityCritical, Weight: 0.95, Active: true},
		{ID: PatternRapidSubmissions, Name: "Rapid multiple submissions", Category: assessment.CategoryBehavioral, Severity: assessment.SeverityMedium, Weight: 0.6, Active: true},
		{ID: PatternAutomatedBehavior, Name: "Automated behavior signature", Category: assessment.CategoryBehavioral, Severity: assessment.SeverityHigh, Weight: 0.8, Active: true},
		{ID: PatternSuspiciousIP, Name: "Suspicious source IP", Category: assessment.CategoryNetwork, Severity: assessment.SeverityHigh, Weight: 0.7, Active: true},
		{ID: PatternLocationInconsistency, Name: "Location inconsistency", Category: assessment.CategoryNetwork, Severity: assessment.SeverityMedium, Weight: 0.5, Active: true},
		{ID: PatternBackgroundCheckFailure, Name: "Background check failure", Category: assessment.CategoryIdentity, Severity: assessment.SeverityCritical, Weight: 0.95, Active: true},
	}
}
