package assessment

import "fmt"

// PatternCategory groups fraud patterns by the evidence domain that
// produces them.
type PatternCategory string

const (
	CategoryDocument   PatternCategory = "document"
	CategoryIdentity   PatternCategory = "identity"
	CategoryBehavioral PatternCategory = "behavioral"
	CategoryNetwork    PatternCategory = "network"
)

func (c PatternCategory) IsValid() bool {
	switch c {
	case CategoryDocument, CategoryIdentity, CategoryBehavioral, CategoryNetwork:
		return true
	}
	return false
}

// Severity ranks how serious a pattern is considered when present.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// FraudPattern is a catalog entry describing one known kind of suspicious
// evidence. Entries are administrative data: created and tuned out-of-band,
// read-only while an assessment is being scored.
type FraudPattern struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category PatternCategory `json:"category"`
	Severity Severity        `json:"severity"`
	Weight   float64         `json:"weight"`
	Active   bool            `json:"active"`
}

// NewFraudPattern validates and builds a catalog entry. Weight is the
// category-level multiplier applied during aggregation and must be in [0,1].
func NewFraudPattern(id, name string, category PatternCategory, severity Severity, weight float64) (*FraudPattern, error) {
	p := &FraudPattern{
		ID:       id,
		Name:     name,
		Category: category,
		Severity: severity,
		Weight:   weight,
		Active:   true,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the catalog-entry invariants.
func (p *FraudPattern) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("pattern id cannot be empty")
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("invalid pattern category: %q", p.Category)
	}
	if !p.Severity.IsValid() {
		return fmt.Errorf("invalid pattern severity: %q", p.Severity)
	}
	if p.Weight < 0 || p.Weight > 1 {
		return fmt.Errorf("pattern weight must be in [0,1], got %v", p.Weight)
	}
	return nil
}

// DetectedPattern is a single evaluator finding for one assessment run.
// Instances are created fresh per run and never mutated afterwards.
type DetectedPattern struct {
	PatternID  string          `json:"pattern_id"`
	Category   PatternCategory `json:"category"`
	Confidence float64         `json:"confidence"`
	Impact     float64         `json:"impact"`
	Evidence   []string        `json:"evidence"`
}

// NewDetectedPattern builds a finding, clamping confidence and impact into
// [0,1] so the aggregation invariants hold for any evaluator output.
func NewDetectedPattern(patternID string, category PatternCategory, confidence, impact float64, evidence ...string) DetectedPattern {
	return DetectedPattern{
		PatternID:  patternID,
		Category:   category,
		Confidence: Clamp01(confidence),
		Impact:     Clamp01(impact),
		Evidence:   evidence,
	}
}

// Clamp01 bounds v to the closed unit interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
