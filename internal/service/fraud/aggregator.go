package fraud

import (
	"math"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// RiskAggregator folds evaluator findings into the overall risk score.
type RiskAggregator struct {
	registry *PatternRegistry
}

// NewRiskAggregator creates an aggregator reading category weights from the
// registry.
func NewRiskAggregator(registry *PatternRegistry) *RiskAggregator {
	return &RiskAggregator{registry: registry}
}

// Aggregate computes the weighted mean of confidence times impact across
// all findings, weighted by category:
//
//	score = min(1, sum(confidence*impact*weight) / sum(weight))
//
// No findings means zero risk. The score is a plain weighted mean; tuning
// happens through the catalog weights, not extra nonlinearity here.
func (a *RiskAggregator) Aggregate(patterns []assessment.DetectedPattern) float64 {
	if len(patterns) == 0 {
		return 0
	}

	var weighted, total float64
	for _, p := range patterns {
		w := a.registry.WeightFor(p.Category)
		weighted += p.Confidence * p.Impact * w
		total += w
	}

	if total == 0 {
		return 0
	}

	return math.Min(1, weighted/total)
}
