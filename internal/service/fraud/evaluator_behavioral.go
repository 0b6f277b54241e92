package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// Automation score contributions. Beyond-human typing speed crosses the
// default 0.7 threshold on its own; every other signal needs at least one
// corroborating signal.
const (
	clickVarianceFloor      = 10.0 // ms^2
	pauseVarianceFloor      = 25.0 // ms^2
	clickUniformityWeight   = 0.4
	typingBeyondHumanWeight = 0.8
	typingTooSlowWeight     = 0.35
	pauseUniformityWeight   = 0.35
	minVarianceSamples      = 3
)

// BehavioralEvaluator scores interaction telemetry for automation
// signatures and tracks submission bursts. It owns the per-assessment
// profile write: exactly one submission record and at most one interaction
// sample per run.
type BehavioralEvaluator struct {
	profiles ProfileStore
	window   SubmissionWindow
	logger   *slog.Logger

	automationThreshold float64
	burstMax            int
}

// NewBehavioralEvaluator creates the behavioral evaluator. Non-positive
// tunables fall back to the package defaults.
func NewBehavioralEvaluator(profiles ProfileStore, window SubmissionWindow, logger *slog.Logger, automationThreshold float64, burstMax int) *BehavioralEvaluator {
	if automationThreshold <= 0 {
		automationThreshold = DefaultAutomationThreshold
	}
	if burstMax <= 0 {
		burstMax = DefaultSubmissionBurstMax
	}
	return &BehavioralEvaluator{
		profiles:            profiles,
		window:              window,
		logger:              logger,
		automationThreshold: automationThreshold,
		burstMax:            burstMax,
	}
}

// Name identifies the evaluator in logs and metrics.
func (e *BehavioralEvaluator) Name() string { return EvaluatorBehavioral }

// Applicable always holds: submission tracking runs even when the caller
// supplied no interaction telemetry.
func (e *BehavioralEvaluator) Applicable(input *AssessmentInput) bool {
	return true
}

// Evaluate records the submission in the applicant's profile, derives the
// automation score from interaction telemetry, and checks the rolling
// submission window.
func (e *BehavioralEvaluator) Evaluate(ctx context.Context, input *AssessmentInput) ([]assessment.DetectedPattern, error) {
	now := input.SubmittedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	score, evidence := automationSignals(input.Behavior)

	profile, err := e.profiles.Update(ctx, input.ApplicantID, func(p *applicant.BehavioralProfile) error {
		p.RecordSubmission(now)
		if input.Behavior.HasSamples() {
			p.RecordInteraction(applicant.InteractionSample{
				RecordedAt:      now,
				TypingSpeed:     input.Behavior.TypingSpeed,
				ClickVariance:   variance(input.Behavior.ClickIntervalsMs),
				PauseVariance:   variance(input.Behavior.PauseDurationsMs),
				AutomationScore: score,
			})
		}
		if input.Behavior != nil {
			p.RevisionTotal += input.Behavior.RevisionCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profile update: %w", err)
	}

	count := 0
	if e.window != nil {
		count, err = e.window.RecordAndCount(ctx, input.ApplicantID, applicant.SubmissionWindow)
		if err != nil {
			// The profile was already updated above, so its own
			// timestamps serve as the fallback counter.
			e.logger.WarnContext(ctx, "submission window unavailable, falling back to profile count",
				"applicant_id", input.ApplicantID,
				"error", err)
			count = profile.SubmissionsWithin(applicant.SubmissionWindow, now)
		}
	} else {
		count = profile.SubmissionsWithin(applicant.SubmissionWindow, now)
	}

	var patterns []assessment.DetectedPattern

	if score > e.automationThreshold {
		patterns = append(patterns, assessment.NewDetectedPattern(
			PatternAutomatedBehavior,
			assessment.CategoryBehavioral,
			score, 0.8,
			evidence...,
		))
	}

	if count > e.burstMax {
		impact := assessment.Clamp01(float64(count) / float64(2*e.burstMax))
		patterns = append(patterns, assessment.NewDetectedPattern(
			PatternRapidSubmissions,
			assessment.CategoryBehavioral,
			0.9, impact,
			fmt.Sprintf("%d submissions within %s (limit %d)", count, applicant.SubmissionWindow, e.burstMax),
		))
	}

	return patterns, nil
}

// automationSignals derives the additive automation score in [0,1] plus
// one evidence line per contributing signal.
func automationSignals(b *applicant.BehaviorData) (float64, []string) {
	if !b.HasSamples() {
		return 0, nil
	}

	score := 0.0
	var evidence []string

	if len(b.ClickIntervalsMs) >= minVarianceSamples {
		if v := variance(b.ClickIntervalsMs); v < clickVarianceFloor {
			score += clickUniformityWeight
			evidence = append(evidence,
				fmt.Sprintf("click intervals nearly uniform (variance %.1f ms^2 across %d samples)", v, len(b.ClickIntervalsMs)))
		}
	}

	switch {
	case b.TypingSpeed > TypingSpeedUpperBound:
		score += typingBeyondHumanWeight
		evidence = append(evidence,
			fmt.Sprintf("typing speed %.0f exceeds plausible human rate %.0f", b.TypingSpeed, TypingSpeedUpperBound))
	case b.TypingSpeed > 0 && b.TypingSpeed < TypingSpeedLowerBound:
		score += typingTooSlowWeight
		evidence = append(evidence,
			fmt.Sprintf("typing speed %.1f below engaged-applicant floor %.0f", b.TypingSpeed, TypingSpeedLowerBound))
	}

	if len(b.PauseDurationsMs) >= minVarianceSamples {
		if v := variance(b.PauseDurationsMs); v < pauseVarianceFloor {
			score += pauseUniformityWeight
			evidence = append(evidence,
				fmt.Sprintf("pause durations nearly uniform (variance %.1f ms^2 across %d samples)", v, len(b.PauseDurationsMs)))
		}
	}

	return math.Min(1, score), evidence
}

// variance computes the population variance of the samples.
func variance(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	v := 0.0
	for _, s := range samples {
		d := s - mean
		v += d * d
	}
	return v / float64(len(samples))
}
