package fraud

import "time"

// Pattern identifiers in the default catalog
const (
	// PatternDocumentHashCollision fires when a document hash was already
	// submitted by a different applicant
	PatternDocumentHashCollision = "document-hash-collision"

	// PatternDocumentMetadataAnomaly fires on implausible document metadata
	PatternDocumentMetadataAnomaly = "document-metadata-anomaly"

	// PatternIdentityInconsistency fires when declared identity fields
	// disagree with document-extracted fields
	PatternIdentityInconsistency = "identity-inconsistency"

	// PatternKnownFraudIdentity fires on a known-fraud reference hit
	PatternKnownFraudIdentity = "known-fraud-identity"

	// PatternRapidSubmissions fires on a submission burst inside the
	// rolling window
	PatternRapidSubmissions = "rapid-multiple-submissions"

	// PatternAutomatedBehavior fires when interaction telemetry looks scripted
	PatternAutomatedBehavior = "automated-behavior-signature"

	// PatternSuspiciousIP fires on private, reserved, or proxy-associated
	// source addresses
	PatternSuspiciousIP = "suspicious-ip"

	// PatternLocationInconsistency fires when location signals disagree
	PatternLocationInconsistency = "location-inconsistency"

	// PatternBackgroundCheckFailure fires on any non-clear screening outcome
	PatternBackgroundCheckFailure = "background-check-failure"
)

// Evaluator names used in logs and metrics
const (
	EvaluatorDocument   = "document"
	EvaluatorIdentity   = "identity"
	EvaluatorBehavioral = "behavioral"
	EvaluatorNetwork    = "network"
	EvaluatorBackground = "background_check"
)

// Behavioral analysis constants
const (
	// TypingSpeedUpperBound is the fastest plausible human typing rate
	TypingSpeedUpperBound = 200.0

	// TypingSpeedLowerBound is the slowest rate seen from engaged applicants
	TypingSpeedLowerBound = 10.0

	// DefaultAutomationThreshold is the automation score above which the
	// automated-behavior pattern fires
	DefaultAutomationThreshold = 0.7

	// DefaultSubmissionBurstMax is the rolling-window submission count
	// above which the rapid-submissions pattern fires
	DefaultSubmissionBurstMax = 5
)

// Orchestration defaults
const (
	// DefaultEvaluatorTimeout bounds each evaluator run
	DefaultEvaluatorTimeout = 5 * time.Second

	// DefaultHistoryLimit bounds ListAssessments when the caller does not
	// specify a page size
	DefaultHistoryLimit = 20
)

// Network analysis constants
const (
	// LocationConsistencyFloor is the score below which the
	// location-inconsistency pattern fires
	LocationConsistencyFloor = 0.5
)
