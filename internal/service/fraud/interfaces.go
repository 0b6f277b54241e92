package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
)

// Service defines the fraud risk assessment interface
type Service interface {
	// AnalyzeFraudRisk runs every applicable evaluator and returns the verdict
	AnalyzeFraudRisk(ctx context.Context, input *AssessmentInput) (*assessment.FraudAnalysisResult, error)
	// GetAssessment retrieves a persisted verdict by ID
	GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.FraudAnalysisResult, error)
	// ListAssessments retrieves an applicant's verdict history, newest first
	ListAssessments(ctx context.Context, applicantID string, limit int) ([]*assessment.FraudAnalysisResult, error)
	// GetProfile retrieves an applicant's behavioral profile snapshot
	GetProfile(ctx context.Context, applicantID string) (*applicant.BehavioralProfile, error)
	// UpdateThresholds replaces the runtime decision thresholds
	UpdateThresholds(ctx context.Context, update ThresholdUpdate) error
}

// Evaluator is a single fraud signal source. Implementations must be safe
// for concurrent use; a failing evaluator is isolated by the orchestrator
// and never aborts the assessment.
type Evaluator interface {
	// Name identifies the evaluator in logs and metrics
	Name() string
	// Applicable reports whether this evaluator should run for the input
	Applicable(input *AssessmentInput) bool
	// Evaluate inspects the input and returns any detected patterns
	Evaluate(ctx context.Context, input *AssessmentInput) ([]assessment.DetectedPattern, error)
}

// ProfileStore provides per-applicant exclusive read-modify-write over
// behavioral profiles
type ProfileStore interface {
	// Get returns the applicant's profile snapshot
	Get(ctx context.Context, applicantID string) (*applicant.BehavioralProfile, error)
	// Update applies fn to the profile under the per-applicant lock,
	// creating the profile on first contact
	Update(ctx context.Context, applicantID string, fn func(*applicant.BehavioralProfile) error) (*applicant.BehavioralProfile, error)
}

// SubmissionWindow counts applicant submissions inside a rolling window
type SubmissionWindow interface {
	// RecordAndCount registers a submission and returns the window count
	// including it
	RecordAndCount(ctx context.Context, applicantID string, window time.Duration) (int, error)
}

// DocumentIndex tracks document fingerprints across applicants
type DocumentIndex interface {
	// FindCollisions returns other applicants that have submitted the same hash
	FindCollisions(ctx context.Context, hash string, excludeApplicantID string) ([]string, error)
	// Record stores the fingerprint of a newly seen document
	Record(ctx context.Context, applicantID string, doc applicant.Document) error
}

// ReferenceChecker looks up declared identities against known-fraud records
type ReferenceChecker interface {
	// CheckIdentity reports whether the identity matches a known-fraud record
	CheckIdentity(ctx context.Context, info applicant.PersonalInfo) (*IdentityReference, error)
}

// IPReputationService augments local network heuristics with an external
// reputation source
type IPReputationService interface {
	// Lookup returns reputation data for an IP address
	Lookup(ctx context.Context, ip string) (*IPReputation, error)
}

// BackgroundChecker runs external screening for enhanced-tier applicants
type BackgroundChecker interface {
	// Check screens the applicant and returns the raw report
	Check(ctx context.Context, applicantID string, info applicant.PersonalInfo) (*BackgroundCheckReport, error)
}

// ResultRepository persists assessment verdicts
type ResultRepository interface {
	// Save stores a completed verdict
	Save(ctx context.Context, result *assessment.FraudAnalysisResult) error
	// GetByID retrieves a verdict by its engine-assigned ID
	GetByID(ctx context.Context, id uuid.UUID) (*assessment.FraudAnalysisResult, error)
	// ListByApplicant retrieves an applicant's verdicts, newest first
	ListByApplicant(ctx context.Context, applicantID string, limit int) ([]*assessment.FraudAnalysisResult, error)
}

// PatternRepository persists the pattern catalog
type PatternRepository interface {
	// List returns every catalog row, active and inactive
	List(ctx context.Context) ([]*assessment.FraudPattern, error)
	// Upsert inserts or replaces a catalog row
	Upsert(ctx context.Context, pattern *assessment.FraudPattern) error
	// Deactivate marks a catalog row inactive
	Deactivate(ctx context.Context, id string) error
}

// AlertNotifier receives high-risk verdicts for escalation
type AlertNotifier interface {
	// NotifyHighRisk escalates a verdict whose score crossed the
	// escalation threshold
	NotifyHighRisk(ctx context.Context, result *assessment.FraudAnalysisResult)
}

// AssessmentInput is the application snapshot an assessment runs against
type AssessmentInput struct {
	ApplicantID string
	Tier        applicant.VerificationTier
	Personal    applicant.PersonalInfo
	Documents   []applicant.Document
	Behavior    *applicant.BehaviorData
	Network     *applicant.NetworkContext
	SubmittedAt time.Time
}

// IdentityReference is the outcome of a known-fraud identity lookup
type IdentityReference struct {
	Flagged bool
	Reason  string
	Source  string
}

// IPReputation is the outcome of an IP reputation lookup
type IPReputation struct {
	Suspicious bool
	ProxyOrVPN bool
	Hosting    bool
	Reason     string
}

// CriminalSeverity grades criminal history findings
type CriminalSeverity string

const (
	CriminalMinor         CriminalSeverity = "minor"
	CriminalSignificant   CriminalSeverity = "significant"
	CriminalDisqualifying CriminalSeverity = "disqualifying"
)

// CriminalRecord is a single criminal history finding
type CriminalRecord struct {
	Offense  string
	Severity CriminalSeverity
	Year     int
}

// EducationClaim is a single verified-or-not education history claim
type EducationClaim struct {
	Institution string
	Credential  string
	Verified    bool
	Fraudulent  bool
}

// BackgroundCheckReport is the raw screening output before clearance
// derivation
type BackgroundCheckReport struct {
	SanctionsHit    bool
	SanctionsSource string
	Criminal        []CriminalRecord
	Education       []EducationClaim
	CompletedAt     time.Time
}

// Clearance derives the screening outcome. Rule order is load-bearing:
// sanctions and disqualifying offenses dominate everything, fraudulent
// education dominates minor offenses.
func (r *BackgroundCheckReport) Clearance() assessment.Clearance {
	if r == nil {
		return assessment.ClearanceClear
	}

	if r.SanctionsHit {
		return assessment.ClearanceRejected
	}

	hasSignificant := false
	hasMinor := false
	for _, rec := range r.Criminal {
		switch rec.Severity {
		case CriminalDisqualifying:
			return assessment.ClearanceRejected
		case CriminalSignificant:
			hasSignificant = true
		case CriminalMinor:
			hasMinor = true
		}
	}
	if hasSignificant {
		return assessment.ClearanceFlagged
	}

	for _, claim := range r.Education {
		if claim.Fraudulent {
			return assessment.ClearanceRejected
		}
	}

	if hasMinor {
		return assessment.ClearanceConditional
	}

	return assessment.ClearanceClear
}

// ThresholdUpdate carries a runtime tuning request for the decision engine
// and the registry's category weights
type ThresholdUpdate struct {
	RiskThresholds  *RiskThresholds
	CategoryWeights map[assessment.PatternCategory]float64
	AlertSettings   *AlertSettings
}

// Settings represents the configurable assessment engine tunables
type Settings struct {
	Thresholds       RiskThresholds
	Alerts           AlertSettings
	CategoryWeights  map[assessment.PatternCategory]float64
	EvaluatorTimeout time.Duration
	HistoryLimit     int
}

// RiskThresholds are the classification boundaries, ascending
type RiskThresholds struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

// AlertSettings governs escalation behavior
type AlertSettings struct {
	EnableRealTimeAlerts bool
	EscalationThreshold  float64
	AutoRejectThreshold  float64
}
