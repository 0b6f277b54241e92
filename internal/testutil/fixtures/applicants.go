package fixtures

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// DocumentHash returns the hex SHA-256 of seed, so tests get stable,
// well-formed hashes without hardcoding 64-character literals.
func DocumentHash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// AssessmentInputBuilder builds assessment inputs for tests
type AssessmentInputBuilder struct {
	t     *testing.T
	input fraud.AssessmentInput
}

// NewAssessmentInputBuilder creates a builder with a clean default
// applicant: one well-formed document, consistent identity fields, human
// interaction telemetry and no network context.
func NewAssessmentInputBuilder(t *testing.T) *AssessmentInputBuilder {
	t.Helper()

	personal := applicant.PersonalInfo{
		FullName:    "Ada Okafor",
		DateOfBirth: "1999-04-12",
		Address:     "14 Harbor Lane, Lagos",
		Email:       "ada.okafor@example.com",
	}

	return &AssessmentInputBuilder{
		t: t,
		input: fraud.AssessmentInput{
			ApplicantID: "applicant-001",
			Tier:        applicant.TierStandard,
			Personal:    personal,
			Documents: []applicant.Document{{
				ID:   "doc-1",
				Type: "transcript",
				Hash: DocumentHash("doc-1"),
				Metadata: applicant.DocumentMetadata{
					Producer:             "Acrobat Distiller 21.0",
					ExtractedName:        personal.FullName,
					ExtractedDateOfBirth: personal.DateOfBirth,
					ExtractedAddress:     personal.Address,
				},
			}},
			Behavior: &applicant.BehaviorData{
				ClickIntervalsMs: []float64{220, 480, 310, 650, 290},
				TypingSpeed:      55,
				PauseDurationsMs: []float64{900, 2400, 1300, 3100},
				SessionID:        "session-001",
			},
			SubmittedAt: time.Now().UTC(),
		},
	}
}

// WithApplicantID sets the applicant ID
func (b *AssessmentInputBuilder) WithApplicantID(id string) *AssessmentInputBuilder {
	b.input.ApplicantID = id
	return b
}

// WithTier sets the verification tier
func (b *AssessmentInputBuilder) WithTier(tier applicant.VerificationTier) *AssessmentInputBuilder {
	b.input.Tier = tier
	return b
}

// WithDocuments replaces the document set
func (b *AssessmentInputBuilder) WithDocuments(docs ...applicant.Document) *AssessmentInputBuilder {
	b.input.Documents = docs
	return b
}

// WithDocumentHash rewrites the first document's hash, keeping the rest of
// the clean defaults
func (b *AssessmentInputBuilder) WithDocumentHash(hash string) *AssessmentInputBuilder {
	b.t.Helper()
	if len(b.input.Documents) == 0 {
		b.t.Fatal("no documents to rewrite")
	}
	b.input.Documents[0].Hash = hash
	return b
}

// WithPersonal sets the declared identity fields
func (b *AssessmentInputBuilder) WithPersonal(info applicant.PersonalInfo) *AssessmentInputBuilder {
	b.input.Personal = info
	return b
}

// WithBehavior sets the interaction telemetry
func (b *AssessmentInputBuilder) WithBehavior(data *applicant.BehaviorData) *AssessmentInputBuilder {
	b.input.Behavior = data
	return b
}

// WithTypingSpeed overrides only the typing speed sample
func (b *AssessmentInputBuilder) WithTypingSpeed(speed float64) *AssessmentInputBuilder {
	if b.input.Behavior == nil {
		b.input.Behavior = &applicant.BehaviorData{}
	}
	b.input.Behavior.TypingSpeed = speed
	return b
}

// WithNetwork sets the network context
func (b *AssessmentInputBuilder) WithNetwork(netCtx *applicant.NetworkContext) *AssessmentInputBuilder {
	b.input.Network = netCtx
	return b
}

// WithSubmittedAt pins the submission time
func (b *AssessmentInputBuilder) WithSubmittedAt(ts time.Time) *AssessmentInputBuilder {
	b.input.SubmittedAt = ts
	return b
}

// Build returns the assembled input
func (b *AssessmentInputBuilder) Build() *fraud.AssessmentInput {
	input := b.input
	return &input
}
