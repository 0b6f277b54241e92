package applicant

import (
	"fmt"
	"regexp"
	"time"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// DocumentMetadata is the extraction output an upstream parser supplies
// for one uploaded document. The engine never parses raw files.
type DocumentMetadata struct {
	CreationTime *time.Time `json:"creation_time,omitempty"`
	Producer     string     `json:"producer,omitempty"`
	PageCount    int        `json:"page_count,omitempty"`

	// Identity fields extracted from the document body, compared against
	// the applicant's declared PersonalInfo and against other documents.
	ExtractedName        string `json:"extracted_name,omitempty"`
	ExtractedDateOfBirth string `json:"extracted_date_of_birth,omitempty"`
	ExtractedAddress     string `json:"extracted_address,omitempty"`
}

// Document is one submitted artifact: a precomputed content hash plus the
// metadata extracted upstream.
type Document struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Hash     string           `json:"hash"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Validate checks the fields every evaluator relies on. The hash must be
// hex-encoded SHA-256 so the cross-applicant index stays collision-meaningful.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id cannot be empty")
	}
	if d.Hash == "" {
		return fmt.Errorf("document %s: hash cannot be empty", d.ID)
	}
	if !sha256Hex.MatchString(d.Hash) {
		return fmt.Errorf("document %s: hash must be 64 hex characters", d.ID)
	}
	return nil
}
