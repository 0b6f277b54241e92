package assessment

// Clearance is the outcome of a background screening, ordered from clean
// to disqualifying.
type Clearance string

const (
	ClearanceClear       Clearance = "clear"
	ClearanceConditional Clearance = "conditional"
	ClearanceFlagged     Clearance = "flagged"
	ClearanceRejected    Clearance = "rejected"
)

// Passed reports whether the screening found nothing at all.
func (c Clearance) Passed() bool {
	return c == ClearanceClear
}
