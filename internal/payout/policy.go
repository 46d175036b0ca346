// Package payout maps a disaster severity label to the initial payout released for it.
package payout

// Severity is the qualitative tier attached to a declared event.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
)

var table = map[Severity]int64{
	SeverityCritical: 2_000_000,
	SeverityHigh:     500_000,
	SeverityMedium:   50_000,
}

// For returns the payout for severity. Matching is exact and case-sensitive; any
// unrecognized label pays zero rather than failing.
func For(severity string) int64 {
	return table[Severity(severity)]
}

// Known reports whether severity is one of the tiers in the table.
func Known(severity string) bool {
	_, ok := table[Severity(severity)]
	return ok
}
