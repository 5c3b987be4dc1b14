package errors

import "fmt"

// WarningKind classifies non-fatal enrichment problems.
type WarningKind string

// Warning kinds surfaced by the enrichment pipeline.
const (
	// WarnMissingReference means a person or chapter image could not be
	// resolved; output proceeds with partial data.
	WarnMissingReference WarningKind = "missing_reference"

	// WarnMalformedLocalSource means a local chapter file was present but
	// failed to parse; the episode falls back to upstream chapters.
	WarnMalformedLocalSource WarningKind = "malformed_local_source"
)

// Warning is a non-fatal, per-episode or per-person problem. Warnings are
// aggregated and returned alongside successful output, never dropped
// silently and never fatal on their own.
type Warning struct {
	Kind    WarningKind
	Subject string // offending name, title, or file
	Detail  string
}

// String renders the warning for user-facing reports.
func (w Warning) String() string {
	if w.Detail == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Subject)
	}
	return fmt.Sprintf("%s: %s (%s)", w.Kind, w.Subject, w.Detail)
}

// SampleWarnings returns up to max warnings for display. User-visible
// reports show a count plus a bounded sample of offending subjects.
func SampleWarnings(warnings []Warning, max int) []Warning {
	if len(warnings) <= max {
		return warnings
	}
	return warnings[:max]
}
