package posting

import "fmt"

// DiagnosticKind classifies a recoverable or structural condition.
type DiagnosticKind string

const (
	DiagFallbackTaxKey   DiagnosticKind = "fallback_tax_key"
	DiagFallbackAccount  DiagnosticKind = "fallback_account"
	DiagSequenceGap      DiagnosticKind = "sequence_gap"
	DiagRowCountMismatch DiagnosticKind = "row_count_mismatch"
	DiagUnknownCategory  DiagnosticKind = "unknown_category"
)

// Diagnostic is a condition that was handled without stopping the run.
type Diagnostic struct {
	Kind DiagnosticKind
	// Index is the affected posting, or -1 when the condition is not tied to one.
	Index   int
	Row     int
	Message string
}

func (d Diagnostic) String() string {
	if d.Row <= 0 {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s (row %d): %s", d.Kind, d.Row, d.Message)
}

// Diagnostics is an ordered collection of diagnostics.
type Diagnostics []Diagnostic

// Add appends a diagnostic.
func (d *Diagnostics) Add(kind DiagnosticKind, index, row int, format string, args ...any) {
	*d = append(*d, Diagnostic{
		Kind:    kind,
		Index:   index,
		Row:     row,
		Message: fmt.Sprintf(format, args...),
	})
}

// Count returns how many diagnostics of the given kind were collected.
func (d Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, diag := range d {
		if diag.Kind == kind {
			n++
		}
	}
	return n
}

// OfKind returns the diagnostics of the given kind in order.
func (d Diagnostics) OfKind(kind DiagnosticKind) Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Kind == kind {
			out = append(out, diag)
		}
	}
	return out
}
