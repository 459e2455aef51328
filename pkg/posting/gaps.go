package posting

import (
	"fmt"
	"strconv"
	"strings"
)

// Gap is a break in the receipt number sequence between two consecutive records.
type Gap struct {
	// Position is the index of the receipt number after the break.
	Position int
	Previous int64
	Current  int64
}

// Difference returns Current - Previous.
func (g Gap) Difference() int64 {
	return g.Current - g.Previous
}

// MissingCount returns the number of receipt numbers skipped. A decreasing
// sequence skips nothing and yields 0.
func (g Gap) MissingCount() int64 {
	if d := g.Difference(); d > 1 {
		return d - 1
	}
	return 0
}

// Missing reconstructs the skipped receipt numbers.
func (g Gap) Missing() []int64 {
	n := g.MissingCount()
	if n == 0 {
		return nil
	}
	out := make([]int64, 0, n)
	for id := g.Current - g.Difference() + 1; id < g.Current; id++ {
		out = append(out, id)
	}
	return out
}

func (g Gap) String() string {
	if g.Difference() < 0 {
		return fmt.Sprintf("receipt number drops from %d to %d", g.Previous, g.Current)
	}
	missing := g.Missing()
	ids := make([]string, len(missing))
	for i, id := range missing {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%d receipt(s) missing between %d and %d: %s",
		g.MissingCount(), g.Previous, g.Current, strings.Join(ids, ", "))
}

// DetectGaps scans consecutive receipt numbers. Steps of 0 (same receipt) and
// 1 (next receipt) are expected; anything else is a gap. The first element has
// no predecessor and is never a gap.
func DetectGaps(ids []int64) []Gap {
	var gaps []Gap
	for i := 1; i < len(ids); i++ {
		d := ids[i] - ids[i-1]
		if d == 0 || d == 1 {
			continue
		}
		gaps = append(gaps, Gap{Position: i, Previous: ids[i-1], Current: ids[i]})
	}
	return gaps
}

// ReceiptRef is one receipt number together with the source row it was read from.
type ReceiptRef struct {
	Row    int
	Number int64
}

// ReceiptRefs extracts the receipt numbers of typed records in input order.
func ReceiptRefs(txns []RawTransaction) []ReceiptRef {
	refs := make([]ReceiptRef, len(txns))
	for i, tx := range txns {
		refs[i] = ReceiptRef{Row: tx.Row, Number: tx.ReceiptNumber}
	}
	return refs
}

// ReceiptNumbers returns the numbers of refs in order.
func ReceiptNumbers(refs []ReceiptRef) []int64 {
	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = r.Number
	}
	return ids
}

// GapDiagnostics reports each gap as a sequence_gap diagnostic located at the
// row after the break. Gaps are not tied to a posting.
func GapDiagnostics(gaps []Gap, refs []ReceiptRef) Diagnostics {
	var diags Diagnostics
	for _, g := range gaps {
		row := 0
		if g.Position < len(refs) {
			row = refs[g.Position].Row
		}
		diags.Add(DiagSequenceGap, -1, row, "%s", g.String())
	}
	return diags
}
