package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/gdpdu"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

// summary is the console report of a conversion.
type summary struct {
	Heading       string
	SourceRows    int
	Excluded      int
	Postings      int
	Selected      int
	DebitCount    int
	CreditCount   int
	Totals        []posting.LabelTotal
	TaxKeys       []posting.TaxKey
	Counter       []string
	Gaps          []posting.Gap
	Diagnostics   int
	Overridden    int
	VoucherEvents int
}

func summarize(c *conversion) summary {
	r := c.Result
	s := summary{
		Heading:       r.Heading,
		SourceRows:    c.Export.SourceRows,
		Excluded:      len(c.Export.Excluded),
		Postings:      len(r.Postings),
		Selected:      len(r.Selected),
		Totals:        posting.Totals(r.Collective),
		Gaps:          r.Gaps,
		Diagnostics:   len(c.Diagnostics),
		VoucherEvents: len(r.Vouchers),
	}

	keys := make(map[posting.TaxKey]bool)
	counter := make(map[string]bool)
	for _, p := range r.Selected {
		if p.Side == posting.SideCredit {
			s.CreditCount++
			counter[p.DebitAccount] = true
		} else {
			s.DebitCount++
			counter[p.CreditAccount] = true
		}
	}
	for _, cp := range r.Collective {
		keys[cp.TaxKey] = true
		if cp.Override != "" {
			s.Overridden++
		}
	}

	for k := range keys {
		s.TaxKeys = append(s.TaxKeys, k)
	}
	sort.Slice(s.TaxKeys, func(i, j int) bool { return s.TaxKeys[i] < s.TaxKeys[j] })
	for a := range counter {
		s.Counter = append(s.Counter, a)
	}
	sort.Strings(s.Counter)

	return s
}

func (s summary) print(out io.Writer, describe func(posting.TaxKey) string) {
	fmt.Fprintf(out, "\n=== Summary %s ===\n", s.Heading)
	fmt.Fprintf(out, "Rows read:          %d (excluded: %d)\n", s.SourceRows, s.Excluded)
	fmt.Fprintf(out, "Postings:           %d (in period: %d, S: %d, H: %d)\n", s.Postings, s.Selected, s.DebitCount, s.CreditCount)

	fmt.Fprintln(out, "\nSumme:")
	for _, t := range s.Totals {
		fmt.Fprintf(out, "  %s %-6s %14s  (%d postings)\n", t.Side, t.Account, gdpdu.FormatDecimal(t.Amount), t.Count)
	}

	fmt.Fprintln(out, "\nTax keys:")
	for _, k := range s.TaxKeys {
		if d := describe(k); d != "" {
			fmt.Fprintf(out, "  %-6s %s\n", k, d)
		} else {
			fmt.Fprintf(out, "  %s\n", k)
		}
	}
	if s.Overridden > 0 {
		fmt.Fprintf(out, "  (%d collective postings rewritten by override rules)\n", s.Overridden)
	}

	fmt.Fprintf(out, "\nCounter accounts:   %v\n", s.Counter)

	if len(s.Gaps) == 0 {
		fmt.Fprintln(out, "Receipt gaps:       none")
	} else {
		fmt.Fprintf(out, "Receipt gaps:       %d\n", len(s.Gaps))
		for _, g := range s.Gaps {
			fmt.Fprintf(out, "  %s\n", g)
		}
	}

	if s.VoucherEvents > 0 {
		fmt.Fprintf(out, "Voucher events:     %d\n", s.VoucherEvents)
	}
	fmt.Fprintf(out, "Diagnostics:        %d\n\n", s.Diagnostics)
}
