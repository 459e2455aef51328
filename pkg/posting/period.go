package posting

import (
	"fmt"
	"time"
)

// PeriodLayout is the layout of reporting period boundaries.
const PeriodLayout = "2006-01-02"

// HeadingAll labels output that covers the whole export.
const HeadingAll = "_All"

// Period selects postings with Start < timestamp <= End.
type Period struct {
	Start time.Time
	End   time.Time
}

// ParsePeriod parses two YYYY-MM-DD dates as midnight in loc.
func ParsePeriod(start, end string, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := time.ParseInLocation(PeriodLayout, start, loc)
	if err != nil {
		return Period{}, fmt.Errorf("%w: start date %q should be YYYY-MM-DD", ErrInvalidPeriod, start)
	}
	e, err := time.ParseInLocation(PeriodLayout, end, loc)
	if err != nil {
		return Period{}, fmt.Errorf("%w: end date %q should be YYYY-MM-DD", ErrInvalidPeriod, end)
	}
	if e.Before(s) {
		return Period{}, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidPeriod, end, start)
	}
	return Period{Start: s, End: e}, nil
}

// Contains reports whether t falls into the period.
func (p Period) Contains(t time.Time) bool {
	return t.After(p.Start) && !t.After(p.End)
}

// Heading returns the label used in output names and collective posting text.
func (p Period) Heading() string {
	return fmt.Sprintf("_vom_%s_bis_%s", p.Start.Format(PeriodLayout), p.End.Format(PeriodLayout))
}

// Select returns the postings inside the period in their original order.
func (p Period) Select(postings []NormalizedPosting) []NormalizedPosting {
	out := make([]NormalizedPosting, 0, len(postings))
	for _, posting := range postings {
		if p.Contains(posting.Timestamp) {
			out = append(out, posting)
		}
	}
	return out
}

// Heading returns HeadingAll when no period is set.
func Heading(p *Period) string {
	if p == nil {
		return HeadingAll
	}
	return p.Heading()
}
