package posting

import (
	"fmt"
	"time"
)

// OverrideRule rewrites the tax key and text of collective postings on Account
// whose latest member falls into [From, To] (calendar days, inclusive). Rules
// model temporary rate changes such as the reduced rates of the second half of 2020.
type OverrideRule struct {
	Name    string
	Account string
	From    time.Time
	To      time.Time
	TaxKey  TaxKey
	Label   string
}

// Validate checks that the rule is usable.
func (r OverrideRule) Validate() error {
	switch {
	case r.Account == "":
		return fmt.Errorf("%w: override %q has no account", ErrInvalidConfig, r.Name)
	case r.TaxKey == "":
		return fmt.Errorf("%w: override %q has no tax key", ErrInvalidConfig, r.Name)
	case r.From.IsZero() || r.To.IsZero():
		return fmt.Errorf("%w: override %q needs from and to dates", ErrInvalidConfig, r.Name)
	case dateOf(r.To).Before(dateOf(r.From)):
		return fmt.Errorf("%w: override %q ends before it starts", ErrInvalidConfig, r.Name)
	}
	return nil
}

// Matches reports whether the bucket is subject to the rule. Only the bucket's
// latest timestamp is considered, so a bucket straddling a boundary is
// classified by its last transaction.
func (r OverrideRule) Matches(c CollectivePosting) bool {
	if c.DebitAccount != r.Account && c.CreditAccount != r.Account {
		return false
	}
	d := dateOf(c.Last)
	return !d.Before(dateOf(r.From)) && !d.After(dateOf(r.To))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
