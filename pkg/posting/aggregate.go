package posting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTextPrefix starts the text of every collective posting.
const DefaultTextPrefix = "Sammelbuchung"

// Aggregator builds collective postings.
type Aggregator struct {
	prefix string
	rules  []OverrideRule
}

// NewAggregator validates the override rules. Rules are evaluated in order and
// the first match wins.
func NewAggregator(prefix string, rules []OverrideRule) (*Aggregator, error) {
	if prefix == "" {
		prefix = DefaultTextPrefix
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return &Aggregator{
		prefix: prefix,
		rules:  append([]OverrideRule(nil), rules...),
	}, nil
}

type bucketKey struct {
	side  Side
	label string
	other string
	tax   TaxKey
}

// Aggregate groups Credit postings by (debit account, tax key) under their
// credit account, and Debit postings by (credit account, tax key) under their
// debit account. Buckets are returned in the order their first member appears
// in the input. Override rules are applied to the finished buckets.
func (a *Aggregator) Aggregate(postings []NormalizedPosting, heading string) []CollectivePosting {
	index := make(map[bucketKey]int)
	var out []CollectivePosting

	for _, p := range postings {
		key := bucketKey{side: p.Side, tax: p.TaxKey}
		if p.Side == SideCredit {
			key.label, key.other = p.CreditAccount, p.DebitAccount
		} else {
			key.label, key.other = p.DebitAccount, p.CreditAccount
		}

		i, ok := index[key]
		if !ok {
			out = append(out, CollectivePosting{
				Side:          p.Side,
				LabelAccount:  key.label,
				DebitAccount:  p.DebitAccount,
				CreditAccount: p.CreditAccount,
				TaxKey:        p.TaxKey,
				Amount:        decimal.Zero,
				First:         p.Timestamp,
				Last:          p.Timestamp,
			})
			i = len(out) - 1
			index[key] = i
		}

		c := &out[i]
		c.Amount = c.Amount.Add(p.Amount)
		if p.Timestamp.Before(c.First) {
			c.First = p.Timestamp
		}
		if p.Timestamp.After(c.Last) {
			c.Last = p.Timestamp
		}
		c.Members = append(c.Members, p.Index)
	}

	text := a.prefix + heading
	for i := range out {
		out[i].Text = text
		a.override(&out[i], text)
	}

	return out
}

func (a *Aggregator) override(c *CollectivePosting, text string) {
	for _, r := range a.rules {
		if !r.Matches(*c) {
			continue
		}
		c.TaxKey = r.TaxKey
		if r.Label != "" {
			c.Text = fmt.Sprintf("%s %s", text, r.Label)
		}
		c.Override = r.Name
		return
	}
}

// LabelTotal sums the collective postings filed under one label account.
type LabelTotal struct {
	Side    Side
	Account string
	Amount  decimal.Decimal
	Count   int
}

// Totals sums the buckets per side and label account, in first-appearance order.
func Totals(collective []CollectivePosting) []LabelTotal {
	type key struct {
		side    Side
		account string
	}
	index := make(map[key]int)
	var out []LabelTotal
	for _, c := range collective {
		k := key{c.Side, c.LabelAccount}
		i, ok := index[k]
		if !ok {
			out = append(out, LabelTotal{Side: c.Side, Account: c.LabelAccount, Amount: decimal.Zero})
			i = len(out) - 1
			index[k] = i
		}
		out[i].Amount = out[i].Amount.Add(c.Amount)
		out[i].Count += c.Count()
	}
	return out
}

// MemberPostings returns the postings behind the collective postings, grouped by
// side and label account. postings must be the full normalized stream the
// member indices refer to.
func MemberPostings(collective []CollectivePosting, postings []NormalizedPosting) []NormalizedPosting {
	byIndex := make(map[int]NormalizedPosting, len(postings))
	for _, p := range postings {
		byIndex[p.Index] = p
	}

	var out []NormalizedPosting
	for _, total := range Totals(collective) {
		for _, c := range collective {
			if c.Side != total.Side || c.LabelAccount != total.Account {
				continue
			}
			for _, i := range c.Members {
				if p, ok := byIndex[i]; ok {
					out = append(out, p)
				}
			}
		}
	}
	return out
}
