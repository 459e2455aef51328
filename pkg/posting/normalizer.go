package posting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the layout of the export's Datum and Uhrzeit columns joined by a space.
const TimestampLayout = "02.01.2006 15:04:05"

// Annotations recorded on postings that needed a fallback.
const (
	NoteNoTaxKey         = "no tax key in input file"
	NoteNoCounterAccount = "no counter account for tax key"
)

// Normalizer converts raw records into double-entry postings.
type Normalizer struct {
	resolver   *TaxKeyResolver
	classifier *Classifier
	intrinsic  string
	location   *time.Location
}

// NewNormalizer creates a Normalizer. intrinsicAccount is the account every
// receipt line is booked against unless the record carries its own.
func NewNormalizer(resolver *TaxKeyResolver, classifier *Classifier, intrinsicAccount string, loc *time.Location) (*Normalizer, error) {
	if resolver == nil || classifier == nil {
		return nil, fmt.Errorf("%w: normalizer needs a resolver and a classifier", ErrInvalidConfig)
	}
	if intrinsicAccount == "" {
		return nil, fmt.Errorf("%w: intrinsic account is empty", ErrInvalidConfig)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Normalizer{
		resolver:   resolver,
		classifier: classifier,
		intrinsic:  intrinsicAccount,
		location:   loc,
	}, nil
}

// Normalize maps every record to one posting, preserving order. Lookup misses
// are annotated on the posting and summarized in the returned diagnostics; a
// malformed record aborts the run and no postings are returned.
func (n *Normalizer) Normalize(txns []RawTransaction) ([]NormalizedPosting, Diagnostics, error) {
	postings := make([]NormalizedPosting, 0, len(txns))
	misses := newMissLog()

	for i, tx := range txns {
		p, err := n.normalize(i, tx, misses)
		if err != nil {
			return nil, nil, err
		}
		postings = append(postings, p)
	}

	return postings, misses.diagnostics(), nil
}

func (n *Normalizer) normalize(i int, tx RawTransaction, misses *missLog) (NormalizedPosting, error) {
	if !tx.Category.Valid() {
		return NormalizedPosting{}, &RecordError{Index: i, Row: tx.Row, Field: "category", Err: fmt.Errorf("%w: %q", ErrUnknownCategory, tx.Category)}
	}

	amount := tx.UnitPrice.Mul(decimal.NewFromInt(tx.Quantity))
	side := SideOf(amount)

	var notes []string

	tax := n.resolver.Resolve(tx.TaxRate)
	if tax.Fallback {
		notes = append(notes, NoteNoTaxKey)
		misses.taxKey(tx.TaxRate, tax.Key, i, tx.Row)
	}

	counter := n.classifier.CounterAccount(tx.Category, tax.Key)
	if counter.Fallback {
		notes = append(notes, NoteNoCounterAccount)
		misses.account(tx.Category, tax.Key, i, tx.Row)
	}

	account := n.intrinsic
	if tx.Account != "" {
		account = tx.Account
	}

	debit, credit := account, counter.Account
	if side == SideCredit {
		debit, credit = credit, debit
		amount = amount.Neg()
	}

	ts, err := n.timestamp(tx)
	if err != nil {
		return NormalizedPosting{}, &RecordError{Index: i, Row: tx.Row, Field: "timestamp", Err: err}
	}

	return NormalizedPosting{
		Source:        tx,
		Index:         i,
		Side:          side,
		Amount:        amount,
		DebitAccount:  debit,
		CreditAccount: credit,
		TaxKey:        tax.Key,
		Timestamp:     ts,
		Annotation:    strings.Join(notes, "; "),
	}, nil
}

func (n *Normalizer) timestamp(tx RawTransaction) (time.Time, error) {
	date := strings.TrimSpace(tx.Date)
	clock := strings.TrimSpace(tx.Time)
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: date", ErrMissingField)
	}
	if clock == "" {
		return time.Time{}, fmt.Errorf("%w: time", ErrMissingField)
	}

	ts, err := time.ParseInLocation(TimestampLayout, date+" "+clock, n.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q: %v", ErrInvalidTimestamp, date, clock, err)
	}
	return ts, nil
}

// missLog folds repeated lookup misses into one diagnostic per distinct value,
// keeping the order in which they were first seen.
type missLog struct {
	order []string
	first map[string]Diagnostic
	count map[string]int
}

func newMissLog() *missLog {
	return &missLog{
		first: make(map[string]Diagnostic),
		count: make(map[string]int),
	}
}

func (m *missLog) taxKey(indicator string, fallback TaxKey, index, row int) {
	m.record("tax:"+indicator, Diagnostic{
		Kind:    DiagFallbackTaxKey,
		Index:   index,
		Row:     row,
		Message: fmt.Sprintf("tax rate %q not found, using fallback tax key %q", indicator, fallback),
	})
}

func (m *missLog) account(category Category, key TaxKey, index, row int) {
	m.record("account:"+string(category)+"/"+string(key), Diagnostic{
		Kind:    DiagFallbackAccount,
		Index:   index,
		Row:     row,
		Message: fmt.Sprintf("no %s counter account for tax key %q", category, key),
	})
}

func (m *missLog) record(id string, d Diagnostic) {
	if _, ok := m.first[id]; !ok {
		m.order = append(m.order, id)
		m.first[id] = d
	}
	m.count[id]++
}

func (m *missLog) diagnostics() Diagnostics {
	var out Diagnostics
	for _, id := range m.order {
		d := m.first[id]
		if n := m.count[id]; n > 1 {
			d.Message = fmt.Sprintf("%s (%d records)", d.Message, n)
		}
		out = append(out, d)
	}
	return out
}
