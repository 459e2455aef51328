package posting

import (
	"fmt"
	"time"
)

// Config is the immutable per-run configuration of the engine. It is usually
// built by the mapping package from a YAML file.
type Config struct {
	// Indicators maps raw tax-rate strings to tax keys.
	Indicators    map[string]TaxKey
	ExemptKey     TaxKey
	UnresolvedKey TaxKey

	CounterAccounts  map[AccountKey]string
	DefaultAccount   string
	IntrinsicAccount string

	TextPrefix string
	Overrides  []OverrideRule
	Vouchers   VoucherAccounts

	// Location is used to interpret export timestamps. Defaults to UTC.
	Location *time.Location
}

// Engine runs the whole transformation for one dataset.
type Engine struct {
	normalizer *Normalizer
	aggregator *Aggregator
	vouchers   *VoucherTracker
	location   *time.Location
}

// NewEngine validates cfg and builds the components.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ExemptKey == "" {
		return nil, fmt.Errorf("%w: exempt tax key is empty", ErrInvalidConfig)
	}

	resolver, err := NewTaxKeyResolver(cfg.Indicators, cfg.UnresolvedKey)
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(cfg.CounterAccounts, cfg.DefaultAccount, cfg.ExemptKey, cfg.UnresolvedKey)
	if err != nil {
		return nil, err
	}

	for _, key := range resolver.Keys() {
		if !classifier.Covers(key) {
			return nil, fmt.Errorf("%w: tax key %q has no counter accounts", ErrInvalidConfig, key)
		}
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	normalizer, err := NewNormalizer(resolver, classifier, cfg.IntrinsicAccount, loc)
	if err != nil {
		return nil, err
	}

	aggregator, err := NewAggregator(cfg.TextPrefix, cfg.Overrides)
	if err != nil {
		return nil, err
	}

	return &Engine{
		normalizer: normalizer,
		aggregator: aggregator,
		vouchers:   NewVoucherTracker(cfg.Vouchers),
		location:   loc,
	}, nil
}

// Location returns the time zone timestamps are parsed in.
func (e *Engine) Location() *time.Location {
	return e.location
}

// Input is one dataset handed to the engine.
type Input struct {
	Transactions []RawTransaction

	// SourceRows is the number of data rows the reader saw before excluding rows
	// it could not classify. Zero skips the row count check.
	SourceRows int

	// Receipts is the receipt number of every data row, excluded rows included.
	// Empty falls back to the receipt numbers of Transactions.
	Receipts []ReceiptRef

	Period        *Period
	VoucherFilter string
}

// Result holds the three output views and everything reported along the way.
type Result struct {
	Heading string

	// Postings holds every normalized posting; Selected the ones inside the period.
	Postings   []NormalizedPosting
	Selected   []NormalizedPosting
	Collective []CollectivePosting
	Vouchers   []VoucherEvent
	Gaps       []Gap

	Diagnostics Diagnostics
}

// Run normalizes the input, checks the receipt sequence, and derives the
// collective postings and the voucher ledger from the postings inside the period.
func (e *Engine) Run(in Input) (*Result, error) {
	postings, diags, err := e.normalizer.Normalize(in.Transactions)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	if in.SourceRows > 0 && in.SourceRows != len(postings) {
		diags.Add(DiagRowCountMismatch, -1, 0,
			"export contains %d rows but %d postings were produced; check the Dst/Ware column",
			in.SourceRows, len(postings))
	}

	receipts := in.Receipts
	if len(receipts) == 0 {
		receipts = ReceiptRefs(in.Transactions)
	}
	gaps := DetectGaps(ReceiptNumbers(receipts))
	diags = append(diags, GapDiagnostics(gaps, receipts)...)

	selected := postings
	if in.Period != nil {
		selected = in.Period.Select(postings)
	}

	heading := Heading(in.Period)

	var vouchers []VoucherEvent
	if e.vouchers.Enabled() {
		vouchers = e.vouchers.Track(selected, in.VoucherFilter)
	}

	return &Result{
		Heading:     heading,
		Postings:    postings,
		Selected:    selected,
		Collective:  e.aggregator.Aggregate(selected, heading),
		Vouchers:    vouchers,
		Gaps:        gaps,
		Diagnostics: diags,
	}, nil
}
