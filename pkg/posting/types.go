// Package posting turns receipt-level sales records into normalized double-entry
// postings and summarizes them into collective postings per account pair and tax key.
//
// The package performs no I/O. Callers hand it typed records and receive typed
// records back together with the diagnostics collected along the way.
package posting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the goods/service classification of a sold product.
type Category string

const (
	CategoryGoods   Category = "goods"
	CategoryService Category = "service"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryGoods || c == CategoryService
}

// Side is the debit/credit indicator of a posting (Soll/Haben).
type Side string

const (
	SideDebit  Side = "S"
	SideCredit Side = "H"
)

// SideOf derives the side indicator from a signed amount. Zero is Debit.
func SideOf(amount decimal.Decimal) Side {
	if amount.IsNegative() {
		return SideCredit
	}
	return SideDebit
}

// TaxKey is a canonical tax-rate category (e.g. "USt19").
type TaxKey string

// RawTransaction is one sales-receipt line or one pre-formed ledger line as read
// from the export.
type RawTransaction struct {
	Row           int   // Source line, for diagnostics
	ReceiptNumber int64 // Bon_Nummer
	Date          string
	Time          string
	GrossSales    decimal.Decimal // Umsatz Br., carried through unchanged
	Quantity      int64           // Negative for returns
	Product       string
	UnitPrice     decimal.Decimal // Einzel VK Br.
	TaxRate       string          // Raw MwSt-Satz indicator
	Tax           decimal.Decimal // MwSt, carried through unchanged
	Category      Category

	// Account overrides the intrinsic account for pre-formed ledger rows.
	Account       string
	VoucherID     string
	LinkedReceipt string
}

// NormalizedPosting is the double-entry view of exactly one RawTransaction.
type NormalizedPosting struct {
	Source RawTransaction

	// Index is the position of the source record in the input stream.
	Index         int
	Side          Side
	Amount        decimal.Decimal // Non-negative for receipt data
	DebitAccount  string
	CreditAccount string
	TaxKey        TaxKey
	Timestamp     time.Time
	Annotation    string
}

// SignedAmount returns the amount with its original polarity restored.
func (p NormalizedPosting) SignedAmount() decimal.Decimal {
	if p.Side == SideCredit {
		return p.Amount.Neg()
	}
	return p.Amount
}

// CollectivePosting summarizes postings sharing an account pair and tax key.
type CollectivePosting struct {
	// Side is the side of the member postings.
	Side Side

	// LabelAccount is the fixed account the bucket was selected by: the credit
	// account for Credit-side buckets, the debit account for Debit-side buckets.
	LabelAccount  string
	DebitAccount  string
	CreditAccount string
	TaxKey        TaxKey
	Amount        decimal.Decimal
	First         time.Time
	Last          time.Time
	Text          string

	// Members holds the indices of the contributing postings in input order.
	Members []int

	// Override names the rule that rewrote TaxKey and Text, if any.
	Override string
}

// Count returns the number of contributing postings.
func (c CollectivePosting) Count() int {
	return len(c.Members)
}

// VoucherKind tags a voucher ledger row.
type VoucherKind string

const (
	VoucherIssue      VoucherKind = "issue"
	VoucherRedemption VoucherKind = "redemption"
)

// VoucherEvent is a posting on one of the voucher accounts.
type VoucherEvent struct {
	Kind          VoucherKind
	Date          string
	Time          string
	Timestamp     time.Time
	Amount        decimal.Decimal
	Receipt       int64
	VoucherID     string
	Quantity      int64
	Product       string
	LinkedReceipt string
	Account       string
}
