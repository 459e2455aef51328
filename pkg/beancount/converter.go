package beancount

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

// DefaultCurrency is used when the mapping does not name one.
const DefaultCurrency = "EUR"

// UnmappedPrefix is the parent of account numbers without a Beancount mapping.
const UnmappedPrefix = "Income:Unmapped:"

// AccountMapper resolves ledger account numbers to Beancount account names.
type AccountMapper interface {
	GetBeancountAccount(number string) string
}

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_./-]*$`)

// Converter converts collective postings to Beancount transactions.
type Converter struct {
	mapper   AccountMapper
	currency string
}

// NewConverter creates a new Converter.
func NewConverter(mapper AccountMapper, currency string) *Converter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Converter{
		mapper:   mapper,
		currency: currency,
	}
}

// Account maps a ledger account number.
func (c *Converter) Account(number string) string {
	if account := c.mapper.GetBeancountAccount(number); account != "" {
		return account
	}
	return UnmappedPrefix + sanitizeAccountName(number)
}

// ConvertCollective converts one collective posting. The transaction is dated
// by the latest member posting.
func (c *Converter) ConvertCollective(cp posting.CollectivePosting) Transaction {
	metadata := map[string]string{
		"tax_key":  string(cp.TaxKey),
		"postings": strconv.Itoa(cp.Count()),
		"side":     string(cp.Side),
	}
	if cp.Override != "" {
		metadata["override"] = cp.Override
	}

	return Transaction{
		Date:      cp.Last.Format("2006-01-02"),
		Narration: cp.Text,
		Tags:      buildTags(cp.TaxKey),
		Metadata:  metadata,
		Postings: []Posting{
			{
				Account:  c.Account(cp.DebitAccount),
				Amount:   cp.Amount,
				Currency: c.currency,
				Comment:  cp.DebitAccount,
			},
			{
				Account:  c.Account(cp.CreditAccount),
				Amount:   cp.Amount.Neg(),
				Currency: c.currency,
				Comment:  cp.CreditAccount,
			},
		},
	}
}

// ConvertAll converts every collective posting, preserving order.
func (c *Converter) ConvertAll(collective []posting.CollectivePosting) []Transaction {
	txns := make([]Transaction, 0, len(collective))
	for _, cp := range collective {
		txns = append(txns, c.ConvertCollective(cp))
	}
	return txns
}

// FormatTransaction formats a Beancount transaction as a string.
func (c *Converter) FormatTransaction(txn Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date)
	sb.WriteString(" *")
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %q", txn.Payee))
	}
	sb.WriteString(fmt.Sprintf(" %q", txn.Narration))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	sb.WriteString("\n")

	keys := make([]string, 0, len(txn.Metadata))
	for k := range txn.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %q\n", k, txn.Metadata[k]))
	}

	// Postings
	for _, p := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(p.Account)

		// Right-align amount (typical Beancount style)
		spaces := max(1, 60-len(p.Account))
		sb.WriteString(strings.Repeat(" ", spaces))
		sb.WriteString(fmt.Sprintf("%s %s", p.Amount.StringFixed(2), p.Currency))

		if p.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", p.Comment))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// Export appends every transaction to its monthly file and returns the number
// written.
func (c *Converter) Export(repo Repository, txns []Transaction, comment string) (int, error) {
	for i, txn := range txns {
		yearMonth := txn.YearMonth()
		if err := repo.AppendTransaction(yearMonth, c.FormatTransaction(txn), comment); err != nil {
			return i, fmt.Errorf("failed to append transaction for %s: %w", yearMonth, err)
		}
	}
	return len(txns), nil
}

func sanitizeAccountName(name string) string {
	// Remove spaces for Beancount account names
	return strings.ReplaceAll(name, " ", "")
}

func buildTags(key posting.TaxKey) []string {
	if !tagPattern.MatchString(string(key)) {
		return nil
	}
	return []string{string(key)}
}
