package gdpdu

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

// Column names of the enforePOS GDPdU export.
const (
	ColReceipt   = "Bon_Nummer"
	ColDate      = "Datum"
	ColTime      = "Uhrzeit"
	ColGross     = "Umsatz Br."
	ColQuantity  = "Anzahl"
	ColProduct   = "Produkt"
	ColUnitPrice = "Einzel VK Br."
	ColTaxRate   = "MwSt-Satz"
	ColTax       = "MwSt"
	ColCategory  = "Dst/Ware"

	// Optional columns of pre-formed ledger rows.
	ColAccount       = "Konto"
	ColVoucher       = "Beleginfo - Inhalt 6"
	ColLinkedReceipt = "Belegfeld 1"
)

// Category flags used in the Dst/Ware column.
const (
	FlagService = "Dienst"
	FlagGoods   = "Ware"
)

// RequiredColumns must all be present in the header.
var RequiredColumns = []string{
	ColReceipt, ColDate, ColTime, ColGross, ColQuantity,
	ColProduct, ColUnitPrice, ColTaxRate, ColTax, ColCategory,
}

// Separator is the field delimiter of both the export and the import files.
const Separator = ';'

// ErrMissingColumns is returned when the header lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// ExcludedRow is a data row whose Dst/Ware flag is neither Dienst nor Ware.
type ExcludedRow struct {
	Row     int
	Flag    string
	Product string
}

// Export is the typed content of one export file.
type Export struct {
	Transactions []posting.RawTransaction

	// SourceRows counts every data row, including excluded ones.
	SourceRows int
	Excluded   []ExcludedRow

	// Receipts holds the Bon_Nummer of every data row, excluded rows included,
	// for the sequence check.
	Receipts []posting.ReceiptRef

	// HasLedgerColumns is set when any optional ledger column was present.
	HasLedgerColumns bool
}

// ReadFile reads an export from disk.
func ReadFile(path string, enc Encoding) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	export, err := Read(f, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return export, nil
}

// Read parses a semicolon-separated export. Columns are located by name, so
// their order and any additional columns do not matter.
func Read(r io.Reader, enc Encoding) (*Export, error) {
	cr := csv.NewReader(enc.NewDecodingReader(r))
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	export := &Export{HasLedgerColumns: cols.hasLedger()}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		export.SourceRows++

		tx, flag, err := cols.transaction(record, line)
		if err != nil {
			return nil, err
		}
		export.Receipts = append(export.Receipts, posting.ReceiptRef{Row: line, Number: tx.ReceiptNumber})
		if !tx.Category.Valid() {
			export.Excluded = append(export.Excluded, ExcludedRow{Row: line, Flag: flag, Product: tx.Product})
			continue
		}
		export.Transactions = append(export.Transactions, tx)
	}

	return export, nil
}

// UnknownFlags returns the distinct unrecognized Dst/Ware values, sorted.
func (e *Export) UnknownFlags() []string {
	seen := make(map[string]bool)
	var flags []string
	for _, ex := range e.Excluded {
		if !seen[ex.Flag] {
			seen[ex.Flag] = true
			flags = append(flags, ex.Flag)
		}
	}
	sort.Strings(flags)
	return flags
}

// Diagnostics reports every excluded row. A common cause is a separator inside
// the Produkt column shifting the remaining fields.
func (e *Export) Diagnostics() posting.Diagnostics {
	var diags posting.Diagnostics
	for _, ex := range e.Excluded {
		diags.Add(posting.DiagUnknownCategory, -1, ex.Row,
			"unknown Dst/Ware flag %q (product %q); row excluded", ex.Flag, ex.Product)
	}
	return diags
}

// CategoryOf maps a Dst/Ware flag to a category. Unknown flags yield "".
func CategoryOf(flag string) posting.Category {
	switch flag {
	case FlagService:
		return posting.CategoryService
	case FlagGoods:
		return posting.CategoryGoods
	}
	return ""
}

// FlagOf is the inverse of CategoryOf.
func FlagOf(c posting.Category) string {
	switch c {
	case posting.CategoryService:
		return FlagService
	case posting.CategoryGoods:
		return FlagGoods
	}
	return string(c)
}

type columns struct {
	index map[string]int
}

func locateColumns(header []string) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return &columns{index: index}, nil
}

func (c *columns) hasLedger() bool {
	for _, name := range []string{ColAccount, ColVoucher, ColLinkedReceipt} {
		if _, ok := c.index[name]; ok {
			return true
		}
	}
	return false
}

func (c *columns) get(record []string, name string) string {
	i, ok := c.index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c *columns) transaction(record []string, line int) (posting.RawTransaction, string, error) {
	flag := c.get(record, ColCategory)
	tx := posting.RawTransaction{
		Row:           line,
		Date:          c.get(record, ColDate),
		Time:          c.get(record, ColTime),
		Product:       c.get(record, ColProduct),
		TaxRate:       c.get(record, ColTaxRate),
		Category:      CategoryOf(flag),
		Account:       c.get(record, ColAccount),
		VoucherID:     c.get(record, ColVoucher),
		LinkedReceipt: c.get(record, ColLinkedReceipt),
	}

	// In the enforePOS layout Bon_Nummer precedes Produkt, so it is intact even
	// when a separator in the product name shifted the later columns.
	var err error
	if tx.ReceiptNumber, err = c.integer(record, ColReceipt, line); err != nil {
		return tx, flag, err
	}

	// Rows that will be excluded are not parsed further.
	if !tx.Category.Valid() {
		return tx, flag, nil
	}

	if tx.Quantity, err = c.integer(record, ColQuantity, line); err != nil {
		return tx, flag, err
	}
	if tx.UnitPrice, err = c.amount(record, ColUnitPrice, line, true); err != nil {
		return tx, flag, err
	}
	if tx.GrossSales, err = c.amount(record, ColGross, line, false); err != nil {
		return tx, flag, err
	}
	if tx.Tax, err = c.amount(record, ColTax, line, false); err != nil {
		return tx, flag, err
	}

	return tx, flag, nil
}

func (c *columns) integer(record []string, name string, line int) (int64, error) {
	v := c.get(record, name)
	if v == "" {
		return 0, fmt.Errorf("row %d: %s: %w", line, name, posting.ErrMissingField)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: %s: %w: %q", line, name, ErrInvalidNumber, v)
	}
	return n, nil
}

func (c *columns) amount(record []string, name string, line int, required bool) (decimal.Decimal, error) {
	v := c.get(record, name)
	if v == "" {
		if required {
			return decimal.Zero, fmt.Errorf("row %d: %s: %w", line, name, posting.ErrMissingField)
		}
		return decimal.Zero, nil
	}
	d, err := ParseDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("row %d: %s: %w", line, name, err)
	}
	return d, nil
}
