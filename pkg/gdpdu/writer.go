package gdpdu

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

// Output column names added by the engine.
const (
	ColSide          = "Soll/Haben"
	ColAmount        = "Umsatz"
	ColDebitAccount  = "Konto"
	ColCreditAccount = "Gegenkonto"
	ColTaxKey        = "St-SL"
	ColTimestamp     = "DateTime"
	ColChangeLog     = "ChangeLog"
	ColTotal         = "Betrag"
	ColText          = "Text"
	ColVoucherKind   = "Typ"
)

// Layouts used in the written tables.
const (
	DateLayout      = "02.01.2006"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Writer writes the engine's output tables.
type Writer struct {
	enc Encoding
}

// NewWriter creates a Writer for the given encoding.
func NewWriter(enc Encoding) *Writer {
	return &Writer{enc: enc}
}

// WriteFile creates path and writes one table into it.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// WritePostings writes the transaction-level table: the export columns followed
// by the columns the normalizer derived. Ledger columns are appended when
// withLedger is set.
func (w *Writer) WritePostings(out io.Writer, postings []posting.NormalizedPosting, withLedger bool) error {
	header := append([]string{}, RequiredColumns...)
	header = append(header, ColSide, ColAmount, ColDebitAccount, ColCreditAccount, ColTaxKey, ColTimestamp, ColChangeLog)
	if withLedger {
		header = append(header, ColVoucher, ColLinkedReceipt)
	}

	return w.write(out, header, len(postings), func(i int) []string {
		p := postings[i]
		s := p.Source
		row := []string{
			strconv.FormatInt(s.ReceiptNumber, 10),
			s.Date,
			s.Time,
			FormatDecimal(s.GrossSales),
			strconv.FormatInt(s.Quantity, 10),
			s.Product,
			FormatDecimal(s.UnitPrice),
			s.TaxRate,
			FormatDecimal(s.Tax),
			FlagOf(s.Category),
			string(p.Side),
			FormatDecimal(p.Amount),
			p.DebitAccount,
			p.CreditAccount,
			string(p.TaxKey),
			p.Timestamp.Format(TimestampLayout),
			p.Annotation,
		}
		if withLedger {
			row = append(row, s.VoucherID, s.LinkedReceipt)
		}
		return row
	})
}

// WriteCollective writes the collective postings for ledger import. Datum is
// the latest member timestamp.
func (w *Writer) WriteCollective(out io.Writer, collective []posting.CollectivePosting) error {
	header := []string{ColDebitAccount, ColCreditAccount, ColTaxKey, ColTotal, ColDate, ColText}

	return w.write(out, header, len(collective), func(i int) []string {
		c := collective[i]
		return []string{
			c.DebitAccount,
			c.CreditAccount,
			string(c.TaxKey),
			FormatDecimal(c.Amount),
			c.Last.Format(DateLayout),
			c.Text,
		}
	})
}

// WriteVouchers writes the chronological voucher ledger.
func (w *Writer) WriteVouchers(out io.Writer, events []posting.VoucherEvent) error {
	header := []string{ColVoucherKind, ColDate, ColTime, ColTotal, ColReceipt, ColVoucher, ColQuantity, ColProduct, ColLinkedReceipt}

	return w.write(out, header, len(events), func(i int) []string {
		ev := events[i]
		return []string{
			string(ev.Kind),
			ev.Date,
			ev.Time,
			FormatDecimal(ev.Amount),
			strconv.FormatInt(ev.Receipt, 10),
			ev.VoucherID,
			strconv.FormatInt(ev.Quantity, 10),
			ev.Product,
			ev.LinkedReceipt,
		}
	})
}

func (w *Writer) write(out io.Writer, header []string, n int, row func(int) []string) error {
	encoded := w.enc.NewEncodingWriter(out)

	cw := csv.NewWriter(encoded)
	cw.Comma = Separator

	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return encoded.Close()
}
