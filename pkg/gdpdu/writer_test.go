package gdpdu

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

func decodeLatin1(t *testing.T, b []byte) []string {
	t.Helper()
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(s), "\n"), "\n")
}

func TestWriter_WriteCollective(t *testing.T) {
	last := time.Date(2020, 7, 31, 18, 2, 0, 0, time.UTC)
	collective := []posting.CollectivePosting{
		{
			Side:          posting.SideDebit,
			DebitAccount:  "1600",
			CreditAccount: "4400",
			TaxKey:        "USt16",
			Amount:        decimal.RequireFromString("1234.5"),
			Last:          last,
			Text:          "Sammelbuchung_All USt 16%",
		},
		{
			Side:          posting.SideCredit,
			DebitAccount:  "4300",
			CreditAccount: "1600",
			TaxKey:        "USt7",
			Amount:        decimal.RequireFromString("0.125"),
			Last:          last,
			Text:          "Rückgabe",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(EncodingLatin1).WriteCollective(&buf, collective))

	lines := decodeLatin1(t, buf.Bytes())
	assert.Equal(t, []string{
		"Konto;Gegenkonto;St-SL;Betrag;Datum;Text",
		"1600;4400;USt16;1234,50;31.07.2020;Sammelbuchung_All USt 16%",
		"4300;1600;USt7;0,13;31.07.2020;Rückgabe",
	}, lines)

	// The umlaut is a single latin-1 byte.
	assert.Contains(t, buf.String(), "R\xfcckgabe")
}

func TestWriter_WritePostings(t *testing.T) {
	p := posting.NormalizedPosting{
		Source: posting.RawTransaction{
			ReceiptNumber: 1002,
			Date:          "02.03.2020",
			Time:          "09:20:41",
			GrossSales:    decimal.RequireFromString("-1.1"),
			Quantity:      -1,
			Product:       "Pfand; Flasche",
			UnitPrice:     decimal.RequireFromString("1.1"),
			TaxRate:       "19",
			Tax:           decimal.RequireFromString("-0.18"),
			Category:      posting.CategoryGoods,
			VoucherID:     "G-1",
		},
		Side:          posting.SideCredit,
		Amount:        decimal.RequireFromString("1.1"),
		DebitAccount:  "4400",
		CreditAccount: "1600",
		TaxKey:        "USt19",
		Timestamp:     time.Date(2020, 3, 2, 9, 20, 41, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(EncodingUTF8).WritePostings(&buf, []posting.NormalizedPosting{p}, false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Bon_Nummer;Datum;Uhrzeit;Umsatz Br.;Anzahl;Produkt;Einzel VK Br.;MwSt-Satz;MwSt;Dst/Ware;"+
		"Soll/Haben;Umsatz;Konto;Gegenkonto;St-SL;DateTime;ChangeLog", lines[0])
	assert.Equal(t, `1002;02.03.2020;09:20:41;-1,10;-1;"Pfand; Flasche";1,10;19;-0,18;Ware;`+
		"H;1,10;4400;1600;USt19;2020-03-02 09:20:41;", lines[1])

	buf.Reset()
	require.NoError(t, NewWriter(EncodingUTF8).WritePostings(&buf, []posting.NormalizedPosting{p}, true))
	lines = strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.True(t, strings.HasSuffix(lines[0], ";Beleginfo - Inhalt 6;Belegfeld 1"))
	assert.True(t, strings.HasSuffix(lines[1], ";G-1;"))
}

func TestWriter_WriteVouchers(t *testing.T) {
	events := []posting.VoucherEvent{{
		Kind:     posting.VoucherRedemption,
		Date:     "05.12.2020",
		Time:     "12:00:00",
		Amount:   decimal.RequireFromString("-25"),
		Receipt:  4711,
		Quantity: 1,
		Product:  "Gutschein",
	}}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(EncodingLatin1).WriteVouchers(&buf, events))

	lines := decodeLatin1(t, buf.Bytes())
	assert.Equal(t, []string{
		"Typ;Datum;Uhrzeit;Betrag;Bon_Nummer;Beleginfo - Inhalt 6;Anzahl;Produkt;Belegfeld 1",
		"redemption;05.12.2020;12:00:00;-25,00;4711;;1;Gutschein;",
	}, lines)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewWriter(EncodingLatin1)

	err := WriteFile(path, func(out io.Writer) error {
		return w.WriteCollective(out, nil)
	})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Konto;Gegenkonto;St-SL;Betrag;Datum;Text\n", string(b))

	err = WriteFile(filepath.Join(t.TempDir(), "missing", "out.csv"), func(io.Writer) error { return nil })
	assert.Error(t, err)
}
