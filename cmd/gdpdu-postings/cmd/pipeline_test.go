package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/beancount"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/db"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/gdpdu"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/pathutil"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

const testExport = `Bon_Nummer;Datum;Uhrzeit;Umsatz Br.;Anzahl;Produkt;Einzel VK Br.;MwSt-Satz;MwSt;Dst/Ware
1;30.06.2020;09:00:00;10,00;1;Brot;10,00;7;0,65;Ware
1;30.06.2020;09:00:00;20,00;2;Kaffee;10,00;19;3,19;Ware
2;01.07.2020;10:00:00;-5,00;-1;Kaffee;5,00;19;-0,80;Ware
5;01.07.2020;11:00:00;30,00;1;Kurs;30,00;19;4,79;Dienst
`

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kasse.csv")
	require.NoError(t, os.WriteFile(path, []byte(testExport), 0644))
	return path
}

func testOptions(file string) conversionOptions {
	return conversionOptions{
		File:     file,
		Encoding: gdpdu.EncodingUTF8,
		Location: time.UTC,
	}
}

func TestRunConversion(t *testing.T) {
	conv, err := runConversion(testOptions(writeExport(t)))
	require.NoError(t, err)

	r := conv.Result
	assert.Equal(t, posting.HeadingAll, r.Heading)
	require.Len(t, r.Postings, 4)
	require.Len(t, r.Collective, 4)

	assert.Equal(t, posting.TaxKey("USt7"), r.Collective[0].TaxKey)
	assert.Empty(t, r.Collective[0].Override)

	// The 4400 rule window starts 2020-07-01; the June bucket keeps its key.
	assert.Equal(t, posting.TaxKey("USt19"), r.Collective[1].TaxKey)

	assert.Equal(t, posting.SideCredit, r.Collective[2].Side)
	assert.Equal(t, posting.TaxKey("USt16"), r.Collective[2].TaxKey)
	assert.Equal(t, "Sammelbuchung_All USt 16%", r.Collective[2].Text)
	assert.Equal(t, "4401", r.Collective[3].CreditAccount)
	assert.Equal(t, posting.TaxKey("USt16"), r.Collective[3].TaxKey)

	require.Len(t, r.Gaps, 1)
	assert.Equal(t, []int64{3, 4}, r.Gaps[0].Missing())
	assert.Equal(t, 1, conv.Diagnostics.Count(posting.DiagSequenceGap))

	run := newRun(conv, "kasse.csv")
	assert.Equal(t, "60", run.DebitTotal.String())
	assert.Equal(t, "5", run.CreditTotal.String())
	assert.Equal(t, 4, run.SourceRows)
	assert.NotEmpty(t, run.ID)
}

func TestRunConversion_Period(t *testing.T) {
	opts := testOptions(writeExport(t))
	opts.From, opts.To = "2020-07-01", "2020-07-31"

	conv, err := runConversion(opts)
	require.NoError(t, err)
	assert.Equal(t, "_vom_2020-07-01_bis_2020-07-31", conv.Result.Heading)
	assert.Len(t, conv.Result.Postings, 4)
	assert.Len(t, conv.Result.Selected, 2)
	assert.Len(t, conv.Result.Gaps, 1)

	opts.To = ""
	_, err = runConversion(opts)
	assert.ErrorIs(t, err, posting.ErrInvalidPeriod)
}

func TestRunConversion_Errors(t *testing.T) {
	opts := testOptions(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := runConversion(opts)
	assert.Error(t, err)

	opts = testOptions(writeExport(t))
	opts.MappingFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = runConversion(opts)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(
		"Bon_Nummer;Datum;Uhrzeit;Umsatz Br.;Anzahl;Produkt;Einzel VK Br.;MwSt-Satz;MwSt;Dst/Ware\n"+
			"1;2020-06-30;09:00:00;1,00;1;X;1,00;19;0,16;Ware\n"), 0644))
	_, err = runConversion(testOptions(bad))
	require.ErrorIs(t, err, posting.ErrInvalidTimestamp)

	var recErr *posting.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, 2, recErr.Row)
}

func TestConversion_WriteOutputs(t *testing.T) {
	input := writeExport(t)
	conv, err := runConversion(testOptions(input))
	require.NoError(t, err)

	files, err := conv.writeOutputs(input, gdpdu.EncodingLatin1, true)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, db.FileImport, files[0].Kind)
	assert.Equal(t, 4, files[0].Rows)
	assert.Equal(t, pathutil.OutputPath(input, "_All", pathutil.QualifierCollective), files[1].Path)
	assert.Equal(t, db.FileTransactions, files[2].Kind)

	for _, f := range files {
		_, err := os.Stat(f.Path)
		assert.NoError(t, err, f.Path)
	}

	collective, err := os.ReadFile(files[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(collective), "1600;4401;USt16;30,00;01.07.2020;Sammelbuchung_All USt 16%\n")
}

func TestSummary(t *testing.T) {
	conv, err := runConversion(testOptions(writeExport(t)))
	require.NoError(t, err)

	s := summarize(conv)
	assert.Equal(t, 3, s.DebitCount)
	assert.Equal(t, 1, s.CreditCount)
	assert.Equal(t, []string{"4300", "4400", "4401"}, s.Counter)
	assert.Equal(t, []posting.TaxKey{"USt16", "USt19", "USt7"}, s.TaxKeys)
	assert.Equal(t, 2, s.Overridden)

	var out bytes.Buffer
	s.print(&out, conv.Mapper.GetTaxKeyDescription)
	assert.Contains(t, out.String(), "=== Summary _All ===")
	assert.Contains(t, out.String(), "Umsatzsteuer 16%")
	assert.Contains(t, out.String(), "2 receipt(s) missing between 2 and 5: 3, 4")
}

func TestExportBeancount(t *testing.T) {
	conv, err := runConversion(testOptions(writeExport(t)))
	require.NoError(t, err)

	resolver := pathutil.New(pathutil.Config{BeancountRoot: t.TempDir()})
	cvtr := beancount.NewConverter(conv.Mapper, conv.Mapper.Currency())

	files, err := exportBeancount(resolver, cvtr, conv.Result, "/data/kasse.csv")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 2, files[0].Rows)
	assert.Equal(t, 2, files[1].Rows)

	content, err := beancount.NewFileSystemRepository(resolver).ReadMonthFile("2020-07")
	require.NoError(t, err)
	assert.Contains(t, content, "; kasse.csv_All\n")
	assert.Contains(t, content, "Income:Sales:Services:Standard")
}

func TestRecordRun(t *testing.T) {
	conv, err := runConversion(testOptions(writeExport(t)))
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "export.db")
	files := []db.File{{Kind: db.FileImport, Path: "kasse_All_Import.csv", Rows: 4}}

	id, err := recordRun(dbPath, conv, "kasse.csv", files)
	require.NoError(t, err)

	journal, err := db.OpenJournal(dbPath)
	require.NoError(t, err)
	defer journal.Close()

	run, err := journal.GetRun(id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 4, run.Collective)
	assert.Equal(t, "kasse.csv", run.InputFile)

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, journal, 5))
	assert.Contains(t, out.String(), "Total runs:              1\n")
	assert.Contains(t, out.String(), "Last input:              kasse.csv\n")
	assert.Contains(t, out.String(), "kasse_All_Import.csv (4 rows)")
}

func TestWriteStats(t *testing.T) {
	journal, err := db.OpenJournal(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer journal.Close()

	var empty bytes.Buffer
	require.NoError(t, writeStats(&empty, journal, 5))
	assert.Contains(t, empty.String(), "Last run:                (never)")
	assert.NotContains(t, empty.String(), "Last input:")
	assert.NotContains(t, empty.String(), "Recent runs:")

	conv, err := runConversion(testOptions(writeExport(t)))
	require.NoError(t, err)
	require.NoError(t, journal.RecordRun(newRun(conv, "first.csv"), []db.File{
		{Kind: db.FileCollective, Path: "first_All_Sammelbuchungen.csv", Rows: 4},
		{Kind: db.FileBeancount, Path: "2020/2020-07.beancount", Rows: 2},
	}))
	require.NoError(t, journal.SetMetadata(lastInputKey, "first.csv"))

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, journal, 5))
	text := out.String()
	assert.Contains(t, text, "Total files:             2\n")
	assert.Contains(t, text, "Last input:              first.csv\n")
	assert.Contains(t, text, "Recent runs:")
	assert.Contains(t, text, "first_All_Sammelbuchungen.csv (4 rows)")
	assert.Contains(t, text, "2020/2020-07.beancount (2 rows)")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{GDPdU: config.GDPdUConfig{
		MappingFile: "mapping.yaml",
		Encoding:    "utf8",
		Location:    "Europe/Berlin",
	}}

	opts, err := optionsFromConfig(cfg, conversionOptions{File: "kasse.csv"})
	require.NoError(t, err)
	assert.Equal(t, gdpdu.EncodingUTF8, opts.Encoding)
	assert.Equal(t, "Europe/Berlin", opts.Location.String())
	assert.Equal(t, "mapping.yaml", opts.MappingFile)

	opts, err = optionsFromConfig(cfg, conversionOptions{MappingFile: "other.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "other.yaml", opts.MappingFile)

	cfg.GDPdU.Location = "Mars/Olympus"
	_, err = optionsFromConfig(cfg, conversionOptions{})
	assert.Error(t, err)
}

func TestUnmappedAccounts(t *testing.T) {
	accounts := map[string]string{
		"1600": "Assets:Current:Cash:Register",
		"4400": "Income:Sales:Goods:Standard",
	}

	tests := []struct {
		name       string
		collective []posting.CollectivePosting
		want       []string
	}{
		{name: "none", want: nil},
		{
			name:       "all mapped",
			collective: []posting.CollectivePosting{{DebitAccount: "1600", CreditAccount: "4400"}},
			want:       nil,
		},
		{
			name: "unmapped once and sorted",
			collective: []posting.CollectivePosting{
				{DebitAccount: "1600", CreditAccount: "8400"},
				{DebitAccount: "1600", CreditAccount: "0000"},
				{DebitAccount: "8400", CreditAccount: "1600"},
			},
			want: []string{"0000", "8400"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unmappedAccounts(accounts, tt.collective))
		})
	}
}

func TestUnmappedAccounts_DefaultMapping(t *testing.T) {
	conv, err := runConversion(testOptions(writeExport(t)))
	require.NoError(t, err)

	assert.Empty(t, unmappedAccounts(conv.Mapper.GetAllBeancountAccounts(), conv.Result.Collective))
}
