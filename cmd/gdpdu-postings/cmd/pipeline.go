package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	_ "time/tzdata" // GDPDU_TIMEZONE must resolve without a system zone database

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/db"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/gdpdu"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/mapping"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/pathutil"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

// conversionOptions selects the input and how it is processed.
type conversionOptions struct {
	File          string
	MappingFile   string
	Encoding      gdpdu.Encoding
	Location      *time.Location
	From, To      string
	VoucherFilter string
}

// optionsFromConfig fills encoding, time zone and mapping file from the
// environment. Values already set on opts win.
func optionsFromConfig(cfg *config.Config, opts conversionOptions) (conversionOptions, error) {
	if opts.Encoding == "" {
		enc, err := gdpdu.ParseEncoding(cfg.GDPdU.Encoding)
		if err != nil {
			return opts, err
		}
		opts.Encoding = enc
	}
	if opts.Location == nil {
		loc, err := time.LoadLocation(cfg.GDPdU.Location)
		if err != nil {
			return opts, fmt.Errorf("invalid time zone %q: %w", cfg.GDPdU.Location, err)
		}
		opts.Location = loc
	}
	if opts.MappingFile == "" {
		opts.MappingFile = cfg.GDPdU.MappingFile
	}
	return opts, nil
}

// conversion is one engine run over an export file.
type conversion struct {
	Mapper *mapping.Mapper
	Export *gdpdu.Export
	Result *posting.Result

	// Diagnostics holds the reader's diagnostics followed by the engine's.
	Diagnostics posting.Diagnostics
}

func loadMapper(path string) (*mapping.Mapper, error) {
	if path == "" {
		slog.Debug("Using built-in mapping")
		return mapping.Default()
	}
	slog.Debug("Loading mapping", "path", path)
	return mapping.NewMapper(path)
}

func runConversion(opts conversionOptions) (*conversion, error) {
	mapper, err := loadMapper(opts.MappingFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}

	engineCfg, err := mapper.EngineConfig(opts.Location)
	if err != nil {
		return nil, err
	}
	engine, err := posting.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}

	var period *posting.Period
	if opts.From != "" || opts.To != "" {
		if opts.From == "" || opts.To == "" {
			return nil, fmt.Errorf("%w: both --from and --to are required", posting.ErrInvalidPeriod)
		}
		p, err := posting.ParsePeriod(opts.From, opts.To, engine.Location())
		if err != nil {
			return nil, err
		}
		period = &p
	}

	slog.Info("Reading export", "file", opts.File, "encoding", opts.Encoding)
	export, err := gdpdu.ReadFile(opts.File, opts.Encoding)
	if err != nil {
		return nil, err
	}
	slog.Debug("Export read", "rows", export.SourceRows, "excluded", len(export.Excluded))

	result, err := engine.Run(posting.Input{
		Transactions:  export.Transactions,
		SourceRows:    export.SourceRows,
		Receipts:      export.Receipts,
		Period:        period,
		VoucherFilter: opts.VoucherFilter,
	})
	if err != nil {
		var recErr *posting.RecordError
		if errors.As(err, &recErr) {
			slog.Error("Record rejected", "row", recErr.Row, "field", recErr.Field, "error", recErr.Err)
		}
		return nil, err
	}

	diags := export.Diagnostics()
	diags = append(diags, result.Diagnostics...)

	return &conversion{
		Mapper:      mapper,
		Export:      export,
		Result:      result,
		Diagnostics: diags,
	}, nil
}

// logDiagnostics reports every diagnostic as a warning.
func (c *conversion) logDiagnostics() {
	for _, d := range c.Diagnostics {
		if d.Index < 0 {
			slog.Warn(d.Message, "kind", d.Kind, "row", d.Row)
			continue
		}
		slog.Warn(d.Message, "kind", d.Kind, "row", d.Row, "record", d.Index)
	}
}

// writeOutputs writes the output tables next to the input file. The
// transaction table is only written when verbose is set.
func (c *conversion) writeOutputs(input string, enc gdpdu.Encoding, verbose bool) ([]db.File, error) {
	w := gdpdu.NewWriter(enc)
	r := c.Result
	var files []db.File

	write := func(kind db.FileKind, qualifier string, rows int, fn func(io.Writer) error) error {
		path := pathutil.OutputPath(input, r.Heading, qualifier)
		if err := gdpdu.WriteFile(path, fn); err != nil {
			return err
		}
		slog.Info("Wrote file", "path", path, "rows", rows)
		files = append(files, db.File{Kind: kind, Path: path, Rows: rows})
		return nil
	}

	withLedger := c.Export.HasLedgerColumns
	if err := write(db.FileImport, pathutil.QualifierImport, len(r.Selected), func(out io.Writer) error {
		return w.WritePostings(out, r.Selected, withLedger)
	}); err != nil {
		return files, err
	}

	if err := write(db.FileCollective, pathutil.QualifierCollective, len(r.Collective), func(out io.Writer) error {
		return w.WriteCollective(out, r.Collective)
	}); err != nil {
		return files, err
	}

	if verbose {
		members := posting.MemberPostings(r.Collective, r.Postings)
		if err := write(db.FileTransactions, pathutil.QualifierTransactions, len(members), func(out io.Writer) error {
			return w.WritePostings(out, members, withLedger)
		}); err != nil {
			return files, err
		}
	}

	if len(r.Vouchers) > 0 {
		if err := write(db.FileVouchers, pathutil.QualifierVouchers, len(r.Vouchers), func(out io.Writer) error {
			return w.WriteVouchers(out, r.Vouchers)
		}); err != nil {
			return files, err
		}
	}

	return files, nil
}
