package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/beancount"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/db"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/pathutil"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

var (
	inputFile     string
	mappingFile   string
	dateFrom      string
	dateTo        string
	voucherFilter string
	verbose       bool
	toBeancount   bool
	dryRun        bool
)

// convertCmd represents the convert command.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert an export into postings and collective postings",
	Long: `Convert the receipt lines of a GDPdU export into ledger postings.

This command:
1. Reads the export and classifies every line by tax key and counter account
2. Checks the receipt number sequence for gaps
3. Sums the postings of the period into collective postings
4. Writes <file><period>_Import and <file><period>_Sammelbuchungen next to the input
5. Optionally appends the collective postings to monthly Beancount files
6. Records the run in the export journal when EXPORT_DB_PATH is set

Example:
  gdpdu-postings convert -f kasse.csv
  gdpdu-postings convert -f kasse.csv --from 2020-07-01 --to 2020-07-31 --verbose
  gdpdu-postings convert -f kasse.csv --beancount --dry-run`,
	Run: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&inputFile, "file", "f", "", "GDPdU export file (required)")
	convertCmd.Flags().StringVar(&mappingFile, "mapping", "", "mapping YAML (default: GDPDU_MAPPING_FILE or built-in)")
	convertCmd.Flags().StringVar(&dateFrom, "from", "", "period start (YYYY-MM-DD), exclusive")
	convertCmd.Flags().StringVar(&dateTo, "to", "", "period end (YYYY-MM-DD), inclusive")
	convertCmd.Flags().StringVar(&voucherFilter, "voucher", "", `voucher filter: "all" or a voucher id`)
	convertCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also write the contributing transactions")
	convertCmd.Flags().BoolVar(&toBeancount, "beancount", false, "append collective postings to Beancount files")
	convertCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no file writes)")

	convertCmd.MarkFlagRequired("file")
}

func runConvert(cmd *cobra.Command, args []string) {
	slog.Info("Starting conversion", "file", inputFile, "from", dateFrom, "to", dateTo, "dry_run", dryRun)

	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if toBeancount {
		if err := cfg.Validate([]string{"beancount", "root"}); err != nil {
			exitOnError(err, "invalid configuration")
		}
	}

	opts, err := optionsFromConfig(cfg, conversionOptions{
		File:          inputFile,
		MappingFile:   mappingFile,
		From:          dateFrom,
		To:            dateTo,
		VoucherFilter: voucherFilter,
	})
	exitOnError(err, "invalid configuration")

	conv, err := runConversion(opts)
	exitOnError(err, "conversion failed")
	conv.logDiagnostics()

	summarize(conv).print(os.Stdout, conv.Mapper.GetTaxKeyDescription)

	pathResolver := pathutil.New(pathutil.Config{
		BeancountRoot: cfg.Beancount.Root,
		DatabasePath:  cfg.Export.DBPath,
	})

	if dryRun {
		fmt.Printf("[DRY RUN] Would write %s and %s\n",
			pathutil.OutputPath(inputFile, conv.Result.Heading, pathutil.QualifierImport),
			pathutil.OutputPath(inputFile, conv.Result.Heading, pathutil.QualifierCollective))
	}

	var files []db.File
	if !dryRun {
		files, err = conv.writeOutputs(inputFile, opts.Encoding, verbose)
		exitOnError(err, "failed to write output")
	}

	if toBeancount {
		currency := cfg.Beancount.Currency
		if currency == "" {
			currency = conv.Mapper.Currency()
		}
		if missing := unmappedAccounts(conv.Mapper.GetAllBeancountAccounts(), conv.Result.Collective); len(missing) > 0 {
			slog.Warn("Accounts without Beancount mapping", "accounts", missing, "prefix", beancount.UnmappedPrefix)
		}
		written, err := exportBeancount(pathResolver, beancount.NewConverter(conv.Mapper, currency), conv.Result, inputFile)
		exitOnError(err, "failed to export to Beancount")
		files = append(files, written...)
	}

	if !dryRun && pathResolver.GetDatabasePath() != "" {
		runID, err := recordRun(pathResolver.GetDatabasePath(), conv, inputFile, files)
		exitOnError(err, "failed to record run")
		slog.Info("Run recorded", "id", runID)
	}

	slog.Info("Conversion completed",
		"postings", len(conv.Result.Postings),
		"collective", len(conv.Result.Collective),
		"files_written", len(files),
		"diagnostics", len(conv.Diagnostics),
	)
}

// exportBeancount appends the collective postings to the monthly files, or
// prints them in dry-run mode.
func exportBeancount(pathResolver *pathutil.PathResolver, cvtr *beancount.Converter, result *posting.Result, input string) ([]db.File, error) {
	txns := cvtr.ConvertAll(result.Collective)

	if dryRun {
		for _, txn := range txns {
			path, err := pathResolver.GetMonthFilePath(txn.YearMonth())
			if err != nil {
				return nil, err
			}
			fmt.Printf("[DRY RUN] Would append to %s\n", path)
			fmt.Println(cvtr.FormatTransaction(txn))
		}
		return nil, nil
	}

	repo := beancount.NewFileSystemRepository(pathResolver)
	if _, err := cvtr.Export(repo, txns, filepath.Base(input)+result.Heading); err != nil {
		return nil, err
	}

	rows := make(map[string]int)
	var files []db.File
	for _, txn := range txns {
		path, err := pathResolver.GetMonthFilePath(txn.YearMonth())
		if err != nil {
			return nil, err
		}
		if _, seen := rows[path]; !seen {
			files = append(files, db.File{Kind: db.FileBeancount, Path: path})
		}
		rows[path]++
	}
	for i := range files {
		files[i].Rows = rows[files[i].Path]
		slog.Info("Updated file", "path", files[i].Path, "transactions", files[i].Rows)
	}

	return files, nil
}

// unmappedAccounts returns the sorted account numbers of the collective
// postings that have no Beancount account configured.
func unmappedAccounts(accounts map[string]string, collective []posting.CollectivePosting) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, cp := range collective {
		for _, number := range []string{cp.DebitAccount, cp.CreditAccount} {
			if _, ok := accounts[number]; ok || seen[number] {
				continue
			}
			seen[number] = true
			missing = append(missing, number)
		}
	}
	sort.Strings(missing)
	return missing
}

// lastInputKey is the journal metadata key holding the most recent input file.
const lastInputKey = "last_input"

// recordRun writes the run summary to the export journal.
func recordRun(dbPath string, conv *conversion, input string, files []db.File) (string, error) {
	slog.Debug("Opening database", "path", dbPath)
	journal, err := db.OpenJournal(dbPath)
	if err != nil {
		return "", err
	}
	defer journal.Close()

	run := newRun(conv, input)
	if err := journal.RecordRun(run, files); err != nil {
		return "", err
	}
	if err := journal.SetMetadata(lastInputKey, input); err != nil {
		return "", err
	}
	return run.ID, nil
}

func newRun(conv *conversion, input string) db.Run {
	r := conv.Result
	run := db.Run{
		ID:          uuid.NewString(),
		InputFile:   input,
		Heading:     r.Heading,
		SourceRows:  conv.Export.SourceRows,
		Postings:    len(r.Postings),
		Selected:    len(r.Selected),
		Collective:  len(r.Collective),
		Vouchers:    len(r.Vouchers),
		Gaps:        len(r.Gaps),
		Diagnostics: len(conv.Diagnostics),
	}
	for _, t := range posting.Totals(r.Collective) {
		if t.Side == posting.SideCredit {
			run.CreditTotal = run.CreditTotal.Add(t.Amount)
		} else {
			run.DebitTotal = run.DebitTotal.Add(t.Amount)
		}
	}
	return run
}
