package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/beancount"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/db"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/gdpdu"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/pathutil"
)

var (
	statsLimit int
	statsYear  string
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display export journal statistics",
	Long: `Display statistics from the export journal (EXPORT_DB_PATH).

Shows:
- Total number of recorded runs, postings and collective postings
- Total number of written files
- The most recent runs
- With --year, the Beancount month files of that year

Example:
  gdpdu-postings stats
  gdpdu-postings stats --limit 10 --year 2020`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 5, "number of recent runs to list")
	statsCmd.Flags().StringVar(&statsYear, "year", "", "list the Beancount month files of a year (YYYY)")
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"export", "dbPath"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	pathResolver := pathutil.New(pathutil.Config{
		BeancountRoot: cfg.Beancount.Root,
		DatabasePath:  cfg.Export.DBPath,
	})

	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	journal, err := db.OpenJournal(dbPath)
	exitOnError(err, "failed to open database")
	defer journal.Close()

	exitOnError(writeStats(os.Stdout, journal, statsLimit), "failed to read journal")

	if statsYear != "" {
		repo := beancount.NewFileSystemRepository(pathResolver)
		months, err := repo.GetMonthFilesInYear(statsYear)
		exitOnError(err, "failed to list Beancount files")
		fmt.Printf("\nBeancount files %s:      %v\n", statsYear, months)
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}

// writeStats prints the journal totals and the most recent runs with the
// files each of them wrote.
func writeStats(out io.Writer, journal *db.Journal, limit int) error {
	stats, err := journal.GetStats()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Export Statistics ===")
	fmt.Fprintf(out, "Total runs:              %d\n", stats.TotalRuns)
	fmt.Fprintf(out, "Total postings:          %d\n", stats.TotalPostings)
	fmt.Fprintf(out, "Total collective:        %d\n", stats.TotalCollective)
	fmt.Fprintf(out, "Total files:             %d\n", stats.TotalFiles)
	fmt.Fprintf(out, "Total diagnostics:       %d\n", stats.TotalDiagnostics)

	if stats.LastRun.Valid {
		fmt.Fprintf(out, "Last run:                %s\n", stats.LastRun.String)
	} else {
		fmt.Fprintf(out, "Last run:                (never)\n")
	}

	lastInput, err := journal.GetMetadata(lastInputKey)
	if err != nil {
		return err
	}
	if lastInput != "" {
		fmt.Fprintf(out, "Last input:              %s\n", lastInput)
	}

	runs, err := journal.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nRecent runs:")
	for _, r := range runs {
		fmt.Fprintf(out, "  %s  %s%s  %d postings, %d collective, S %s, H %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.InputFile, r.Heading,
			r.Postings, r.Collective, gdpdu.FormatDecimal(r.DebitTotal), gdpdu.FormatDecimal(r.CreditTotal))

		files, err := journal.GetFiles(r.ID)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(out, "    %-12s %s (%d rows)\n", f.Kind, f.Path, f.Rows)
		}
	}
	return nil
}
