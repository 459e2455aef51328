package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/gdpdu"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/posting"
)

// gapsCmd represents the gaps command.
var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Check the receipt number sequence of an export",
	Long: `Check that the receipt numbers of an export are consecutive.

Lines of the same receipt share a number; every other step must be +1.
Missing receipt numbers are listed, a decreasing number is reported as is.

Example:
  gdpdu-postings gaps -f kasse.csv`,
	Run: runGaps,
}

func init() {
	gapsCmd.Flags().StringVarP(&inputFile, "file", "f", "", "GDPdU export file (required)")
	gapsCmd.MarkFlagRequired("file")
}

func runGaps(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	enc, err := gdpdu.ParseEncoding(cfg.GDPdU.Encoding)
	exitOnError(err, "invalid configuration")

	export, err := gdpdu.ReadFile(inputFile, enc)
	exitOnError(err, "failed to read export")

	gaps := posting.DetectGaps(posting.ReceiptNumbers(export.Receipts))
	slog.Info("Sequence checked", "rows", len(export.Receipts), "excluded", len(export.Excluded), "gaps", len(gaps))

	if len(gaps) == 0 {
		fmt.Println("No gaps in the receipt sequence")
		return
	}

	var missing int64
	for _, d := range posting.GapDiagnostics(gaps, export.Receipts) {
		fmt.Printf("row %d: %s\n", d.Row, d.Message)
	}
	for _, g := range gaps {
		missing += g.MissingCount()
	}
	fmt.Printf("\n%d gap(s), %d receipt number(s) missing\n", len(gaps), missing)
}
