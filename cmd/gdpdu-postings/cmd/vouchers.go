package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/gdpdu"
)

// vouchersCmd represents the vouchers command.
var vouchersCmd = &cobra.Command{
	Use:   "vouchers",
	Short: "List voucher issues and redemptions",
	Long: `List the postings on the voucher accounts in chronological order.

Issues are postings on one of the configured issue accounts, redemptions
postings on the redemption account. The table is written to stdout.

Example:
  gdpdu-postings vouchers -f kasse.csv
  gdpdu-postings vouchers -f kasse.csv --voucher all
  gdpdu-postings vouchers -f kasse.csv --voucher G-0815`,
	Run: runVouchers,
}

func init() {
	vouchersCmd.Flags().StringVarP(&inputFile, "file", "f", "", "GDPdU export file (required)")
	vouchersCmd.Flags().StringVar(&mappingFile, "mapping", "", "mapping YAML (default: GDPDU_MAPPING_FILE or built-in)")
	vouchersCmd.Flags().StringVar(&dateFrom, "from", "", "period start (YYYY-MM-DD), exclusive")
	vouchersCmd.Flags().StringVar(&dateTo, "to", "", "period end (YYYY-MM-DD), inclusive")
	vouchersCmd.Flags().StringVar(&voucherFilter, "voucher", "", `voucher filter: "all" or a voucher id`)
	vouchersCmd.MarkFlagRequired("file")
}

func runVouchers(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

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

	if len(conv.Result.Vouchers) == 0 {
		fmt.Println("No voucher postings found")
		return
	}

	err = gdpdu.NewWriter(gdpdu.EncodingUTF8).WriteVouchers(os.Stdout, conv.Result.Vouchers)
	exitOnError(err, "failed to write voucher ledger")
}
