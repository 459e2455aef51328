// Package cmd provides CLI commands for gdpdu-postings.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/config"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gdpdu-postings",
	Short: "Convert GDPdU cash register exports into ledger postings",
	Long: `gdpdu-postings reads the receipt lines of an enforePOS GDPdU export and
turns them into double-entry postings and collective postings ready for
import into a ledger.

It supports:
- Tax key and counter-account classification (SKR03 tables built in)
- Collective postings per account pair and tax key
- Receipt sequence gap detection
- Voucher issue/redemption tracking
- Beancount export and an optional SQLite export journal

Example:
  gdpdu-postings convert -f kasse.csv
  gdpdu-postings convert -f kasse.csv --from 2020-07-01 --to 2020-07-31 --verbose
  gdpdu-postings gaps -f kasse.csv
  gdpdu-postings stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel(debug, cfgFile),
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(vouchersCmd)
	rootCmd.AddCommand(statsCmd)
}

// logLevel selects debug logging when --debug is set or the configuration
// has DEBUG=true. A configuration that fails to load is reported by the
// subcommand itself.
func logLevel(debugFlag bool, envPath string) slog.Level {
	if debugFlag {
		return slog.LevelDebug
	}
	if cfg, err := config.Load(envPath); err == nil && cfg.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
