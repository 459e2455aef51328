// Package pathutil provides centralized path management for output tables,
// Beancount files and the export journal.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output file qualifiers appended to the input file name.
const (
	QualifierImport       = "_Import"
	QualifierCollective   = "_Sammelbuchungen"
	QualifierTransactions = "_Transaktionen"
	QualifierVouchers     = "_Gutscheine"
)

// OutputPath derives an output file next to the input file.
// Example: kasse.csv, "_All", "_Import" -> kasse_All_Import.csv
func OutputPath(input, heading, qualifier string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + heading + qualifier + ext
}

// PathResolver manages paths for Beancount files and the export journal.
type PathResolver struct {
	beancountRoot string
	databasePath  string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// BeancountRoot is the root directory for all Beancount files (e.g., ~/accounting/beancount)
	BeancountRoot string
	// DatabasePath is the SQLite export journal. Empty disables the journal.
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
func New(config Config) *PathResolver {
	return &PathResolver{
		beancountRoot: config.BeancountRoot,
		databasePath:  config.DatabasePath,
	}
}

// GetBeancountRoot returns the Beancount root directory.
func (p *PathResolver) GetBeancountRoot() string {
	return p.beancountRoot
}

// GetDatabasePath returns the journal path, or "" when the journal is disabled.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetYearDir returns the directory path for a year.
// Example: ~/accounting/beancount/2020
func (p *PathResolver) GetYearDir(year string) string {
	return filepath.Join(p.beancountRoot, year)
}

// GetMonthFilePath returns the file path for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/accounting/beancount/2020/2020-07.beancount
func (p *PathResolver) GetMonthFilePath(yearMonth string) (string, error) {
	parts := strings.Split(yearMonth, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	return filepath.Join(p.GetYearDir(parts[0]), yearMonth+".beancount"), nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
