package beancount

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/gdpdu-postings/pkg/pathutil"
)

// Repository defines the interface for Beancount file operations.
type Repository interface {
	// AppendTransaction appends a transaction to a monthly file
	AppendTransaction(yearMonth, transaction string, comment ...string) error

	// ReadMonthFile reads the content of a monthly file
	ReadMonthFile(yearMonth string) (string, error)

	// MonthFileExists checks if a monthly file exists
	MonthFileExists(yearMonth string) bool

	// GetMonthFilesInYear gets all monthly files in a year
	GetMonthFilesInYear(year string) ([]string, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
	now          func() time.Time
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
		now:          time.Now,
	}
}

// AppendTransaction appends a transaction to a monthly file.
// It creates the file if it doesn't exist.
func (r *FileSystemRepository) AppendTransaction(yearMonth, transaction string, comment ...string) error {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return fmt.Errorf("failed to get month file path: %w", err)
	}

	if err := r.ensureMonthFile(filePath, yearMonth); err != nil {
		return fmt.Errorf("failed to ensure month file: %w", err)
	}

	var sb strings.Builder
	if len(comment) > 0 && comment[0] != "" {
		sb.WriteString(fmt.Sprintf("; %s\n", comment[0]))
	}
	sb.WriteString(transaction)
	if !strings.HasSuffix(transaction, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

// ReadMonthFile reads the content of a monthly file.
// Returns empty string if file doesn't exist.
func (r *FileSystemRepository) ReadMonthFile(yearMonth string) (string, error) {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}

	if !r.pathResolver.FileExists(filePath) {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return string(data), nil
}

// MonthFileExists checks if a monthly file exists.
func (r *FileSystemRepository) MonthFileExists(yearMonth string) bool {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return false
	}

	return r.pathResolver.FileExists(filePath)
}

// GetMonthFilesInYear returns the year-month keys of a year's files, sorted
// (e.g., ["2020-07", "2020-08"]).
func (r *FileSystemRepository) GetMonthFilesInYear(year string) ([]string, error) {
	yearDir := r.pathResolver.GetYearDir(year)
	if !r.pathResolver.FileExists(yearDir) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(yearDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read year directory: %w", err)
	}

	monthFiles := []string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".beancount" {
			continue
		}
		monthFiles = append(monthFiles, strings.TrimSuffix(entry.Name(), ".beancount"))
	}
	sort.Strings(monthFiles)

	return monthFiles, nil
}

// ensureMonthFile creates a monthly file with a header if it is missing.
func (r *FileSystemRepository) ensureMonthFile(filePath, yearMonth string) error {
	if r.pathResolver.FileExists(filePath) {
		return nil
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	header := fmt.Sprintf("; Collective postings for %s\n; Generated at %s\n\n",
		yearMonth, r.now().Format(time.RFC3339))
	if err := os.WriteFile(filePath, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
