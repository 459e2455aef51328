package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FileKind names the role of a written file.
type FileKind string

const (
	FileImport       FileKind = "import"
	FileCollective   FileKind = "collective"
	FileTransactions FileKind = "transactions"
	FileVouchers     FileKind = "vouchers"
	FileBeancount    FileKind = "beancount"
)

// Run is the summary of one conversion.
type Run struct {
	ID          string
	InputFile   string
	Heading     string
	SourceRows  int
	Postings    int
	Selected    int
	Collective  int
	Vouchers    int
	Gaps        int
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Diagnostics int
	CreatedAt   time.Time
}

// File is one output of a run.
type File struct {
	Kind FileKind
	Path string
	Rows int
}

// Journal records conversion runs. It is write-mostly: nothing in the
// conversion reads it back.
type Journal struct {
	conn *Connection
}

// NewJournal creates a new Journal instance.
func NewJournal(conn *Connection) *Journal {
	return &Journal{conn: conn}
}

// OpenJournal opens the journal database at dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return NewJournal(conn), nil
}

// Close closes the underlying connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// RecordRun stores a run and its files in one transaction.
func (j *Journal) RecordRun(run Run, files []File) error {
	return j.conn.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO export_runs (id, input_file, heading, source_rows, postings, selected,
				collective, vouchers, gaps, debit_total, credit_total, diagnostics)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, run.InputFile, run.Heading, run.SourceRows, run.Postings, run.Selected,
			run.Collective, run.Vouchers, run.Gaps, run.DebitTotal.String(), run.CreditTotal.String(),
			run.Diagnostics,
		)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}

		for _, f := range files {
			if _, err := tx.Exec(
				`INSERT INTO export_files (run_id, kind, path, rows) VALUES (?, ?, ?, ?)`,
				run.ID, string(f.Kind), f.Path, f.Rows,
			); err != nil {
				return fmt.Errorf("failed to record file %s: %w", f.Path, err)
			}
		}
		return nil
	})
}

const runColumns = `id, input_file, heading, source_rows, postings, selected, collective,
	vouchers, gaps, debit_total, credit_total, diagnostics, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var debit, credit string
	if err := row.Scan(
		&run.ID,
		&run.InputFile,
		&run.Heading,
		&run.SourceRows,
		&run.Postings,
		&run.Selected,
		&run.Collective,
		&run.Vouchers,
		&run.Gaps,
		&debit,
		&credit,
		&run.Diagnostics,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if run.DebitTotal, err = decimal.NewFromString(debit); err != nil {
		return nil, fmt.Errorf("invalid debit total %q: %w", debit, err)
	}
	if run.CreditTotal, err = decimal.NewFromString(credit); err != nil {
		return nil, fmt.Errorf("invalid credit total %q: %w", credit, err)
	}
	return &run, nil
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (j *Journal) GetRun(id string) (*Run, error) {
	run, err := scanRun(j.conn.QueryRow(`SELECT `+runColumns+` FROM export_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (j *Journal) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM export_runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetFiles returns the files written by a run.
func (j *Journal) GetFiles(runID string) ([]File, error) {
	rows, err := j.conn.Query(`SELECT kind, path, rows FROM export_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var kind string
		if err := rows.Scan(&kind, &f.Path, &f.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Kind = FileKind(kind)
		files = append(files, f)
	}

	return files, rows.Err()
}

// Stats represents journal statistics.
type Stats struct {
	TotalRuns        int
	TotalPostings    int
	TotalCollective  int
	TotalFiles       int
	TotalDiagnostics int
	LastRun          sql.NullString
}

// GetStats retrieves journal statistics.
func (j *Journal) GetStats() (*Stats, error) {
	var stats Stats

	err := j.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(postings), 0), COALESCE(SUM(collective), 0),
			COALESCE(SUM(diagnostics), 0), MAX(created_at)
		FROM export_runs
	`).Scan(&stats.TotalRuns, &stats.TotalPostings, &stats.TotalCollective, &stats.TotalDiagnostics, &stats.LastRun)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}

	err = j.conn.QueryRow(`SELECT COUNT(*) FROM export_files`).Scan(&stats.TotalFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to get file count: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (j *Journal) GetMetadata(key string) (string, error) {
	var value string
	err := j.conn.QueryRow(`SELECT value FROM export_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (j *Journal) SetMetadata(key, value string) error {
	query := `
		INSERT INTO export_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := j.conn.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
