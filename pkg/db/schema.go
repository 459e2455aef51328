package db

import "fmt"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per convert run
CREATE TABLE IF NOT EXISTS export_runs (
    id TEXT PRIMARY KEY,               -- UUID
    input_file TEXT NOT NULL,
    heading TEXT NOT NULL,             -- '_All' or '_vom_<start>_bis_<end>'
    source_rows INTEGER NOT NULL,
    postings INTEGER NOT NULL,
    selected INTEGER NOT NULL,
    collective INTEGER NOT NULL,
    vouchers INTEGER NOT NULL,
    gaps INTEGER NOT NULL,
    debit_total TEXT NOT NULL,         -- Decimal, full precision
    credit_total TEXT NOT NULL,
    diagnostics INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_export_runs_input
    ON export_runs(input_file);

-- Files written by a run
CREATE TABLE IF NOT EXISTS export_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES export_runs(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,                -- 'import', 'collective', 'transactions', 'vouchers', 'beancount'
    path TEXT NOT NULL,
    rows INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_export_files_run
    ON export_files(run_id);

-- Key-value metadata
CREATE TABLE IF NOT EXISTS export_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// SchemaVersion is stored in PRAGMA user_version after the schema is applied.
const SchemaVersion = 1

// InitializeSchema creates the tables of a new journal and refuses journals
// written by a newer schema.
func InitializeSchema(conn *Connection) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if version == SchemaVersion {
		return nil
	}

	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
