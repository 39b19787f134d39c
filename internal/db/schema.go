package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 3

// LatestSchemaVersion is the ledger schema version this build writes.
const LatestSchemaVersion = currentSchemaVersion

// schemaDDL contains the CREATE TABLE statements for the current schema.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	space_id    TEXT NOT NULL,
	backup_path TEXT NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	retry_of    TEXT REFERENCES runs(id) ON DELETE SET NULL,
	status      TEXT NOT NULL,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_results (
	run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	type              TEXT NOT NULL,
	total             INTEGER NOT NULL,
	succeeded         INTEGER NOT NULL,
	failed            INTEGER NOT NULL,
	error             TEXT,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	postprocess_error TEXT,
	postprocess       TEXT,
	PRIMARY KEY (run_id, type)
);

CREATE TABLE IF NOT EXISTS failures (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	resource_id INTEGER NOT NULL,
	uuid        TEXT,
	label       TEXT,
	error       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mappings (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	type      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	old_value TEXT NOT NULL,
	new_value TEXT NOT NULL,
	PRIMARY KEY (run_id, type, kind, old_value)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_failures_run_id ON failures(run_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations maps a schema version to the function migrating to it from
// the previous version.
var migrations = map[int]func(tx *sql.Tx) error{
	// v2 records reference rewrite errors per batch.
	2: func(tx *sql.Tx) error {
		_, err := tx.Exec(`ALTER TABLE batch_results ADD COLUMN postprocess_error TEXT`)
		return err
	},
	// v3 records the reference rewrite counts per batch as JSON.
	3: func(tx *sql.Tx) error {
		_, err := tx.Exec(`ALTER TABLE batch_results ADD COLUMN postprocess TEXT`)
		return err
	},
}

// Migrate applies pending migrations in order. It is a no-op at the latest
// version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
