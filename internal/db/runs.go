package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// LatestRun is the run reference that resolves to the newest run.
const LatestRun = "latest"

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

// NewRunID returns a new time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// SaveRun stores a finished run with its batch results, failures and the
// registry snapshot, in one transaction.
func SaveRun(db *sql.DB, run *model.Run, report *model.Report, reg *registry.Registry) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var retryOf any
	if run.RetryOf != "" {
		retryOf = run.RetryOf
	}

	_, err = tx.Exec(
		`INSERT INTO runs (id, space_id, backup_path, dry_run, retry_of, status, succeeded, failed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SpaceID, run.BackupPath, boolToInt(run.DryRun), retryOf, string(run.Status),
		run.Succeeded, run.Failed,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, b := range report.Batches {
		var summary any
		if b.Postprocess != nil {
			raw, err := json.Marshal(b.Postprocess)
			if err != nil {
				return fmt.Errorf("encoding %s postprocess summary: %w", b.Type, err)
			}
			summary = string(raw)
		}

		if _, err := tx.Exec(
			`INSERT INTO batch_results (run_id, position, type, total, succeeded, failed, error, duration_ms, postprocess_error, postprocess)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, string(b.Type), b.Total, b.Succeeded, b.Failed,
			nullString(b.Error), b.Duration.Milliseconds(), nullString(b.PostprocessError), summary,
		); err != nil {
			return fmt.Errorf("inserting %s result: %w", b.Type, err)
		}

		for _, f := range b.Failures {
			if _, err := tx.Exec(
				`INSERT INTO failures (run_id, type, resource_id, uuid, label, error) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, string(f.Type), f.ID, nullString(f.UUID), nullString(f.Label), f.Error,
			); err != nil {
				return fmt.Errorf("inserting failure for %s %d: %w", f.Type, f.ID, err)
			}
		}
	}

	if reg != nil {
		if err := insertMappings(tx, run.ID, reg.ToObject()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertMappings(tx *sql.Tx, runID string, snap registry.Snapshot) error {
	stmt, err := tx.Prepare(
		`INSERT INTO mappings (run_id, type, kind, old_value, new_value) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing mapping insert: %w", err)
	}
	defer stmt.Close()

	for t, entry := range snap {
		for oldID, newID := range entry.OldIDToNewID {
			if _, err := stmt.Exec(runID, string(t), string(registry.IDs), oldID, strconv.FormatInt(newID, 10)); err != nil {
				return fmt.Errorf("inserting %s id mapping: %w", t, err)
			}
		}
		for oldUUID, newUUID := range entry.OldUUIDToNewUUID {
			if _, err := stmt.Exec(runID, string(t), string(registry.UUIDs), oldUUID, newUUID); err != nil {
				return fmt.Errorf("inserting %s uuid mapping: %w", t, err)
			}
		}
	}
	return nil
}

// ResolveRunID turns a run reference into a stored run id. The reference
// is a full id, a unique id prefix (case-insensitive) or "latest".
func ResolveRunID(db *sql.DB, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, LatestRun) {
		var id string
		err := db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("resolving latest run: %w", err)
		}
		return id, nil
	}

	rows, err := db.Query(`SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, strings.ToUpper(ref))
	if err != nil {
		return "", fmt.Errorf("resolving run %q: %w", ref, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scanning run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run reference %q is ambiguous", ref)
	}
}

// GetRun returns the run with the given id.
func GetRun(db *sql.DB, id string) (*model.Run, error) {
	row := db.QueryRow(
		`SELECT id, space_id, backup_path, dry_run, retry_of, status, succeeded, failed, started_at, finished_at
		 FROM runs WHERE id = ?`, id,
	)
	run, err := scanRunFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func ListRuns(db *sql.DB, limit int) ([]*model.Run, error) {
	query := `SELECT id, space_id, backup_path, dry_run, retry_of, status, succeeded, failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRunFrom(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ListBatches returns the per-type results of a run in restore order.
func ListBatches(db *sql.DB, runID string) ([]*model.BatchResult, error) {
	rows, err := db.Query(
		`SELECT type, total, succeeded, failed, error, duration_ms, postprocess_error, postprocess
		 FROM batch_results WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing batch results: %w", err)
	}
	defer rows.Close()

	var batches []*model.BatchResult
	for rows.Next() {
		var (
			b          model.BatchResult
			typ        string
			errText    sql.NullString
			durationMS int64
			postErr    sql.NullString
			summary    sql.NullString
		)
		if err := rows.Scan(&typ, &b.Total, &b.Succeeded, &b.Failed, &errText, &durationMS, &postErr, &summary); err != nil {
			return nil, fmt.Errorf("scanning batch result: %w", err)
		}
		b.Type = model.ResourceType(typ)
		b.Error = errText.String
		if b.Error != "" {
			b.Err = errors.New(b.Error)
		}
		b.Duration = time.Duration(durationMS) * time.Millisecond
		b.PostprocessError = postErr.String
		if summary.Valid {
			b.Postprocess = &model.PostprocessSummary{}
			if err := json.Unmarshal([]byte(summary.String), b.Postprocess); err != nil {
				return nil, fmt.Errorf("decoding %s postprocess summary: %w", typ, err)
			}
		}
		batches = append(batches, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch results: %w", err)
	}
	return batches, nil
}

// ListFailures returns the per-resource failures of a run in the order
// they happened.
func ListFailures(db *sql.DB, runID string) ([]model.Failure, error) {
	rows, err := db.Query(
		`SELECT type, resource_id, uuid, label, error FROM failures WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	defer rows.Close()

	var failures []model.Failure
	for rows.Next() {
		var (
			f     model.Failure
			typ   string
			uuid  sql.NullString
			label sql.NullString
		)
		if err := rows.Scan(&typ, &f.ID, &uuid, &label, &f.Error); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		f.Type = model.ResourceType(typ)
		f.UUID = uuid.String
		f.Label = label.String
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return failures, nil
}

// FailedIDs groups the old ids of a run's failed resources by type.
func FailedIDs(db *sql.DB, runID string) (map[model.ResourceType][]int64, error) {
	failures, err := ListFailures(db, runID)
	if err != nil {
		return nil, err
	}
	out := make(map[model.ResourceType][]int64)
	for _, f := range failures {
		out[f.Type] = append(out[f.Type], f.ID)
	}
	return out, nil
}

// LoadMappings rebuilds the registry saved with a run.
func LoadMappings(db *sql.DB, runID string) (*registry.Registry, error) {
	rows, err := db.Query(
		`SELECT type, kind, old_value, new_value FROM mappings WHERE run_id = ?`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading mappings: %w", err)
	}
	defer rows.Close()

	snap := registry.Snapshot{}
	for rows.Next() {
		var typ, kind, oldValue, newValue string
		if err := rows.Scan(&typ, &kind, &oldValue, &newValue); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}

		t := model.ResourceType(typ)
		entry, ok := snap[t]
		if !ok {
			entry = registry.EntrySnapshot{
				OldIDToNewID:     map[string]int64{},
				OldUUIDToNewUUID: map[string]string{},
			}
		}
		switch registry.MapKind(kind) {
		case registry.IDs:
			n, err := strconv.ParseInt(newValue, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing %s mapping %s: %w", t, oldValue, err)
			}
			entry.OldIDToNewID[oldValue] = n
		case registry.UUIDs:
			entry.OldUUIDToNewUUID[oldValue] = newValue
		default:
			return nil, fmt.Errorf("unknown mapping kind %q", kind)
		}
		snap[t] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}

	return registry.FromObject(snap)
}

func scanRunFrom(s scanner) (*model.Run, error) {
	var (
		run        model.Run
		dryRun     int
		retryOf    sql.NullString
		status     string
		startedAt  string
		finishedAt string
	)
	if err := s.Scan(&run.ID, &run.SpaceID, &run.BackupPath, &dryRun, &retryOf, &status,
		&run.Succeeded, &run.Failed, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run.DryRun = dryRun != 0
	run.RetryOf = retryOf.String
	run.Status = model.RunStatus(status)

	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
