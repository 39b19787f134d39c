package model

import "time"

// Run is a restore run as stored in the run ledger.
type Run struct {
	ID         string    `json:"id"`
	SpaceID    string    `json:"space_id"`
	BackupPath string    `json:"backup_path"`
	DryRun     bool      `json:"dry_run"`
	RetryOf    string    `json:"retry_of,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Status     RunStatus `json:"status"`
}

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunAborted   RunStatus = "aborted"
	RunPlanned   RunStatus = "planned"
)

// StatusOf derives the status of a finished run from its report. aborted is
// set when the run stopped before every selected type was attempted.
func StatusOf(r *Report, aborted bool) RunStatus {
	switch {
	case aborted:
		return RunAborted
	case r.DryRun:
		return RunPlanned
	case r.HasFailures():
		return RunPartial
	default:
		return RunCompleted
	}
}
