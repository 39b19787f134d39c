package model

import "time"

// Failure records one resource that could not be restored.
type Failure struct {
	Type  ResourceType `json:"type"`
	ID    int64        `json:"id"`
	UUID  string       `json:"uuid,omitempty"`
	Label string       `json:"label,omitempty"`
	Error string       `json:"error"`
	Err   error        `json:"-"`
}

// NewFailure captures r and err as a Failure of type t.
func NewFailure(t ResourceType, r Resource, err error) Failure {
	return Failure{
		Type:  t,
		ID:    r.ID(),
		UUID:  r.UUID(),
		Label: r.Label(),
		Error: err.Error(),
		Err:   err,
	}
}

// PostprocessSummary counts the work of a batch's postprocessing step.
type PostprocessSummary struct {
	Pairs     int `json:"pairs"`     // uuid mappings recorded by the batch
	Searched  int `json:"searched"`  // pairs whose reference search succeeded
	Matches   int `json:"matches"`   // items found embedding an old uuid
	Rewritten int `json:"rewritten"` // items written back
	Failed    int `json:"failed"`    // failed searches, fetches and writes
}

// BatchResult is the outcome of restoring one resource type. It is
// informational: per-resource failures are listed, not raised.
type BatchResult struct {
	Type             ResourceType        `json:"type"`
	Total            int                 `json:"total"`
	Succeeded        int                 `json:"succeeded"`
	Failed           int                 `json:"failed"`
	Failures         []Failure           `json:"failures,omitempty"`
	Error            string              `json:"error,omitempty"`
	Postprocess      *PostprocessSummary `json:"postprocess,omitempty"`
	PostprocessError string              `json:"postprocess_error,omitempty"`
	Duration         time.Duration       `json:"duration_ns"`
	Err              error               `json:"-"`
}

// SetErr records a type-level error that prevented the batch from running.
func (b *BatchResult) SetErr(err error) {
	b.Err = err
	if err != nil {
		b.Error = err.Error()
	}
}

// OK reports whether every resource of the batch was restored.
func (b *BatchResult) OK() bool {
	return b.Err == nil && b.Failed == 0
}

// Report summarizes a full restore run.
type Report struct {
	RunID      string         `json:"run_id"`
	SpaceID    string         `json:"space_id"`
	DryRun     bool           `json:"dry_run,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Batches    []*BatchResult `json:"batches"`
	Skipped    []ResourceType `json:"skipped,omitempty"`
}

// Totals returns the number of restored and failed resources across all
// batches.
func (r *Report) Totals() (succeeded, failed int) {
	for _, b := range r.Batches {
		succeeded += b.Succeeded
		failed += b.Failed
	}
	return succeeded, failed
}

// HasFailures reports whether any resource or any whole batch failed.
func (r *Report) HasFailures() bool {
	for _, b := range r.Batches {
		if !b.OK() {
			return true
		}
	}
	return false
}

// Failures returns every per-resource failure in restore order.
func (r *Report) Failures() []Failure {
	var all []Failure
	for _, b := range r.Batches {
		all = append(all, b.Failures...)
	}
	return all
}
