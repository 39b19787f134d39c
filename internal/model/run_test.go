package model

import (
	"errors"
	"testing"
)

func TestStatusOf(t *testing.T) {
	clean := &Report{Batches: []*BatchResult{{Type: TypeStories, Total: 2, Succeeded: 2}}}
	failed := &Report{Batches: []*BatchResult{{Type: TypeStories, Total: 2, Succeeded: 1, Failed: 1}}}
	broken := &BatchResult{Type: TypeAssets}
	broken.SetErr(errors.New("loading assets: corrupt"))
	batchErr := &Report{Batches: []*BatchResult{broken}}
	dry := &Report{DryRun: true, Batches: []*BatchResult{{Type: TypeStories, Total: 2}}}

	tests := []struct {
		name    string
		report  *Report
		aborted bool
		want    RunStatus
	}{
		{"clean", clean, false, RunCompleted},
		{"resource failure", failed, false, RunPartial},
		{"batch error", batchErr, false, RunPartial},
		{"dry run", dry, false, RunPlanned},
		{"aborted wins", clean, true, RunAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.report, tt.aborted); got != tt.want {
				t.Errorf("StatusOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewFailureCapturesResource(t *testing.T) {
	r := NewResource(map[string]any{"id": 12, "uuid": "u-12", "full_slug": "blog/post"})
	err := errors.New("create: invalid")

	f := NewFailure(TypeStories, r, err)
	if f.ID != 12 || f.UUID != "u-12" || f.Label != "blog/post" {
		t.Errorf("NewFailure = %+v, want id 12, uuid u-12, label blog/post", f)
	}
	if f.Error != "create: invalid" || !errors.Is(f.Err, err) {
		t.Errorf("NewFailure error = %q (%v), want the wrapped error", f.Error, f.Err)
	}
}

func TestBatchResultSetErrNil(t *testing.T) {
	b := &BatchResult{Type: TypeWebhooks}
	b.SetErr(nil)
	if !b.OK() || b.Error != "" {
		t.Errorf("SetErr(nil) left batch %+v, want OK", b)
	}
}
