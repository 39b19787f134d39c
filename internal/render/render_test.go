package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
)

func sampleReport() *model.Report {
	failed := &model.BatchResult{Type: model.TypeStories, Total: 3, Succeeded: 2, Failed: 1}
	failed.Postprocess = &model.PostprocessSummary{Pairs: 2, Searched: 2, Matches: 3, Rewritten: 3}
	failed.Failures = []model.Failure{{Type: model.TypeStories, ID: 9, Label: "blog/post", Error: "422 invalid"}}
	broken := &model.BatchResult{Type: model.TypeAssets}
	broken.SetErr(errors.New("cycle detected among resources: 1, 2"))
	return &model.Report{
		Batches: []*model.BatchResult{
			{Type: model.TypeComponents, Total: 4, Succeeded: 4, Duration: 1500 * time.Millisecond},
			broken,
			failed,
		},
		Skipped: []model.ResourceType{model.TypeWebhooks},
	}
}

func TestRenderReportPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderReport(sampleReport())
	for _, want := range []string{"components", "1.5s", "cycle detected", "stories", "refs 3/3 rewritten", "Restored 6, failed 1", "not in backup: webhooks"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderReport missing %q:\n%s", want, got)
		}
	}
}

func TestBatchNote(t *testing.T) {
	tests := []struct {
		name  string
		batch *model.BatchResult
		want  string
	}{
		{"clean", &model.BatchResult{}, ""},
		{"no pairs", &model.BatchResult{Postprocess: &model.PostprocessSummary{}}, ""},
		{
			"rewrite failures",
			&model.BatchResult{
				Postprocess:      &model.PostprocessSummary{Pairs: 2, Searched: 1, Matches: 2, Rewritten: 1, Failed: 2},
				PostprocessError: "boom",
			},
			"refs 1/2 rewritten, 2 failed; postprocess: boom",
		},
		{"type error", &model.BatchResult{Error: "corrupt"}, "corrupt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := batchNote(tt.batch); got != tt.want {
				t.Errorf("batchNote() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderReportEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderReport(&model.Report{})
	if !strings.HasPrefix(got, "Nothing was restored.") {
		t.Errorf("RenderReport(empty) = %q", got)
	}
}

func TestRenderReportColor(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")

	got := RenderReport(sampleReport())
	if !strings.Contains(got, "Restored") || !strings.Contains(got, "components") {
		t.Errorf("RenderReport with colors missing content:\n%s", got)
	}
}

func TestRenderPlansPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var resources []model.Resource
	for i := 1; i <= 10; i++ {
		resources = append(resources, model.NewResource(map[string]any{"id": i, "name": "folder"}))
	}
	child := model.NewResource(map[string]any{"id": 11, "parent_id": 1, "name": "nested"})
	plan, err := planner.GeneratePlan(model.TypeAssetFolders, append(resources, child), &planner.TopologicalSort{})
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}

	got := RenderPlans([]*planner.Plan{plan})
	for _, want := range []string{"asset-folders: 11 to restore in 2 phase(s)", "phase 1 (10)", "... 2 more", "phase 2 (1)", "11 nested"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderPlans missing %q:\n%s", want, got)
		}
	}
}

func TestRenderRunsPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	runs := []*model.Run{{
		ID:        "01HZXABCDEFGHJKMNPQRSTVWXY",
		SpaceID:   "12345",
		Status:    model.RunPartial,
		Succeeded: 10,
		Failed:    2,
		StartedAt: time.Now().Add(-2 * time.Hour),
	}}

	got := RenderRuns(runs)
	for _, want := range []string{"01HZXABCDE", "12345", "partial", "2 hours ago"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderRuns missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "01HZXABCDEF") {
		t.Errorf("RenderRuns should abbreviate run IDs:\n%s", got)
	}
}

func TestRenderRunsEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := RenderRuns(nil); !strings.Contains(got, "No restore runs recorded.") {
		t.Errorf("RenderRuns(nil) = %q", got)
	}
}

func TestRenderRunDetail(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	start := time.Now().Add(-time.Minute)
	run := &model.Run{ID: "01RUN", SpaceID: "7", BackupPath: "/b", Status: model.RunCompleted, RetryOf: "01PREV", StartedAt: start, FinishedAt: start.Add(3 * time.Second)}

	got := RenderRunDetail(run, sampleReport().Batches)
	for _, want := range []string{"Run 01RUN", "completed", "Retry of: 01PREV", "Took: 3s", "components"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderRunDetail missing %q:\n%s", want, got)
		}
	}
}

func TestRenderFailuresPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderFailures(sampleReport().Failures())
	if !strings.Contains(got, "blog/post") || !strings.Contains(got, "422 invalid") {
		t.Errorf("RenderFailures missing failure:\n%s", got)
	}
	if got := RenderFailures(nil); got != "No failures." {
		t.Errorf("RenderFailures(nil) = %q, want %q", got, "No failures.")
	}
}

func TestFailuresMarkdown(t *testing.T) {
	run := &model.Run{ID: "01RUN", SpaceID: "7", Status: model.RunPartial, Failed: 2}
	failures := []model.Failure{
		{Type: model.TypeComponents, ID: 1, Label: "hero", Error: "schema | invalid"},
		{Type: model.TypeStories, ID: 2, Label: "home", Error: "line one\nline two"},
	}

	got := FailuresMarkdown(run, failures)
	for _, want := range []string{"# Restore run 01RUN", "## components", "## stories", `schema \| invalid`, "line one line two"} {
		if !strings.Contains(got, want) {
			t.Errorf("FailuresMarkdown missing %q:\n%s", want, got)
		}
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got, err := RenderMarkdown("# Title")
	if err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}
	if got != "# Title" {
		t.Errorf("RenderMarkdown = %q, want unchanged input", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a long resource name", 10, "a long ..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("01HZXABCDEFGHJ"); got != "01HZXABCDE" {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(short) = %q", got)
	}
}
