package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/spacerestore/internal/config"
	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

func mustLedger(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenLedger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func saveRun(t *testing.T, conn *sql.DB, id string, failures []model.Failure) {
	t.Helper()
	reg := registry.New()
	reg.Get(model.TypeComponents).Record(1, 101, "c-old", "c-new")

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	report := &model.Report{
		SpaceID:    "42",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Batches: []*model.BatchResult{{
			Type: model.TypeStories, Total: len(failures) + 1, Succeeded: 1, Failed: len(failures), Failures: failures,
		}},
	}
	run := newRun(id, &config.Config{SpaceID: "42", BackupPath: "/b"}, report, "", false)
	if err := db.SaveRun(conn, run, report, reg); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
}

func TestRetryOptionsWithFailures(t *testing.T) {
	conn := mustLedger(t)
	saveRun(t, conn, "01HRETRY000000000000000001", []model.Failure{
		{Type: model.TypeStories, ID: 7, Error: "create: invalid"},
	})

	opts, id, err := retryOptions(conn, "01hretry")
	if err != nil {
		t.Fatalf("retryOptions failed: %v", err)
	}
	if id != "01HRETRY000000000000000001" {
		t.Errorf("id = %q, want the resolved run id", id)
	}
	if len(opts) != 3 {
		t.Errorf("len(opts) = %d, want 3 (types, registry, filter)", len(opts))
	}
}

func TestRetryOptionsNothingToRetry(t *testing.T) {
	conn := mustLedger(t)
	saveRun(t, conn, "01HCLEAN000000000000000001", nil)

	opts, id, err := retryOptions(conn, db.LatestRun)
	if err != nil {
		t.Fatalf("retryOptions failed: %v", err)
	}
	if opts != nil {
		t.Errorf("opts = %v, want nil for a run without failures", opts)
	}
	if id != "01HCLEAN000000000000000001" {
		t.Errorf("id = %q", id)
	}
}

func TestRetryOptionsUnknownRun(t *testing.T) {
	conn := mustLedger(t)

	_, _, err := retryOptions(conn, "01HNOPE")
	ce, ok := err.(*CmdError)
	if !ok {
		t.Fatalf("err = %v (%T), want *CmdError", err, err)
	}
	if ce.Code != output.ErrNotFound {
		t.Errorf("code = %q, want %q", ce.Code, output.ErrNotFound)
	}
}

func TestNewRunStatus(t *testing.T) {
	report := &model.Report{Batches: []*model.BatchResult{{Type: model.TypeStories, Total: 2, Succeeded: 1, Failed: 1}}}
	cfg := &config.Config{SpaceID: "9", BackupPath: "/b"}

	run := newRun("R", cfg, report, "PREV", false)
	if run.Status != model.RunPartial {
		t.Errorf("Status = %q, want %q", run.Status, model.RunPartial)
	}
	if run.Succeeded != 1 || run.Failed != 1 {
		t.Errorf("counts = %d/%d, want 1/1", run.Succeeded, run.Failed)
	}
	if run.RetryOf != "PREV" {
		t.Errorf("RetryOf = %q, want PREV", run.RetryOf)
	}

	if got := newRun("R", cfg, report, "", true).Status; got != model.RunAborted {
		t.Errorf("aborted Status = %q, want %q", got, model.RunAborted)
	}
}

func TestDryRunJSON(t *testing.T) {
	resources := []model.Resource{
		model.NewResource(map[string]any{"id": 1}),
		model.NewResource(map[string]any{"id": 2, "parent_id": 1}),
	}
	plan, err := planner.GeneratePlan(model.TypeAssetFolders, resources, &planner.TopologicalSort{})
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}

	got := dryRunJSON(&model.Report{RunID: "R"}, []*planner.Plan{plan})
	if len(got.Plans) != 1 {
		t.Fatalf("len(Plans) = %d, want 1", len(got.Plans))
	}
	phases := got.Plans[0].Phases
	if len(phases) != 2 || phases[0][0] != 1 || phases[1][0] != 2 {
		t.Errorf("Phases = %v, want [[1] [2]]", phases)
	}
}

func TestVersionReportsLedgerAndTypes(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	v := currentVersion()
	if v.LedgerSchema != db.LatestSchemaVersion {
		t.Errorf("LedgerSchema = %d, want %d", v.LedgerSchema, db.LatestSchemaVersion)
	}
	if len(v.ResourceTypes) != len(model.Order) || v.ResourceTypes[0] != model.Order[0] {
		t.Errorf("ResourceTypes = %v, want restore order", v.ResourceTypes)
	}

	got := formatVersion(v)
	want := fmt.Sprintf("ledger schema v%d, restores %d resource types", db.LatestSchemaVersion, len(model.Order))
	if !strings.Contains(got, want) {
		t.Errorf("formatVersion missing %q:\n%s", want, got)
	}
}

func TestFormatConfigPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := formatConfigHuman(configInfo{
		ConfigFile:        "/home/me/.config/spacerestore/config.yaml",
		Token:             "****abcd",
		Region:            "eu",
		BaseURL:           "https://mapi.storyblok.com/v1",
		RequestsPerSecond: 3,
		LedgerPath:        "/work/.spacerestore/runs.db",
	})
	for _, want := range []string{"(not found)", "****abcd", "Space id:        (not set)", "3 req/s", "(not created)"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatConfigHuman missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Schema version") {
		t.Errorf("schema version shown without a ledger:\n%s", got)
	}
}

func TestDryRunCommandRecordsPlannedRun(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv(config.EnvConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvSpaceID, "")

	backupDir := t.TempDir()
	folders := filepath.Join(backupDir, string(model.TypeAssetFolders))
	if err := os.MkdirAll(folders, 0o755); err != nil {
		t.Fatal(err)
	}
	body := `[{"id": 1, "name": "root"}, {"id": 2, "name": "child", "parent_id": 1}]`
	if err := os.WriteFile(filepath.Join(folders, "folders.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	stateDir := t.TempDir()

	rootCmd.SetArgs([]string{"restore", "--quiet", "--dry-run", "--backup-path", backupDir, "--state-dir", stateDir})
	if code := Execute(); code != output.ExitSuccess {
		t.Fatalf("Execute() = %d, want %d", code, output.ExitSuccess)
	}

	conn, err := db.OpenLedger(stateDir)
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	defer conn.Close()

	runs, err := db.ListRuns(conn, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Status != model.RunPlanned || !runs[0].DryRun {
		t.Errorf("run = %+v, want a planned dry run", runs[0])
	}
}
