package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/backup"
	"github.com/ALT-F4-LLC/spacerestore/internal/config"
	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
	"github.com/ALT-F4-LLC/spacerestore/internal/render"
	"github.com/ALT-F4-LLC/spacerestore/internal/resources"
	"github.com/ALT-F4-LLC/spacerestore/internal/space"
)

// restoreResult is the JSON wire format of a restore run.
type restoreResult struct {
	*model.Report
	Status  model.RunStatus `json:"status"`
	RetryOf string          `json:"retry_of,omitempty"`
}

// planJSON is the JSON wire format of one dry-run plan.
type planJSON struct {
	Type           model.ResourceType `json:"type"`
	Phases         [][]int64          `json:"phases"`
	TotalResources int                `json:"total_resources"`
	TotalPhases    int                `json:"total_phases"`
	MaxWidth       int                `json:"max_width"`
}

type dryRunResult struct {
	RunID   string             `json:"run_id"`
	Plans   []planJSON         `json:"plans"`
	Batches []*model.BatchResult `json:"batches"`
	Skipped []model.ResourceType `json:"skipped,omitempty"`
}

var restoreCmd = &cobra.Command{
	Use:         "restore",
	Short:       "Restore a space from a backup directory",
	Annotations: map[string]string{ledgerAnnotation: ledgerCreate},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		conn := getDB(cmd)

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		applyRestoreFlags(cmd, cfg)
		if err := cfg.ValidateForRestore(dryRun); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		typeNames, _ := cmd.Flags().GetStringSlice("types")
		types, err := model.ParseResourceTypes(typeNames)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		src, err := backup.Open(cfg.BackupPath)
		if err != nil {
			return cmdErr(err, output.ErrNotFound)
		}

		// A dry run without credentials never reaches the API.
		var transport api.Transport
		if cfg.Token != "" || !dryRun {
			client, err := newClient(cfg)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			transport = client
		}

		opts := []space.Option{space.WithTypes(types...)}

		var retryOf string
		if cmd.Flags().Changed("retry-failed") {
			ref, _ := cmd.Flags().GetString("retry-failed")
			retryOpts, id, err := retryOptions(conn, ref)
			if err != nil {
				return err
			}
			if retryOpts == nil {
				w.Success(map[string]string{"retry_of": id}, fmt.Sprintf("Run %s has no failures to retry", render.ShortID(id)))
				return nil
			}
			opts = append(opts, retryOpts...)
			retryOf = id
		}

		if !dryRun && !yes {
			proceed, err := confirmRestore(w, cfg, types)
			if err != nil {
				return err
			}
			if !proceed {
				w.Info("Cancelled.")
				return nil
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runID := db.NewRunID()
		ctx = logging.NewContextWithFields(ctx, logrus.Fields{"run": runID, "space": cfg.SpaceID})

		var plans []*planner.Plan
		opts = append(opts, space.WithObserver(progress(w, &plans)))
		if dryRun {
			opts = append(opts, space.WithDryRun())
		}

		seq := space.New(src, transport, resources.Factories(), opts...)
		report, runErr := seq.Restore(ctx, model.Options{SpaceID: cfg.SpaceID, BackupPath: cfg.BackupPath})
		report.RunID = runID
		if errors.Is(runErr, space.ErrUnknownType) {
			return cmdErr(runErr, output.ErrValidation)
		}

		run := newRun(runID, cfg, report, retryOf, runErr != nil)
		if err := db.SaveRun(conn, run, report, seq.Registry()); err != nil {
			w.Warn("recording run %s: %v", runID, err)
		}

		if dryRun && runErr == nil {
			w.Success(dryRunJSON(report, plans), render.RenderPlans(plans))
			return nil
		}

		result := restoreResult{Report: report, Status: run.Status, RetryOf: retryOf}
		switch {
		case runErr != nil:
			return &CmdError{
				Err:     fmt.Errorf("restore interrupted, run %s recorded: %w", render.ShortID(runID), runErr),
				Code:    output.ErrInterrupted,
				Data:    result,
				Message: render.RenderReport(report),
			}
		case report.HasFailures():
			return &CmdError{
				Err:     fmt.Errorf("restore incomplete, retry with: spacerestore restore --retry-failed %s", render.ShortID(runID)),
				Code:    output.ErrPartial,
				Data:    result,
				Message: render.RenderReport(report),
			}
		}

		w.Success(result, render.RenderReport(report))
		return nil
	},
}

func applyRestoreFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"token":       &cfg.Token,
		"space-id":    &cfg.SpaceID,
		"region":      &cfg.Region,
		"base-url":    &cfg.BaseURL,
		"backup-path": &cfg.BackupPath,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("rate") {
		cfg.RequestsPerSecond, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
}

func newClient(cfg *config.Config) (*api.Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		var err error
		if baseURL, err = api.BaseURLForRegion(cfg.Region); err != nil {
			return nil, err
		}
	}

	retry := api.DefaultRetry
	if cfg.MaxRetries > 0 {
		retry.Tries = cfg.MaxRetries
	}

	return api.NewClient(api.Config{
		Token:             cfg.Token,
		BaseURL:           baseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Retry:             retry,
	})
}

// retryOptions narrows a run to the failures of an earlier run, seeded with
// that run's mappings. It returns nil options when there is nothing to retry.
func retryOptions(conn *sql.DB, ref string) ([]space.Option, string, error) {
	id, err := db.ResolveRunID(conn, ref)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, "", cmdErr(fmt.Errorf("run %q not found", ref), output.ErrNotFound)
		}
		return nil, "", cmdErr(err, output.ErrValidation)
	}

	failed, err := db.FailedIDs(conn, id)
	if err != nil {
		return nil, id, cmdErr(fmt.Errorf("reading failures of run %s: %w", id, err), output.ErrGeneral)
	}
	if len(failed) == 0 {
		return nil, id, nil
	}

	reg, err := db.LoadMappings(conn, id)
	if err != nil {
		return nil, id, cmdErr(fmt.Errorf("reading mappings of run %s: %w", id, err), output.ErrGeneral)
	}

	types := make([]model.ResourceType, 0, len(failed))
	for t := range failed {
		types = append(types, t)
	}
	return []space.Option{space.WithTypes(types...), space.WithRegistry(reg), space.WithFilter(failed)}, id, nil
}

func confirmRestore(w *output.Writer, cfg *config.Config, types []model.ResourceType) (bool, error) {
	if w.JSONMode || !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, cmdErr(fmt.Errorf("restore writes to space %s: pass --yes to confirm in non-interactive mode", cfg.SpaceID), output.ErrValidation)
	}

	proceed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Restore %d resource type(s) from %s into space %s?", len(types), cfg.BackupPath, cfg.SpaceID)).
				Description("Existing resources with the same name or slug are updated in place.").
				Affirmative("Restore").
				Negative("Cancel").
				Value(&proceed),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
	}
	return proceed, nil
}

func progress(w *output.Writer, plans *[]*planner.Plan) space.Observer {
	return func(e space.Event) {
		switch e.Phase {
		case space.PhaseSkipped:
			w.Info("%s: not selected or not in backup", e.Type)
		case space.PhaseStarted:
			w.Info("%s: restoring %d", e.Type, e.Total)
		case space.PhaseFinished:
			if e.Result.Err != nil {
				w.Warn("%s: %v", e.Type, e.Result.Err)
				return
			}
			w.Info("%s: %d restored, %d failed in %s", e.Type, e.Result.Succeeded, e.Result.Failed, e.Result.Duration.Round(time.Millisecond))
		case space.PhasePlanned:
			if e.Plan != nil {
				*plans = append(*plans, e.Plan)
			} else if e.Result != nil && e.Result.Err != nil {
				w.Warn("%s: %v", e.Type, e.Result.Err)
			}
		}
	}
}

func newRun(id string, cfg *config.Config, report *model.Report, retryOf string, aborted bool) *model.Run {
	succeeded, failed := report.Totals()
	return &model.Run{
		ID:         id,
		SpaceID:    cfg.SpaceID,
		BackupPath: cfg.BackupPath,
		DryRun:     report.DryRun,
		RetryOf:    retryOf,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Succeeded:  succeeded,
		Failed:     failed,
		Status:     model.StatusOf(report, aborted),
	}
}

func dryRunJSON(report *model.Report, plans []*planner.Plan) dryRunResult {
	result := dryRunResult{RunID: report.RunID, Batches: report.Batches, Skipped: report.Skipped}
	for _, p := range plans {
		pj := planJSON{
			Type:           p.Type,
			TotalResources: p.TotalResources,
			TotalPhases:    p.TotalPhases,
			MaxWidth:       p.MaxWidth,
		}
		for _, phase := range p.Phases {
			ids := make([]int64, len(phase.Resources))
			for i, r := range phase.Resources {
				ids[i] = r.ID()
			}
			pj.Phases = append(pj.Phases, ids)
		}
		result.Plans = append(result.Plans, pj)
	}
	return result
}

func init() {
	flags := restoreCmd.Flags()
	flags.String("token", "", "Management API token (env "+config.EnvToken+")")
	flags.String("space-id", "", "Target space id (env "+config.EnvSpaceID+")")
	flags.String("region", "", "API region: eu, us, ca, ap or cn (env "+config.EnvRegion+")")
	flags.String("base-url", "", "API base URL, overrides --region")
	flags.StringP("backup-path", "b", "", "Backup directory (env "+config.EnvBackupPath+")")
	flags.StringSlice("types", nil, "Resource types to restore (default all)")
	flags.Bool("dry-run", false, "Load and order the backup without writing to the space")
	flags.String("retry-failed", "", "Restore only the failures of an earlier run (id prefix or 'latest')")
	flags.Lookup("retry-failed").NoOptDefVal = db.LatestRun
	flags.BoolP("yes", "y", false, "Skip the confirmation prompt")
	flags.Float64("rate", 0, "Maximum requests per second")
	flags.Int("max-retries", 0, "Attempts per request when rate limited")
	rootCmd.AddCommand(restoreCmd)
}
