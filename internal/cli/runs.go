package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
	"github.com/ALT-F4-LLC/spacerestore/internal/render"
)

type runsResult struct {
	Runs  []*model.Run `json:"runs"`
	Total int          `json:"total"`
}

type runDetailResult struct {
	*model.Run
	Batches []*model.BatchResult `json:"batches"`
}

var runsCmd = &cobra.Command{
	Use:         "runs",
	Short:       "List recorded restore runs",
	Annotations: map[string]string{ledgerAnnotation: ledgerExisting},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 0 {
			return cmdErr(fmt.Errorf("--limit must not be negative"), output.ErrValidation)
		}

		runs, err := db.ListRuns(conn, limit)
		if err != nil {
			return cmdErr(fmt.Errorf("listing runs: %w", err), output.ErrGeneral)
		}
		if runs == nil {
			runs = []*model.Run{}
		}

		w.Success(runsResult{Runs: runs, Total: len(runs)}, render.RenderRuns(runs))
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:         "show [run]",
	Short:       "Show one run with its per-type results",
	Annotations: map[string]string{ledgerAnnotation: ledgerExisting},
	Args:        cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		run, err := lookupRun(conn, args)
		if err != nil {
			return err
		}

		batches, err := db.ListBatches(conn, run.ID)
		if err != nil {
			return cmdErr(fmt.Errorf("listing results of run %s: %w", run.ID, err), output.ErrGeneral)
		}

		w.Success(runDetailResult{Run: run, Batches: batches}, render.RenderRunDetail(run, batches))
		return nil
	},
}

// lookupRun resolves the optional run argument, defaulting to the latest
// run.
func lookupRun(conn *sql.DB, args []string) (*model.Run, error) {
	ref := db.LatestRun
	if len(args) > 0 {
		ref = args[0]
	}

	id, err := db.ResolveRunID(conn, ref)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, cmdErr(fmt.Errorf("run %q not found", ref), output.ErrNotFound)
		}
		return nil, cmdErr(err, output.ErrValidation)
	}

	run, err := db.GetRun(conn, id)
	if err != nil {
		return nil, cmdErr(fmt.Errorf("fetching run %s: %w", id, err), output.ErrGeneral)
	}
	return run, nil
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
