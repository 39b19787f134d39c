package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
	"github.com/ALT-F4-LLC/spacerestore/internal/render"
)

type failuresResult struct {
	RunID    string          `json:"run_id"`
	Failures []model.Failure `json:"failures"`
	Total    int             `json:"total"`
}

var failuresCmd = &cobra.Command{
	Use:         "failures [run]",
	Short:       "List the resources a run could not restore",
	Annotations: map[string]string{ledgerAnnotation: ledgerExisting},
	Args:        cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		run, err := lookupRun(conn, args)
		if err != nil {
			return err
		}

		failures, err := db.ListFailures(conn, run.ID)
		if err != nil {
			return cmdErr(fmt.Errorf("listing failures of run %s: %w", run.ID, err), output.ErrGeneral)
		}
		if failures == nil {
			failures = []model.Failure{}
		}

		result := failuresResult{RunID: run.ID, Failures: failures, Total: len(failures)}

		markdown, _ := cmd.Flags().GetBool("markdown")
		if markdown {
			doc := render.FailuresMarkdown(run, failures)
			if raw, _ := cmd.Flags().GetBool("raw"); raw {
				w.Success(result, doc)
				return nil
			}
			rendered, err := render.RenderMarkdown(doc)
			if err != nil {
				w.Warn("rendering markdown: %v", err)
			}
			w.Success(result, rendered)
			return nil
		}

		w.Success(result, render.RenderFailures(failures))
		return nil
	},
}

func init() {
	failuresCmd.Flags().Bool("markdown", false, "Render the failures as a markdown report")
	failuresCmd.Flags().Bool("raw", false, "With --markdown, print the markdown source")
	rootCmd.AddCommand(failuresCmd)
}
