package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

type mappingsResult struct {
	RunID    string            `json:"run_id"`
	Mappings registry.Snapshot `json:"mappings"`
	Path     string            `json:"path,omitempty"`
}

var mappingsCmd = &cobra.Command{
	Use:         "mappings [run]",
	Short:       "Export the old-to-new identity mappings of a run",
	Annotations: map[string]string{ledgerAnnotation: ledgerExisting},
	Args:        cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		run, err := lookupRun(conn, args)
		if err != nil {
			return err
		}

		reg, err := db.LoadMappings(conn, run.ID)
		if err != nil {
			return cmdErr(fmt.Errorf("loading mappings of run %s: %w", run.ID, err), output.ErrGeneral)
		}
		snap := reg.ToObject()
		result := mappingsResult{RunID: run.ID, Mappings: snap}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return cmdErr(fmt.Errorf("encoding mappings: %w", err), output.ErrGeneral)
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			w.Success(result, string(data))
			return nil
		}

		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return cmdErr(fmt.Errorf("writing %s: %w", path, err), output.ErrGeneral)
		}
		result.Path = path
		w.Success(result, fmt.Sprintf("Wrote mappings for %d type(s) to %s", len(snap), path))
		return nil
	},
}

func init() {
	mappingsCmd.Flags().StringP("output", "o", "", "Write the mappings to this file")
	rootCmd.AddCommand(mappingsCmd)
}
