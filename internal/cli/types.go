package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/backup"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/output"
)

type typeInfo struct {
	Type     model.ResourceType `json:"type"`
	Position int                `json:"position"`
	InBackup *bool              `json:"in_backup,omitempty"`
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List resource types in restore order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		path, _ := cmd.Flags().GetString("backup-path")
		var dir *backup.Dir
		if path != "" {
			var err error
			if dir, err = backup.Open(path); err != nil {
				return cmdErr(err, output.ErrNotFound)
			}
		}

		infos := make([]typeInfo, 0, len(model.Order))
		var b strings.Builder
		for i, t := range model.Order {
			info := typeInfo{Type: t, Position: i + 1}
			fmt.Fprintf(&b, "%2d. %s", i+1, t)
			if dir != nil {
				has := dir.Has(t)
				info.InBackup = &has
				if !has {
					b.WriteString(" (not in backup)")
				}
			}
			b.WriteString("\n")
			infos = append(infos, info)
		}

		w.Success(infos, strings.TrimRight(b.String(), "\n"))
		return nil
	},
}

func init() {
	typesCmd.Flags().StringP("backup-path", "b", "", "Mark which types a backup contains")
	rootCmd.AddCommand(typesCmd)
}
