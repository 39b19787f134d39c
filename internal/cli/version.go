package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/spacerestore/internal/db"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/render"
)

type versionInfo struct {
	Version       string               `json:"version"`
	Commit        string               `json:"commit"`
	BuildDate     string               `json:"build_date"`
	LedgerSchema  int                  `json:"ledger_schema"`
	ResourceTypes []model.ResourceType `json:"resource_types"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:       version,
		Commit:        commit,
		BuildDate:     buildDate,
		LedgerSchema:  db.LatestSchemaVersion,
		ResourceTypes: model.Order,
	}
}

func formatVersion(v versionInfo) string {
	bold := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	return fmt.Sprintf("spacerestore version %s %s\n%s",
		render.StyledText(v.Version, bold),
		render.StyledText(fmt.Sprintf("(commit: %s, built: %s)", v.Commit, v.BuildDate), dim),
		render.StyledText(fmt.Sprintf("ledger schema v%d, restores %d resource types", v.LedgerSchema, len(v.ResourceTypes)), dim),
	)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print spacerestore version information",
	Run: func(cmd *cobra.Command, args []string) {
		v := currentVersion()
		getWriter(cmd).Success(v, formatVersion(v))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
