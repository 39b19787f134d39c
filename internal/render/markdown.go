package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// RenderMarkdown renders markdown for the terminal, or returns it unchanged
// when colors are disabled.
func RenderMarkdown(content string) (string, error) {
	if content == "" {
		return "", nil
	}
	if !ColorsEnabled() {
		return content, nil
	}

	rendered, err := glamour.RenderWithEnvironmentConfig(content)
	if err != nil {
		return content, err
	}
	return strings.TrimSpace(rendered), nil
}

// FailuresMarkdown writes a run's failures as a markdown document grouped by
// resource type, suitable for pasting into a ticket.
func FailuresMarkdown(run *model.Run, failures []model.Failure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Restore run %s\n\n", run.ID)
	fmt.Fprintf(&b, "- Space: `%s`\n", run.SpaceID)
	fmt.Fprintf(&b, "- Backup: `%s`\n", run.BackupPath)
	fmt.Fprintf(&b, "- Status: %s\n", run.Status)
	fmt.Fprintf(&b, "- Restored: %d, failed: %d\n", run.Succeeded, run.Failed)

	if len(failures) == 0 {
		b.WriteString("\nNo failures.\n")
		return b.String()
	}

	var current model.ResourceType
	for _, f := range failures {
		if f.Type != current {
			current = f.Type
			fmt.Fprintf(&b, "\n## %s\n\n", current)
			b.WriteString("| ID | Name | Error |\n|---|---|---|\n")
		}
		fmt.Fprintf(&b, "| %d | %s | %s |\n", f.ID, escapeCell(f.Label), escapeCell(f.Error))
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
