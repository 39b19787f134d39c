package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// RenderFailures lists failed resources with their errors.
func RenderFailures(failures []model.Failure) string {
	if len(failures) == 0 {
		return EmptyState("No failures.", "", true)
	}

	width := labelWidth()
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{
			string(f.Type),
			fmt.Sprint(f.ID),
			truncate(f.Label, maxFailureLabel),
			truncate(f.Error, width),
		})
	}

	if !ColorsEnabled() {
		var b strings.Builder
		for _, row := range rows {
			fmt.Fprintf(&b, "%-20s %-12s %-30s %s\n", row[0], row[1], row[2], row[3])
		}
		return strings.TrimRight(b.String(), "\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("Type", "ID", "Name", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			case col == 3:
				return s.Foreground(lipgloss.Color("9"))
			default:
				return s
			}
		})
	return t.Render()
}

const maxFailureLabel = 30
