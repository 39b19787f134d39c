package render

import (
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// shortIDLen is enough of a ULID to be unique within one ledger in
// practice; ResolveRunID accepts prefixes.
const shortIDLen = 10

// ShortID abbreviates a run ID for display.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// RenderRuns renders the run ledger, newest first.
func RenderRuns(runs []*model.Run) string {
	if len(runs) == 0 {
		return EmptyState("No restore runs recorded.", "Start one with: spacerestore restore", false)
	}

	if !ColorsEnabled() {
		var b strings.Builder
		fmt.Fprintf(&b, "%-12s %-12s %-14s %9s %7s  %s\n", "Run", "Space", "Status", "Restored", "Failed", "Started")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 80))
		for _, r := range runs {
			row := runRow(r)
			fmt.Fprintf(&b, "%-12s %-12s %-14s %9s %7s  %s\n", row[0], row[1], row[2], row[3], row[4], row[5])
		}
		return strings.TrimRight(b.String(), "\n")
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, runRow(r))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers("Run", "Space", "Status", "Restored", "Failed", "Started").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row < 0 || row >= len(runs) {
				return s
			}
			switch col {
			case 0:
				return s.Foreground(lipgloss.Color("15"))
			case 2:
				return s.Foreground(statusColor(runs[row].Status))
			case 5:
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})
	return t.Render()
}

func runRow(r *model.Run) []string {
	return []string{
		ShortID(r.ID),
		r.SpaceID,
		statusLabel(r.Status),
		fmt.Sprint(r.Succeeded),
		fmt.Sprint(r.Failed),
		humanize.Time(r.StartedAt),
	}
}

// RenderRunDetail renders one run with its per-type results.
func RenderRunDetail(run *model.Run, batches []*model.BatchResult) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	label := func(s string) string { return StyledText(s, labelStyle) }

	header := StyledText("Run "+run.ID, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")))
	lines := []string{
		header,
		fmt.Sprintf("%s %s", label("Status:"), StyledText(statusLabel(run.Status), lipgloss.NewStyle().Foreground(statusColor(run.Status)).Bold(true))),
		fmt.Sprintf("%s %s", label("Space:"), run.SpaceID),
		fmt.Sprintf("%s %s", label("Backup:"), run.BackupPath),
		fmt.Sprintf("%s %s", label("Started:"), humanize.Time(run.StartedAt)),
		fmt.Sprintf("%s %s", label("Took:"), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)),
	}
	if run.RetryOf != "" {
		lines = append(lines, fmt.Sprintf("%s %s", label("Retry of:"), run.RetryOf))
	}
	if run.DryRun {
		lines = append(lines, label("Dry run: nothing was written"))
	}

	detail := strings.Join(lines, "\n")
	if len(batches) > 0 {
		report := &model.Report{Batches: batches}
		detail += "\n\n" + RenderReport(report)
	}
	return detail
}
