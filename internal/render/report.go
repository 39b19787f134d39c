package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

var reportHeaders = []string{"Type", "Total", "Restored", "Failed", "Duration", "Note"}

// RenderReport renders a restore report as one row per resource type
// followed by a totals line.
func RenderReport(r *model.Report) string {
	if len(r.Batches) == 0 && len(r.Skipped) == 0 {
		return EmptyState("Nothing was restored.", "Check --types and the backup path.", false)
	}

	rows := make([][]string, 0, len(r.Batches))
	for _, b := range r.Batches {
		rows = append(rows, batchRow(b))
	}

	var out string
	if ColorsEnabled() {
		out = renderColorReport(r, rows)
	} else {
		out = renderPlainReport(rows)
	}
	return out + "\n" + summaryLine(r)
}

func batchRow(b *model.BatchResult) []string {
	return []string{
		string(b.Type),
		fmt.Sprint(b.Total),
		fmt.Sprint(b.Succeeded),
		fmt.Sprint(b.Failed),
		b.Duration.Round(time.Millisecond).String(),
		truncate(batchNote(b), labelWidth()),
	}
}

func batchNote(b *model.BatchResult) string {
	var notes []string
	if b.Error != "" {
		notes = append(notes, b.Error)
	}
	if pp := b.Postprocess; pp != nil && pp.Pairs > 0 {
		note := fmt.Sprintf("refs %d/%d rewritten", pp.Rewritten, pp.Matches)
		if pp.Failed > 0 {
			note += fmt.Sprintf(", %d failed", pp.Failed)
		}
		notes = append(notes, note)
	}
	if b.PostprocessError != "" {
		notes = append(notes, "postprocess: "+b.PostprocessError)
	}
	return strings.Join(notes, "; ")
}

func renderColorReport(r *model.Report, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(reportHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row < 0 || row >= len(r.Batches) {
				return s
			}
			b := r.Batches[row]
			switch col {
			case 0:
				return s.Bold(true)
			case 2:
				return s.Foreground(lipgloss.Color("10"))
			case 3:
				if b.Failed > 0 {
					return s.Foreground(lipgloss.Color("9"))
				}
				return s.Foreground(lipgloss.Color("8"))
			case 5:
				if !b.OK() || b.PostprocessError != "" {
					return s.Foreground(lipgloss.Color("11"))
				}
				return s
			default:
				return s
			}
		})
	return t.Render()
}

func renderPlainReport(rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %6s %9s %7s %10s  %s\n", "Type", "Total", "Restored", "Failed", "Duration", "Note")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 80))
	for _, row := range rows {
		fmt.Fprintf(&b, "%-20s %6s %9s %7s %10s  %s\n", row[0], row[1], row[2], row[3], row[4], row[5])
	}
	return strings.TrimRight(b.String(), "\n")
}

func summaryLine(r *model.Report) string {
	succeeded, failed := r.Totals()
	line := fmt.Sprintf("Restored %d, failed %d", succeeded, failed)
	if len(r.Skipped) > 0 {
		skipped := make([]string, len(r.Skipped))
		for i, t := range r.Skipped {
			skipped[i] = string(t)
		}
		line += fmt.Sprintf(" (not in backup: %s)", strings.Join(skipped, ", "))
	}
	if !ColorsEnabled() {
		return line
	}
	color := lipgloss.Color("10")
	if r.HasFailures() {
		color = lipgloss.Color("11")
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(line)
}
