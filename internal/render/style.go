package render

import (
	"os"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

const (
	defaultTermWidth = 100
	minLabelWidth    = 24
)

// ColorsEnabled reports whether terminal colors should be used. NO_COLOR
// (any value) or TERM=dumb disables them.
func ColorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// StyledText applies style when colors are enabled.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// EmptyState renders a dimmed message with an optional hint. quiet drops
// the hint.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	result := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(message)
	if !quiet && hint != "" {
		result += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true).Render(hint)
	}
	return result
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

// labelWidth sizes free-text columns to a third of the terminal.
func labelWidth() int {
	return max(terminalWidth()/3, minLabelWidth)
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func statusColor(s model.RunStatus) lipgloss.Color {
	switch s {
	case model.RunCompleted:
		return lipgloss.Color("10")
	case model.RunPartial:
		return lipgloss.Color("11")
	case model.RunAborted:
		return lipgloss.Color("9")
	default:
		return lipgloss.Color("12")
	}
}

func statusIcon(s model.RunStatus) string {
	switch s {
	case model.RunCompleted:
		return "✔"
	case model.RunPartial:
		return "◐"
	case model.RunAborted:
		return "✘"
	default:
		return "○"
	}
}

func statusLabel(s model.RunStatus) string {
	return statusIcon(s) + " " + string(s)
}
