package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/spacerestore/internal/render"
)

func glyph(color, symbol string, bold bool) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(bold).Render(symbol)
}

// writeHumanSuccess prints message with a check mark. Multi-line content
// such as tables is printed untouched.
func writeHumanSuccess(w io.Writer, message string) {
	if message == "" {
		return
	}
	if strings.Contains(message, "\n") {
		fmt.Fprintln(w, message)
		return
	}
	if render.ColorsEnabled() {
		fmt.Fprintf(w, "%s %s\n", glyph("2", "✔", false), message)
		return
	}
	fmt.Fprintln(w, message)
}

func writeHumanError(w io.Writer, err error) {
	if render.ColorsEnabled() {
		label := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).Render("Error:")
		fmt.Fprintf(w, "%s %s %s\n", glyph("1", "✘", true), label, err)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err)
}
