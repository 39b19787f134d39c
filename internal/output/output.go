package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/spacerestore/internal/render"
)

// Writer dispatches command output between a JSON envelope on stdout and
// human-readable text, with diagnostics on stderr.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// New returns a Writer bound to the process streams.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Success writes data as a JSON envelope, or message as text.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	writeHumanSuccess(w.Stdout, message)
}

// Error writes err and returns the exit code for code.
func (w *Writer) Error(err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, nil, err, code)
	} else {
		writeHumanError(w.Stderr, err)
	}
	return ExitCodeForError(code)
}

// Partial reports a command that produced a result but did not fully
// succeed. JSON mode emits one error envelope that still carries data;
// human mode prints message to stdout and err to stderr.
func (w *Writer) Partial(data any, message string, err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, data, err, code)
		return ExitCodeForError(code)
	}
	if message != "" {
		fmt.Fprintln(w.Stdout, message)
	}
	writeHumanError(w.Stderr, err)
	return ExitCodeForError(code)
}

// Info writes a progress line to stderr. It is silent in quiet and JSON
// modes.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if render.ColorsEnabled() {
		text := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(msg)
		fmt.Fprintf(w.Stderr, "%s %s\n", glyph("8", "ℹ", false), text)
		return
	}
	fmt.Fprintln(w.Stderr, msg)
}

// Warn writes a warning to stderr, even in quiet mode. JSON mode keeps
// stdout as the only channel and drops it.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if render.ColorsEnabled() {
		label := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Render("Warning:")
		fmt.Fprintf(w.Stderr, "%s %s %s\n", glyph("3", "⚠", true), label, msg)
		return
	}
	fmt.Fprintf(w.Stderr, "Warning: %s\n", msg)
}
