package output

import (
	"io"

	"github.com/goccy/go-json"
)

// ErrorCode is the machine-readable classification of a failed command.
type ErrorCode string

const (
	ErrGeneral     ErrorCode = "GENERAL_ERROR"
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrConflict    ErrorCode = "CONFLICT"
	ErrPartial     ErrorCode = "PARTIAL_RESTORE"
	ErrInterrupted ErrorCode = "INTERRUPTED"
)

const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitNotFound    = 2
	ExitValidation  = 3
	ExitConflict    = 4
	ExitPartial     = 5
	ExitInterrupted = 130
)

// ExitCodeForError maps an ErrorCode to the process exit status.
func ExitCodeForError(code ErrorCode) int {
	switch code {
	case ErrNotFound:
		return ExitNotFound
	case ErrValidation:
		return ExitValidation
	case ErrConflict:
		return ExitConflict
	case ErrPartial:
		return ExitPartial
	case ErrInterrupted:
		return ExitInterrupted
	default:
		return ExitGeneral
	}
}

type successEnvelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// errorEnvelope also carries data for partial results, where the command
// produced a report but did not fully succeed.
type errorEnvelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

func encoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func writeJSONSuccess(w io.Writer, data any, message string) {
	_ = encoder(w).Encode(successEnvelope{
		OK:      true,
		Data:    data,
		Message: message,
	})
}

func writeJSONError(w io.Writer, data any, err error, code ErrorCode) {
	_ = encoder(w).Encode(errorEnvelope{
		OK:    false,
		Data:  data,
		Error: err.Error(),
		Code:  code,
	})
}
