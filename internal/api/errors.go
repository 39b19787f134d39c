package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// *APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	return &APIError{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: messageFromBody(status, body),
		Body:    body,
	}
}

// messageFromBody flattens the API's error payloads into one line. Errors
// arrive as a bare string, a list of strings, {"error": "..."} or a map of
// field name to messages.
func messageFromBody(status int, body []byte) string {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return http.StatusText(status)
	}

	var parts []string
	switch v := decoded.(type) {
	case string:
		parts = append(parts, v)
	case []any:
		parts = append(parts, flatten(v)...)
	case map[string]any:
		for _, key := range []string{"error", "message"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, msg := range flatten(v[k]) {
				parts = append(parts, k+" "+msg)
			}
		}
	}

	if len(parts) == 0 {
		return http.StatusText(status)
	}
	return strings.Join(parts, "; ")
}

func flatten(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []any:
		var out []string
		for _, item := range x {
			out = append(out, flatten(item)...)
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(x)}
	}
}
