// Package api talks to the content platform's management API.
//
// Transport is the narrow request/response contract the restore core
// depends on. Client is the HTTP implementation used by the CLI.
package api

import (
	"context"
	"io"
	"net/url"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// Transport issues management API requests. Paths are relative to the API
// root, e.g. "spaces/123/stories". Response bodies are returned decoded,
// with numbers kept as json.Number.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) (map[string]any, error)
	// GetAll follows pagination and returns every item of the collection
	// found under the envelope named after the last path segment.
	GetAll(ctx context.Context, path string, query url.Values) ([]model.Resource, error)
	Post(ctx context.Context, path string, body map[string]any) (map[string]any, error)
	Put(ctx context.Context, path string, body map[string]any) (map[string]any, error)
}

// Uploader sends a file to a pre-signed storage URL outside the management
// API, as returned by an asset signature request.
type Uploader interface {
	Upload(ctx context.Context, postURL string, fields map[string]string, fileName string, file io.Reader) error
}
