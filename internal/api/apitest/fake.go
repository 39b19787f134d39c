// Package apitest provides an in-memory api.Transport for tests.
package apitest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// MethodGetAll tags calls made through Transport.GetAll.
const MethodGetAll = "GETALL"

// Call is one request received by a Fake.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// Response is a canned reply. Items answers GetAll, Body the other methods.
type Response struct {
	Body  map[string]any
	Items []model.Resource
	Err   error
}

// Upload is one file received by Fake.Upload.
type Upload struct {
	URL      string
	Fields   map[string]string
	FileName string
	Data     []byte
}

// Fake records every call and answers from responses registered with On.
// Requests without a registered response fail with a 404 *api.APIError.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string][]Response
	uploads   []Upload

	// UploadErr is returned by Upload when set.
	UploadErr error
}

var (
	_ api.Transport = (*Fake)(nil)
	_ api.Uploader  = (*Fake)(nil)
)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{responses: make(map[string][]Response)}
}

// On queues responses for method and path. Responses are consumed in order;
// the last one repeats once the queue is drained.
func (f *Fake) On(method, path string, responses ...Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.responses[key] = append(f.responses[key], responses...)
	return f
}

// Calls returns every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns recorded calls matching method and path. An empty path
// matches every path.
func (f *Fake) CallsTo(method, path string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Method == method && (path == "" || c.Path == path) {
			out = append(out, c)
		}
	}
	return out
}

// Uploads returns every recorded upload.
func (f *Fake) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

func (f *Fake) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	r := f.record(http.MethodGet, path, query, nil)
	return r.Body, r.Err
}

func (f *Fake) GetAll(ctx context.Context, path string, query url.Values) ([]model.Resource, error) {
	r := f.record(MethodGetAll, path, query, nil)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Items == nil {
		return []model.Resource{}, nil
	}
	return r.Items, nil
}

func (f *Fake) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	r := f.record(http.MethodPost, path, nil, body)
	return r.Body, r.Err
}

func (f *Fake) Put(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	r := f.record(http.MethodPut, path, nil, body)
	return r.Body, r.Err
}

func (f *Fake) Upload(ctx context.Context, postURL string, fields map[string]string, fileName string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, Upload{URL: postURL, Fields: fields, FileName: fileName, Data: data})
	return f.UploadErr
}

func (f *Fake) record(method, path string, query url.Values, body map[string]any) Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Method: method, Path: path, Query: query, Body: body})

	key := method + " " + path
	queue := f.responses[key]
	if len(queue) == 0 {
		return Response{Err: &api.APIError{Method: method, Path: path, Status: http.StatusNotFound, Message: "Not Found"}}
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}
	return r
}
