// Package resources configures the restore of every supported resource
// type: endpoints, envelopes, ordering, field remapping and conflict
// lookup.
package resources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/restore"
)

// Endpoint is the restore.Strategy shared by every type whose resources are
// created with a single POST to spaces/<space>/<Collection>.
type Endpoint struct {
	Collection string         // path segment under the space, e.g. "stories"
	Envelope   string         // request/response key, e.g. "story"
	Strip      []string       // fields removed before sending
	Extra      map[string]any // request parameters sent next to the envelope
	Finder     restore.Finder // locates conflicting resources; nil means never found
}

var (
	_ restore.Strategy = Endpoint{}
	_ restore.Finder   = Endpoint{}
)

func (e Endpoint) BuildPayload(r model.Resource) map[string]any {
	payload := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		payload[k] = v
	}
	payload[e.Envelope] = r.Without(e.Strip...).Fields()
	return payload
}

func (e Endpoint) CreateEndpoint(opts model.Options) string {
	return fmt.Sprintf("spaces/%s/%s", opts.SpaceID, e.Collection)
}

func (e Endpoint) UpdateEndpoint(existing model.Resource, opts model.Options) string {
	return fmt.Sprintf("spaces/%s/%s/%d", opts.SpaceID, e.Collection, existing.ID())
}

// DecodeResponse unwraps the resource from its envelope. Bodies without the
// envelope are accepted when they carry an id at the top level.
func (e Endpoint) DecodeResponse(body map[string]any) (model.Resource, error) {
	return decodeEnvelope(body, e.Envelope)
}

func (e Endpoint) FindExisting(ctx context.Context, t api.Transport, r model.Resource, opts model.Options) (model.Resource, bool, error) {
	if e.Finder == nil {
		return model.Resource{}, false, nil
	}
	return e.Finder.FindExisting(ctx, t, r, opts)
}

func decodeEnvelope(body map[string]any, envelope string) (model.Resource, error) {
	var r model.Resource
	if inner, ok := body[envelope].(map[string]any); ok {
		r = model.NewResource(inner)
	} else {
		r = model.NewResource(body)
	}
	if r.ID() == 0 {
		return model.Resource{}, fmt.Errorf("response has no %s id", envelope)
	}
	return r, nil
}

// FieldFinder searches a collection with SearchParam=<Field value> and
// returns the first item whose Field matches exactly.
type FieldFinder struct {
	Collection  string
	Field       string
	SearchParam string
}

func (f FieldFinder) FindExisting(ctx context.Context, t api.Transport, r model.Resource, opts model.Options) (model.Resource, bool, error) {
	value, ok := r.String(f.Field)
	if !ok || value == "" {
		return model.Resource{}, false, nil
	}

	items, err := t.GetAll(ctx, fmt.Sprintf("spaces/%s/%s", opts.SpaceID, f.Collection), url.Values{f.SearchParam: {value}})
	if err != nil {
		return model.Resource{}, false, err
	}
	for _, item := range items {
		if v, _ := item.String(f.Field); v == value {
			return item, true, nil
		}
	}
	return model.Resource{}, false, nil
}

// SlugFinder looks a story up by its full slug.
type SlugFinder struct{}

func (SlugFinder) FindExisting(ctx context.Context, t api.Transport, r model.Resource, opts model.Options) (model.Resource, bool, error) {
	slug, ok := r.String("full_slug")
	if !ok || slug == "" {
		return model.Resource{}, false, nil
	}

	resp, err := t.Get(ctx, fmt.Sprintf("spaces/%s/stories", opts.SpaceID), url.Values{"by_slugs": {slug}})
	if err != nil {
		return model.Resource{}, false, err
	}
	stories, _ := resp["stories"].([]any)
	if len(stories) == 0 {
		return model.Resource{}, false, nil
	}
	first, ok := stories[0].(map[string]any)
	if !ok {
		return model.Resource{}, false, nil
	}
	return model.NewResource(first), true, nil
}
