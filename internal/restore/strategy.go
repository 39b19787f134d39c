// Package restore implements the per-resource upsert state machine and the
// orchestrator that drives one resource type's batch through it.
package restore

import (
	"context"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

// Strategy knows the request and response shapes of one resource type.
type Strategy interface {
	// BuildPayload returns a new create/update request body for r, without
	// the publish flag.
	BuildPayload(r model.Resource) map[string]any
	CreateEndpoint(opts model.Options) string
	// UpdateEndpoint addresses existing, a resource already present in the
	// target space.
	UpdateEndpoint(existing model.Resource, opts model.Options) string
	DecodeResponse(body map[string]any) (model.Resource, error)
}

// Finder locates the target-space resource that a conflicting create
// collided with. Strategies without a Finder cannot recover from conflicts.
type Finder interface {
	FindExisting(ctx context.Context, t api.Transport, r model.Resource, opts model.Options) (model.Resource, bool, error)
}

// ConflictClassifier overrides IsConflict for a strategy.
type ConflictClassifier interface {
	IsConflict(err error) bool
}

// Creator replaces the single create request with a custom flow, e.g. a
// signed upload. Its errors go through the same conflict handling.
type Creator interface {
	Create(ctx context.Context, t api.Transport, r model.Resource, opts model.Options) (model.Resource, error)
}

// Upserter restores a single resource and returns it as created or updated
// in the target space.
type Upserter interface {
	Restore(ctx context.Context, r model.Resource, opts model.Options) (model.Resource, error)
}

// Sorter orders a batch before it is restored.
type Sorter interface {
	Sort(resources []model.Resource) ([]model.Resource, error)
}

// Preprocessor transforms one resource before it is submitted. It must not
// modify its input.
type Preprocessor interface {
	Preprocess(r model.Resource, reg *registry.Registry) model.Resource
}

// Postprocessor runs once after every resource of a batch was attempted.
// resources is the batch in restore order; pairs holds the uuid mappings
// recorded by this batch only, sorted by old uuid. The summary is reported
// even when err is non-nil.
type Postprocessor interface {
	PostProcess(ctx context.Context, resources []model.Resource, pairs []registry.UUIDPair, opts model.Options) (*model.PostprocessSummary, error)
}
