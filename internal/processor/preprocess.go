// Package processor holds the per-resource preprocessors and the
// collection-wide postprocessors applied around an upsert batch.
package processor

import (
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

// Preprocessor transforms a resource before it is submitted. Implementations
// must return a new value and never modify r.
type Preprocessor interface {
	Preprocess(r model.Resource, reg *registry.Registry) model.Resource
}

// FieldReplacer rewrites Field through the Kind map of Target's registry
// entry. Target may differ from the type of the resources being processed.
type FieldReplacer struct {
	Target model.ResourceType
	Field  string
	Kind   registry.MapKind
}

// ParentID remaps parent_id through t's id map.
func ParentID(t model.ResourceType) FieldReplacer {
	return FieldReplacer{Target: t, Field: "parent_id", Kind: registry.IDs}
}

// ParentUUID remaps parent_uuid through t's uuid map.
func ParentUUID(t model.ResourceType) FieldReplacer {
	return FieldReplacer{Target: t, Field: "parent_uuid", Kind: registry.UUIDs}
}

// Preprocess returns r with Field replaced by its mapped value. r is
// returned unchanged when the field is absent or falsy, or when no mapping
// exists yet.
func (p FieldReplacer) Preprocess(r model.Resource, reg *registry.Registry) model.Resource {
	if !r.Truthy(p.Field) || reg == nil || !reg.Has(p.Target) {
		return r
	}

	value, _ := r.Get(p.Field)
	mapped, ok := reg.Get(p.Target).Lookup(p.Kind, value)
	if !ok {
		return r
	}
	return r.With(p.Field, mapped)
}

// Chain applies preprocessors in order, each one receiving the previous
// one's output.
type Chain []Preprocessor

func (c Chain) Preprocess(r model.Resource, reg *registry.Registry) model.Resource {
	for _, p := range c {
		r = p.Preprocess(r, reg)
	}
	return r
}
