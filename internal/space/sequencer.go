// Package space drives a full space restore: every resource type in
// dependency order, each through its own orchestrator, sharing one
// registry for the run.
package space

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
	"github.com/ALT-F4-LLC/spacerestore/internal/restore"
)

// Source yields the backed-up resources of each type.
type Source interface {
	// Has reports whether a backup exists for t.
	Has(t model.ResourceType) bool
	Load(t model.ResourceType) ([]model.Resource, error)
}

// Deps are handed to every Factory.
type Deps struct {
	Transport api.Transport
	Source    Source
}

// Factory builds the orchestrator of one resource type.
type Factory func(Deps) *restore.Orchestrator

// Event reports sequencer progress to an Observer.
type Event struct {
	Type   model.ResourceType
	Phase  Phase
	Total  int
	Result *model.BatchResult
	Plan   *planner.Plan
}

// Phase is the stage an Event reports.
type Phase string

const (
	PhaseSkipped  Phase = "skipped"
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
	PhasePlanned  Phase = "planned"
)

// Observer receives progress events. It runs on the restoring goroutine.
type Observer func(Event)

// ErrUnknownType is returned when a selected type has no factory.
var ErrUnknownType = errors.New("no restore configuration for resource type")

// Sequencer restores resource types in model.Order.
type Sequencer struct {
	deps      Deps
	factories map[model.ResourceType]Factory
	types     []model.ResourceType
	reg       *registry.Registry
	filter    map[model.ResourceType]map[int64]struct{}
	observer  Observer
	dryRun    bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithTypes restricts the run to types. Their relative order still follows
// model.Order.
func WithTypes(types ...model.ResourceType) Option {
	return func(s *Sequencer) {
		selected := make(map[model.ResourceType]struct{}, len(types))
		for _, t := range types {
			selected[t] = struct{}{}
		}
		s.types = selectInOrder(selected)
	}
}

// WithRegistry seeds the run with existing mappings, e.g. those of an
// earlier run being retried. The mappings are copied; reg itself is never
// written to.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Sequencer) {
		if reg != nil {
			s.reg.Merge(reg)
		}
	}
}

// WithFilter restricts each listed type to the resources whose old ids are
// given. Types missing from filter are skipped entirely.
func WithFilter(filter map[model.ResourceType][]int64) Option {
	return func(s *Sequencer) {
		s.filter = make(map[model.ResourceType]map[int64]struct{}, len(filter))
		for t, ids := range filter {
			set := make(map[int64]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			s.filter[t] = set
		}
	}
}

// WithObserver registers a progress callback.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.observer = o }
}

// WithDryRun makes Restore load and order every batch without restoring.
// Each batch is reported through the observer as a PhasePlanned event.
func WithDryRun() Option {
	return func(s *Sequencer) { s.dryRun = true }
}

// New returns a Sequencer over src and t. factories is the compile-time
// table of supported resource types; without WithTypes every type it
// covers is restored.
func New(src Source, t api.Transport, factories map[model.ResourceType]Factory, opts ...Option) *Sequencer {
	s := &Sequencer{
		deps:      Deps{Transport: t, Source: src},
		factories: factories,
		reg:       registry.New(),
	}
	for _, rt := range model.Order {
		if _, ok := factories[rt]; ok {
			s.types = append(s.types, rt)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the run's registry.
func (s *Sequencer) Registry() *registry.Registry {
	return s.reg
}

// Restore runs every selected type in order. Types without a backup are
// skipped. A type whose batch cannot run (empty batch, unreadable backup,
// ordering cycle) gets its error recorded in its BatchResult and the run
// moves on. The returned error is reserved for configuration mistakes
// found before any request is made and for context cancellation.
func (s *Sequencer) Restore(ctx context.Context, opts model.Options) (*model.Report, error) {
	report := &model.Report{SpaceID: opts.SpaceID, DryRun: s.dryRun, StartedAt: time.Now().UTC()}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	if err := s.validate(); err != nil {
		return report, err
	}

	for _, t := range s.types {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !s.deps.Source.Has(t) {
			report.Skipped = append(report.Skipped, t)
			s.notify(Event{Type: t, Phase: PhaseSkipped})
			continue
		}
		allow, filtered := s.filter[t]
		if s.filter != nil && !filtered {
			report.Skipped = append(report.Skipped, t)
			s.notify(Event{Type: t, Phase: PhaseSkipped})
			continue
		}

		typeCtx := logging.NewContextWithFields(ctx, logrus.Fields{"type": t})
		result, err := s.restoreType(typeCtx, t, allow, opts)
		if result != nil {
			report.Batches = append(report.Batches, result)
		}
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (s *Sequencer) restoreType(ctx context.Context, t model.ResourceType, allow map[int64]struct{}, opts model.Options) (*model.BatchResult, error) {
	log := logging.For(ctx)
	orch := s.factories[t](s.deps)

	resources, err := s.deps.Source.Load(t)
	if err != nil {
		result := &model.BatchResult{Type: t}
		result.SetErr(fmt.Errorf("loading %s: %w", t, err))
		log.WithError(err).Error("loading backup failed")
		s.notify(Event{Type: t, Phase: PhaseFinished, Result: result})
		return result, nil
	}
	if allow != nil {
		resources = keep(resources, allow)
	}

	if s.dryRun {
		return s.plan(ctx, t, orch, resources)
	}

	s.notify(Event{Type: t, Phase: PhaseStarted, Total: len(resources)})

	// Reuse the entry: Get keeps mappings seeded from an earlier run.
	s.reg.Get(t)

	result, err := orch.Restore(ctx, resources, opts, s.reg)
	if result == nil {
		result = &model.BatchResult{Type: t, Total: len(resources)}
	}
	if err != nil {
		result.SetErr(err)
		log.WithError(err).Error("batch aborted")
	}
	s.notify(Event{Type: t, Phase: PhaseFinished, Result: result})

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return result, err
	}
	return result, nil
}

func (s *Sequencer) plan(ctx context.Context, t model.ResourceType, orch *restore.Orchestrator, resources []model.Resource) (*model.BatchResult, error) {
	result := &model.BatchResult{Type: t, Total: len(resources)}
	if len(resources) == 0 {
		result.SetErr(fmt.Errorf("%s: %w", t, restore.ErrEmptyBatch))
		s.notify(Event{Type: t, Phase: PhasePlanned, Result: result})
		return result, nil
	}

	var sorter *planner.TopologicalSort
	if ts, ok := orch.Sorter.(planner.TopologicalSort); ok {
		sorter = &ts
	}
	p, err := planner.GeneratePlan(t, resources, sorter)
	if err != nil {
		result.SetErr(fmt.Errorf("ordering %s: %w", t, err))
		logging.For(ctx).WithError(err).Error("ordering failed")
	}

	s.notify(Event{Type: t, Phase: PhasePlanned, Total: len(resources), Result: result, Plan: p})
	return result, nil
}

func (s *Sequencer) validate() error {
	var unknown []string
	for _, t := range s.types {
		if _, ok := s.factories[t]; !ok {
			unknown = append(unknown, string(t))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownType, unknown)
	}
	return nil
}

func (s *Sequencer) notify(e Event) {
	if s.observer != nil {
		s.observer(e)
	}
}

func keep(resources []model.Resource, allow map[int64]struct{}) []model.Resource {
	out := make([]model.Resource, 0, len(allow))
	for _, r := range resources {
		if _, ok := allow[r.ID()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// selectInOrder returns the selected types in model.Order, followed by any
// selected types model.Order does not know, sorted, so that validation can
// report them.
func selectInOrder(selected map[model.ResourceType]struct{}) []model.ResourceType {
	types := model.SelectInOrder(selected)
	known := make(map[model.ResourceType]struct{}, len(types))
	for _, t := range types {
		known[t] = struct{}{}
	}

	var extra []model.ResourceType
	for t := range selected {
		if _, ok := known[t]; !ok {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(types, extra...)
}
