package restore

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

// Orchestrator restores the batch of one resource type: sort, preprocess,
// upsert, record mappings, then postprocess once.
type Orchestrator struct {
	Type          model.ResourceType
	Upserter      Upserter
	Sorter        Sorter         // nil keeps batch order
	Preprocessors []Preprocessor // applied in order, each on the previous output
	Postprocessor Postprocessor  // optional
}

// Restore restores resources one at a time. Per-resource failures are
// recorded in the result and never stop the batch; the returned error is
// reserved for an empty batch, an ordering failure or a cancelled context.
//
// The postprocessor runs after every resource was attempted, however many
// failed. It sees only the uuid mappings recorded by this batch, not those
// seeded from an earlier run. Its summary and error are reported in
// BatchResult.Postprocess and BatchResult.PostprocessError.
func (o *Orchestrator) Restore(ctx context.Context, resources []model.Resource, opts model.Options, reg *registry.Registry) (*model.BatchResult, error) {
	start := time.Now()
	result := &model.BatchResult{Type: o.Type, Total: len(resources)}
	defer func() { result.Duration = time.Since(start) }()

	ctx = logging.NewContextWithFields(ctx, logrus.Fields{"type": o.Type})
	log := logging.For(ctx)

	if len(resources) == 0 {
		return result, fmt.Errorf("%s: %w", o.Type, ErrEmptyBatch)
	}

	sorted := resources
	if o.Sorter != nil {
		var err error
		sorted, err = o.Sorter.Sort(resources)
		if err != nil {
			return result, fmt.Errorf("ordering %s: %w", o.Type, err)
		}
	}

	entry := reg.Get(o.Type)
	recorded := registry.NewEntry()
	for _, r := range sorted {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		processed := r
		for _, p := range o.Preprocessors {
			processed = p.Preprocess(processed, reg)
		}

		restored, err := o.Upserter.Restore(ctx, processed, opts)
		if err != nil {
			failure := model.NewFailure(o.Type, r, err)
			result.Failures = append(result.Failures, failure)
			result.Failed++
			log.WithFields(logrus.Fields{"resource": r.ID(), "label": r.Label()}).WithError(err).Warn("restore failed")
			continue
		}

		entry.Record(r.ID(), restored.ID(), r.UUID(), restored.UUID())
		recorded.Record(r.ID(), restored.ID(), r.UUID(), restored.UUID())
		result.Succeeded++
	}

	if o.Postprocessor != nil {
		summary, err := o.Postprocessor.PostProcess(ctx, sorted, recorded.UUIDPairs(), opts)
		result.Postprocess = summary
		if err != nil {
			result.PostprocessError = err.Error()
			log.WithError(err).Warn("postprocessing finished with errors")
		}
	}

	log.WithFields(logrus.Fields{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("batch finished")

	return result, nil
}
