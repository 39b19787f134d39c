package space

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
	"github.com/ALT-F4-LLC/spacerestore/internal/processor"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
	"github.com/ALT-F4-LLC/spacerestore/internal/restore"
)

var opts = model.Options{SpaceID: "42", BackupPath: "/backup"}

type memSource struct {
	data    map[model.ResourceType][]model.Resource
	loadErr map[model.ResourceType]error
}

func (m memSource) Has(t model.ResourceType) bool {
	_, ok := m.data[t]
	return ok
}

func (m memSource) Load(t model.ResourceType) ([]model.Resource, error) {
	if err := m.loadErr[t]; err != nil {
		return nil, err
	}
	return m.data[t], nil
}

// journal records every upsert across types.
type journal struct {
	entries []string
	seen    map[model.ResourceType][]model.Resource
}

type journalUpserter struct {
	t model.ResourceType
	j *journal
}

func (u journalUpserter) Restore(ctx context.Context, r model.Resource, opts model.Options) (model.Resource, error) {
	u.j.entries = append(u.j.entries, fmt.Sprintf("%s:%d", u.t, r.ID()))
	if u.j.seen == nil {
		u.j.seen = make(map[model.ResourceType][]model.Resource)
	}
	u.j.seen[u.t] = append(u.j.seen[u.t], r)
	return model.NewResource(map[string]any{"id": r.ID() + 1000, "uuid": "new-" + r.UUID()}), nil
}

func factories(j *journal) map[model.ResourceType]Factory {
	simple := func(t model.ResourceType, pre ...restore.Preprocessor) Factory {
		return func(d Deps) *restore.Orchestrator {
			return &restore.Orchestrator{Type: t, Upserter: journalUpserter{t: t, j: j}, Preprocessors: pre}
		}
	}
	return map[model.ResourceType]Factory{
		model.TypeWebhooks:     simple(model.TypeWebhooks),
		model.TypeAssetFolders: simple(model.TypeAssetFolders),
		model.TypeAssets: simple(model.TypeAssets, processor.FieldReplacer{
			Target: model.TypeAssetFolders, Field: "asset_folder_id", Kind: registry.IDs,
		}),
		model.TypeStories: func(d Deps) *restore.Orchestrator {
			return &restore.Orchestrator{
				Type:          model.TypeStories,
				Upserter:      journalUpserter{t: model.TypeStories, j: j},
				Sorter:        planner.TopologicalSort{},
				Preprocessors: []restore.Preprocessor{processor.ParentID(model.TypeStories)},
			}
		},
	}
}

func res(id int, extra ...any) model.Resource {
	fields := map[string]any{"id": id, "uuid": fmt.Sprintf("u%d", id)}
	for i := 0; i+1 < len(extra); i += 2 {
		fields[extra[i].(string)] = extra[i+1]
	}
	return model.NewResource(fields)
}

func TestSequencerFixedOrderAndCrossTypeMapping(t *testing.T) {
	j := &journal{}
	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeStories:      {res(2, "parent_id", 1), res(1)},
		model.TypeAssets:       {res(30, "asset_folder_id", 20)},
		model.TypeAssetFolders: {res(20)},
	}}

	seq := New(src, nil, factories(j))
	report, err := seq.Restore(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"asset-folders:20", "assets:30", "stories:1", "stories:2"}, j.entries)
	assert.Equal(t, []model.ResourceType{model.TypeWebhooks}, report.Skipped)
	require.Len(t, report.Batches, 3)

	folder, _ := j.seen[model.TypeAssets][0].Int64("asset_folder_id")
	assert.EqualValues(t, 1020, folder)

	id, ok := seq.Registry().Get(model.TypeStories).NewID(2)
	assert.True(t, ok)
	assert.EqualValues(t, 1002, id)
	assert.False(t, report.HasFailures())
}

func TestSequencerSubsetKeepsOrder(t *testing.T) {
	j := &journal{}
	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeWebhooks: {res(1)},
		model.TypeStories:  {res(5)},
		model.TypeAssets:   {res(9)},
	}}

	_, err := New(src, nil, factories(j), WithTypes(model.TypeStories, model.TypeWebhooks)).
		Restore(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"webhooks:1", "stories:5"}, j.entries)
}

func TestSequencerUnknownTypeFailsBeforeRestoring(t *testing.T) {
	j := &journal{}
	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeWebhooks: {res(1)},
	}}

	_, err := New(src, nil, factories(j), WithTypes(model.TypeWebhooks, model.TypeCollaborators)).
		Restore(context.Background(), opts)
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Empty(t, j.entries)
}

func TestSequencerRecordsTypeErrorsAndContinues(t *testing.T) {
	j := &journal{}
	loadErr := errors.New("corrupt backup")
	src := memSource{
		data: map[model.ResourceType][]model.Resource{
			model.TypeWebhooks:     {},
			model.TypeAssetFolders: {res(1), res(2)},
			model.TypeAssets:       {res(3)},
			model.TypeStories:      {res(1, "parent_id", 2), res(2, "parent_id", 1)},
		},
		loadErr: map[model.ResourceType]error{model.TypeAssetFolders: loadErr},
	}

	report, err := New(src, nil, factories(j)).Restore(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.Batches, 4)

	assert.ErrorIs(t, report.Batches[0].Err, restore.ErrEmptyBatch)
	assert.ErrorIs(t, report.Batches[1].Err, loadErr)
	assert.True(t, report.Batches[2].OK())

	var cycleErr *planner.CycleError
	assert.ErrorAs(t, report.Batches[3].Err, &cycleErr)

	assert.Equal(t, []string{"assets:3"}, j.entries)
	assert.True(t, report.HasFailures())
}

func TestSequencerFilterAndSeededRegistry(t *testing.T) {
	j := &journal{}
	seed := registry.New()
	seed.Get(model.TypeStories).Record(1, 501, "u1", "new-u1")

	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeWebhooks: {res(1)},
		model.TypeStories:  {res(1), res(2, "parent_id", 1), res(3)},
	}}

	seq := New(src, nil, factories(j),
		WithRegistry(seed),
		WithFilter(map[model.ResourceType][]int64{model.TypeStories: {2}}),
	)
	report, err := seq.Restore(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"stories:2"}, j.entries)
	parent, _ := j.seen[model.TypeStories][0].Int64("parent_id")
	assert.EqualValues(t, 501, parent, "parent resolves through the seeded mapping")
	assert.Contains(t, report.Skipped, model.TypeWebhooks)

	entry := seq.Registry().Get(model.TypeStories)
	assert.Len(t, entry.IDs, 2)
	assert.Len(t, seed.Get(model.TypeStories).IDs, 1, "seed registry is copied, not written to")
}

func TestSequencerDryRunPlansWithoutRestoring(t *testing.T) {
	j := &journal{}
	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeStories: {res(2, "parent_id", 1), res(1)},
		model.TypeAssets:  {res(9)},
	}}

	var plans []*planner.Plan
	observer := func(e Event) {
		if e.Phase == PhasePlanned && e.Plan != nil {
			plans = append(plans, e.Plan)
		}
	}

	report, err := New(src, nil, factories(j), WithDryRun(), WithObserver(observer)).
		Restore(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Empty(t, j.entries)
	require.Len(t, plans, 2)
	assert.Equal(t, model.TypeAssets, plans[0].Type)
	assert.Equal(t, 1, plans[0].TotalPhases)
	assert.Equal(t, 2, plans[1].TotalPhases)
}

func TestSequencerObserverEvents(t *testing.T) {
	j := &journal{}
	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeWebhooks: {res(1), res(2)},
	}}

	var phases []Phase
	_, err := New(src, nil, factories(j), WithTypes(model.TypeWebhooks, model.TypeAssets),
		WithObserver(func(e Event) { phases = append(phases, e.Phase) }),
	).Restore(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseStarted, PhaseFinished, PhaseSkipped}, phases)
}

func TestSequencerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j := &journal{}
	src := memSource{data: map[model.ResourceType][]model.Resource{
		model.TypeWebhooks: {res(1)},
	}}

	_, err := New(src, nil, factories(j)).Restore(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, j.entries)
}
