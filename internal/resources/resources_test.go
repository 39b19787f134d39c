package resources

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/api/apitest"
	"github.com/ALT-F4-LLC/spacerestore/internal/backup"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
	"github.com/ALT-F4-LLC/spacerestore/internal/processor"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
	"github.com/ALT-F4-LLC/spacerestore/internal/restore"
	"github.com/ALT-F4-LLC/spacerestore/internal/space"
)

var opts = model.Options{SpaceID: "42"}

func TestFactoriesCoverEveryType(t *testing.T) {
	f := Factories()
	for _, rt := range model.Order {
		factory, ok := f[rt]
		require.True(t, ok, "missing factory for %s", rt)

		o := factory(space.Deps{Transport: apitest.New()})
		require.NotNil(t, o)
		assert.Equal(t, rt, o.Type)
		assert.NotNil(t, o.Upserter)
	}
}

func TestStoriesAreOrderedAndRewritten(t *testing.T) {
	o := Factories()[model.TypeStories](space.Deps{Transport: apitest.New()})
	_, ok := o.Sorter.(planner.TopologicalSort)
	assert.True(t, ok)
	require.Len(t, o.Preprocessors, 1)
	chain, ok := o.Preprocessors[0].(processor.Chain)
	require.True(t, ok)
	assert.Len(t, chain, 2)
	assert.NotNil(t, o.Postprocessor)
}

func TestStoriesRetryRewritesOnlyRestoredReferences(t *testing.T) {
	reg := registry.New()
	seeded := reg.Get(model.TypeStories)
	for i := 1; i <= 50; i++ {
		seeded.Record(int64(i), int64(i+1000), fmt.Sprintf("earlier-%02d", i), fmt.Sprintf("earlier-new-%02d", i))
	}

	fake := apitest.New().
		On(http.MethodPost, "spaces/42/stories", apitest.Response{
			Body: map[string]any{"story": map[string]any{"id": 977, "uuid": "retried-new"}},
		}).
		On(apitest.MethodGetAll, "spaces/42/stories", apitest.Response{})

	o := Factories()[model.TypeStories](space.Deps{Transport: fake})
	story := model.NewResource(map[string]any{"id": 77, "uuid": "retried-old", "full_slug": "retried", "parent_id": nil})

	result, err := o.Restore(context.Background(), []model.Resource{story}, opts, reg)
	require.NoError(t, err)
	assert.True(t, result.OK())

	searches := fake.CallsTo(apitest.MethodGetAll, "spaces/42/stories")
	require.Len(t, searches, 1, "mappings from the earlier run are not searched again")
	assert.Equal(t, "retried-old", searches[0].Query.Get("reference_search"))

	require.NotNil(t, result.Postprocess)
	assert.Equal(t, 1, result.Postprocess.Pairs)
	assert.Len(t, reg.Get(model.TypeStories).UUIDs, 51)
}

func TestEndpointBuildPayload(t *testing.T) {
	e := Endpoint{Collection: "webhook_endpoints", Envelope: "webhook_endpoint", Strip: []string{"secret"}, Extra: map[string]any{"x": 1}}
	r := model.NewResource(map[string]any{"id": 1, "name": "hook", "secret": "s3cret"})

	payload := e.BuildPayload(r)
	inner := payload["webhook_endpoint"].(map[string]any)
	assert.Equal(t, "hook", inner["name"])
	assert.NotContains(t, inner, "secret")
	assert.Equal(t, 1, payload["x"])

	payload["publish"] = 1
	assert.NotContains(t, e.Extra, "publish", "payload must not alias Extra")
	assert.True(t, r.Has("secret"), "input untouched")
}

func TestEndpointURLs(t *testing.T) {
	e := Endpoint{Collection: "stories", Envelope: "story"}
	assert.Equal(t, "spaces/42/stories", e.CreateEndpoint(opts))
	assert.Equal(t, "spaces/42/stories/900", e.UpdateEndpoint(model.NewResource(map[string]any{"id": 900}), opts))
}

func TestEndpointDecodeResponse(t *testing.T) {
	e := Endpoint{Envelope: "api_key"}

	r, err := e.DecodeResponse(map[string]any{"api_key": map[string]any{"id": 5, "uuid": "n"}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, r.ID())

	r, err = e.DecodeResponse(map[string]any{"id": 6})
	require.NoError(t, err)
	assert.EqualValues(t, 6, r.ID())

	_, err = e.DecodeResponse(map[string]any{"other": true})
	require.Error(t, err)
}

func TestFieldFinderExactMatch(t *testing.T) {
	fake := apitest.New().On(apitest.MethodGetAll, "spaces/42/components", apitest.Response{
		Items: []model.Resource{
			model.NewResource(map[string]any{"id": 1, "name": "teaser-large"}),
			model.NewResource(map[string]any{"id": 2, "name": "teaser"}),
		},
	})

	f := FieldFinder{Collection: "components", Field: "name", SearchParam: "search"}
	got, found, err := f.FindExisting(context.Background(), fake, model.NewResource(map[string]any{"name": "teaser"}), opts)
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 2, got.ID())
	assert.Equal(t, "teaser", fake.CallsTo(apitest.MethodGetAll, "")[0].Query.Get("search"))

	_, found, err = f.FindExisting(context.Background(), fake, model.NewResource(map[string]any{"id": 3}), opts)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSlugFinder(t *testing.T) {
	fake := apitest.New().On(http.MethodGet, "spaces/42/stories", apitest.Response{
		Body: map[string]any{"stories": []any{map[string]any{"id": 77, "full_slug": "blog/post"}}},
	})

	got, found, err := SlugFinder{}.FindExisting(context.Background(), fake, model.NewResource(map[string]any{"full_slug": "blog/post"}), opts)
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 77, got.ID())
	assert.Equal(t, "blog/post", fake.CallsTo(http.MethodGet, "")[0].Query.Get("by_slugs"))
}

func TestAssetsSignedUpload(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, backup.AssetFilesDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, backup.AssetFilesDir, "12.png"), []byte("PNG"), 0o644))

	fake := apitest.New().
		On(http.MethodPost, "spaces/42/assets", apitest.Response{Body: map[string]any{
			"id": 900, "post_url": "https://upload.example", "fields": map[string]any{"key": "k1"},
		}}).
		On(http.MethodGet, "spaces/42/assets/900/finish_upload", apitest.Response{Body: map[string]any{
			"id": 900, "filename": "https://a.example/f/logo.png",
		}})

	o := Factories()[model.TypeAssets](space.Deps{Transport: fake})
	asset := model.NewResource(map[string]any{"id": 12, "filename": "https://old.example/logo.png", "short_filename": "logo.png"})

	got, err := o.Upserter.Restore(context.Background(), asset, model.Options{SpaceID: "42", BackupPath: root})
	require.NoError(t, err)
	assert.EqualValues(t, 900, got.ID())

	posts := fake.CallsTo(http.MethodPost, "")
	require.Len(t, posts, 1)
	assert.NotContains(t, posts[0].Body, "id")
	assert.Equal(t, 1, posts[0].Body["validate_upload"])

	uploads := fake.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "https://upload.example", uploads[0].URL)
	assert.Equal(t, "logo.png", uploads[0].FileName)
	assert.Equal(t, "k1", uploads[0].Fields["key"])
	assert.Equal(t, "PNG", string(uploads[0].Data))
}

func TestAssetsMissingFileFailsBeforeRequest(t *testing.T) {
	fake := apitest.New()
	o := Factories()[model.TypeAssets](space.Deps{Transport: fake})

	_, err := o.Upserter.Restore(context.Background(),
		model.NewResource(map[string]any{"id": 12, "filename": "logo.png"}),
		model.Options{SpaceID: "42", BackupPath: t.TempDir()})
	require.Error(t, err)
	assert.Empty(t, fake.Calls())
}

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSpaceRestoreEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "datasources", "1.json"), `{"id": 1, "uuid": "ds-old", "slug": "colors", "name": "Colors"}`)
	writeJSON(t, filepath.Join(root, "datasource-entries", "10.json"), `{"id": 10, "datasource_id": 1, "name": "red", "value": "#f00"}`)
	writeJSON(t, filepath.Join(root, "stories", "all.json"), `[
		{"id": 101, "uuid": "child-old", "full_slug": "home/child", "parent_id": 100, "content": {"link": "home-old"}},
		{"id": 100, "uuid": "home-old", "full_slug": "home", "parent_id": null}
	]`)

	fake := apitest.New().
		On(http.MethodPost, "spaces/42/datasources", apitest.Response{
			Err: &apiConflict,
		}).
		On(apitest.MethodGetAll, "spaces/42/datasources", apitest.Response{
			Items: []model.Resource{model.NewResource(map[string]any{"id": 501, "slug": "colors"})},
		}).
		On(http.MethodPut, "spaces/42/datasources/501", apitest.Response{
			Body: map[string]any{"datasource": map[string]any{"id": 501, "uuid": "ds-new"}},
		}).
		On(http.MethodPost, "spaces/42/datasource_entries", apitest.Response{
			Body: map[string]any{"datasource_entry": map[string]any{"id": 510}},
		}).
		On(http.MethodPost, "spaces/42/stories",
			apitest.Response{Body: map[string]any{"story": map[string]any{"id": 900, "uuid": "home-new"}}},
			apitest.Response{Body: map[string]any{"story": map[string]any{"id": 901, "uuid": "child-new"}}},
		).
		On(apitest.MethodGetAll, "spaces/42/stories",
			apitest.Response{},
			apitest.Response{Items: []model.Resource{model.NewResource(map[string]any{"id": 901})}},
		).
		On(http.MethodGet, "spaces/42/stories/901", apitest.Response{
			Body: map[string]any{"story": map[string]any{"id": 901, "content": map[string]any{"link": "home-old"}}},
		}).
		On(http.MethodPut, "spaces/42/stories/901", apitest.Response{Body: map[string]any{}})

	src, err := backup.Open(root)
	require.NoError(t, err)

	seq := space.New(src, fake, Factories())
	report, err := seq.Restore(context.Background(), model.Options{SpaceID: "42", BackupPath: root})
	require.NoError(t, err)

	succeeded, failed := report.Totals()
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 0, failed)

	entryPosts := fake.CallsTo(http.MethodPost, "spaces/42/datasource_entries")
	require.Len(t, entryPosts, 1)
	entry := entryPosts[0].Body["datasource_entry"].(map[string]any)
	assert.EqualValues(t, 501, entry["datasource_id"])

	storyPosts := fake.CallsTo(http.MethodPost, "spaces/42/stories")
	require.Len(t, storyPosts, 2)
	child := storyPosts[1].Body["story"].(map[string]any)
	assert.EqualValues(t, 900, child["parent_id"])
	assert.Equal(t, 1, storyPosts[1].Body["force_update"])

	puts := fake.CallsTo(http.MethodPut, "spaces/42/stories/901")
	require.Len(t, puts, 1)
	content := puts[0].Body["story"].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, "home-new", content["link"])

	reg := seq.Registry()
	newID, _ := reg.Get(model.TypeDatasources).NewID(1)
	assert.EqualValues(t, 501, newID)
	newUUID, _ := reg.Get(model.TypeStories).NewUUID("child-old")
	assert.Equal(t, "child-new", newUUID)
}

var _ restore.Strategy = Assets{}

var apiConflict = api.APIError{Method: http.MethodPost, Path: "spaces/42/datasources", Status: http.StatusUnprocessableEntity, Message: "slug has already been taken"}
