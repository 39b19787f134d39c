package resources

import (
	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/planner"
	"github.com/ALT-F4-LLC/spacerestore/internal/processor"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
	"github.com/ALT-F4-LLC/spacerestore/internal/restore"
	"github.com/ALT-F4-LLC/spacerestore/internal/space"
)

// Factories returns the orchestrator factory of every supported type.
func Factories() map[model.ResourceType]space.Factory {
	return map[model.ResourceType]space.Factory{
		model.TypeWebhooks:          webhooks,
		model.TypeAccessTokens:      accessTokens,
		model.TypeCollaborators:     collaborators,
		model.TypeComponentGroups:   componentGroups,
		model.TypeComponents:        components,
		model.TypeDatasources:       datasources,
		model.TypeDatasourceEntries: datasourceEntries,
		model.TypeAssetFolders:      assetFolders,
		model.TypeAssets:            assets,
		model.TypeStories:           stories,
	}
}

func orchestrator(t model.ResourceType, d space.Deps, s restore.Strategy) *restore.Orchestrator {
	return &restore.Orchestrator{
		Type:     t,
		Upserter: restore.NewService(d.Transport, s),
	}
}

func webhooks(d space.Deps) *restore.Orchestrator {
	// The API refuses webhooks created with a secret.
	return orchestrator(model.TypeWebhooks, d, Endpoint{
		Collection: "webhook_endpoints",
		Envelope:   "webhook_endpoint",
		Strip:      []string{"secret"},
	})
}

func accessTokens(d space.Deps) *restore.Orchestrator {
	return orchestrator(model.TypeAccessTokens, d, Endpoint{
		Collection: "api_keys",
		Envelope:   "api_key",
	})
}

func collaborators(d space.Deps) *restore.Orchestrator {
	return orchestrator(model.TypeCollaborators, d, Endpoint{
		Collection: "collaborators",
		Envelope:   "collaborator",
	})
}

func componentGroups(d space.Deps) *restore.Orchestrator {
	o := orchestrator(model.TypeComponentGroups, d, Endpoint{
		Collection: "component_groups",
		Envelope:   "component_group",
		Finder:     FieldFinder{Collection: "component_groups", Field: "name", SearchParam: "search"},
	})
	o.Sorter = planner.TopologicalSort{}
	o.Preprocessors = []restore.Preprocessor{processor.ParentID(model.TypeComponentGroups)}
	return o
}

func components(d space.Deps) *restore.Orchestrator {
	o := orchestrator(model.TypeComponents, d, Endpoint{
		Collection: "components",
		Envelope:   "component",
		Finder:     FieldFinder{Collection: "components", Field: "name", SearchParam: "search"},
	})
	o.Sorter = planner.TopologicalSort{}
	o.Preprocessors = []restore.Preprocessor{processor.FieldReplacer{
		Target: model.TypeComponentGroups,
		Field:  "component_group_uuid",
		Kind:   registry.UUIDs,
	}}
	return o
}

func datasources(d space.Deps) *restore.Orchestrator {
	return orchestrator(model.TypeDatasources, d, Endpoint{
		Collection: "datasources",
		Envelope:   "datasource",
		Finder:     FieldFinder{Collection: "datasources", Field: "slug", SearchParam: "search"},
	})
}

func datasourceEntries(d space.Deps) *restore.Orchestrator {
	o := orchestrator(model.TypeDatasourceEntries, d, Endpoint{
		Collection: "datasource_entries",
		Envelope:   "datasource_entry",
	})
	o.Preprocessors = []restore.Preprocessor{processor.FieldReplacer{
		Target: model.TypeDatasources,
		Field:  "datasource_id",
		Kind:   registry.IDs,
	}}
	return o
}

func assetFolders(d space.Deps) *restore.Orchestrator {
	o := orchestrator(model.TypeAssetFolders, d, Endpoint{
		Collection: "asset_folders",
		Envelope:   "asset_folder",
	})
	o.Sorter = planner.TopologicalSort{}
	o.Preprocessors = []restore.Preprocessor{processor.ParentID(model.TypeAssetFolders)}
	return o
}

func assets(d space.Deps) *restore.Orchestrator {
	uploader, _ := d.Transport.(api.Uploader)
	o := orchestrator(model.TypeAssets, d, Assets{
		Endpoint: Endpoint{Collection: "assets", Envelope: "asset"},
		Uploader: uploader,
	})
	o.Preprocessors = []restore.Preprocessor{processor.FieldReplacer{
		Target: model.TypeAssetFolders,
		Field:  "asset_folder_id",
		Kind:   registry.IDs,
	}}
	return o
}

func stories(d space.Deps) *restore.Orchestrator {
	o := orchestrator(model.TypeStories, d, Endpoint{
		Collection: "stories",
		Envelope:   "story",
		Extra:      map[string]any{"force_update": 1},
		Finder:     SlugFinder{},
	})
	o.Sorter = planner.TopologicalSort{}
	o.Preprocessors = []restore.Preprocessor{processor.Chain{
		processor.ParentID(model.TypeStories),
		processor.ParentUUID(model.TypeStories),
	}}
	o.Postprocessor = &processor.ReferenceRewriter{
		Transport:  d.Transport,
		Collection: "stories",
		Envelope:   "story",
	}
	return o
}
