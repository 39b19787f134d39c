package model

import (
	"fmt"
	"strings"
)

// ResourceType tags a restore batch. Each type has its own registry entry,
// backup folder and restore configuration.
type ResourceType string

const (
	TypeWebhooks          ResourceType = "webhooks"
	TypeAccessTokens      ResourceType = "access-tokens"
	TypeCollaborators     ResourceType = "collaborators"
	TypeComponentGroups   ResourceType = "component-groups"
	TypeComponents        ResourceType = "components"
	TypeDatasources       ResourceType = "datasources"
	TypeDatasourceEntries ResourceType = "datasource-entries"
	TypeAssetFolders      ResourceType = "asset-folders"
	TypeAssets            ResourceType = "assets"
	TypeStories           ResourceType = "stories"
)

// Order is the fixed restore order. Every type appears after the types its
// resources reference: access grants first, then containers, then content.
var Order = []ResourceType{
	TypeWebhooks,
	TypeAccessTokens,
	TypeCollaborators,
	TypeComponentGroups,
	TypeComponents,
	TypeDatasources,
	TypeDatasourceEntries,
	TypeAssetFolders,
	TypeAssets,
	TypeStories,
}

// ValidateResourceType returns an error if t is not a recognized resource type.
func ValidateResourceType(t ResourceType) error {
	for _, v := range Order {
		if t == v {
			return nil
		}
	}
	return fmt.Errorf("invalid resource type %q: must be one of %v", t, Order)
}

// ParseResourceType accepts underscored ("asset_folders") and hyphenated
// forms and returns the canonical hyphenated ResourceType.
func ParseResourceType(input string) (ResourceType, error) {
	normalized := ResourceType(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(input), "_", "-")))
	if err := ValidateResourceType(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ParseResourceTypes parses a list of type names, drops duplicates and
// returns the selection in restore order. An empty input selects every type.
func ParseResourceTypes(inputs []string) ([]ResourceType, error) {
	if len(inputs) == 0 {
		return append([]ResourceType(nil), Order...), nil
	}

	selected := make(map[ResourceType]struct{}, len(inputs))
	for _, in := range inputs {
		t, err := ParseResourceType(in)
		if err != nil {
			return nil, err
		}
		selected[t] = struct{}{}
	}

	return SelectInOrder(selected), nil
}

// SelectInOrder returns the members of selected in restore order.
func SelectInOrder(selected map[ResourceType]struct{}) []ResourceType {
	types := make([]ResourceType, 0, len(selected))
	for _, t := range Order {
		if _, ok := selected[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Singular returns the display name for one resource of this type,
// e.g. "story" for stories.
func (t ResourceType) Singular() string {
	switch t {
	case TypeStories:
		return "story"
	case TypeDatasourceEntries:
		return "datasource entry"
	case TypeAccessTokens:
		return "access token"
	default:
		return strings.ReplaceAll(strings.TrimSuffix(string(t), "s"), "-", " ")
	}
}
