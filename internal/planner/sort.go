package planner

import "github.com/ALT-F4-LLC/spacerestore/internal/model"

const (
	DefaultParentField = "parent_id"
	DefaultKeyField    = "id"
)

// TopologicalSort orders a batch so every resource comes after its parent.
// The zero value orders by parent_id/id.
type TopologicalSort struct {
	ParentField string
	KeyField    string
}

// ByParent returns a TopologicalSort over the given parent field, keyed by
// id. Use a uuid parent field together with KeyField "uuid".
func ByParent(parentField string) TopologicalSort {
	return TopologicalSort{ParentField: parentField, KeyField: DefaultKeyField}
}

func (s TopologicalSort) fields() (parent, key string) {
	parent, key = s.ParentField, s.KeyField
	if parent == "" {
		parent = DefaultParentField
	}
	if key == "" {
		key = DefaultKeyField
	}
	return parent, key
}

// Sort returns a permutation of resources in which parents precede their
// children. The input slice is not modified.
func (s TopologicalSort) Sort(resources []model.Resource) ([]model.Resource, error) {
	if len(resources) == 0 {
		return []model.Resource{}, nil
	}

	parent, key := s.fields()
	dag := BuildDAG(resources, parent, key)
	levels, err := TopoSort(dag)
	if err != nil {
		return nil, err
	}

	sorted := make([]model.Resource, 0, len(resources))
	for _, level := range levels {
		for _, idx := range level {
			sorted = append(sorted, dag.Nodes[idx].Resource)
		}
	}
	return sorted, nil
}
