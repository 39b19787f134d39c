package planner

import "github.com/ALT-F4-LLC/spacerestore/internal/model"

// Node wraps a resource of the batch with its parent/child edges. Nodes are
// keyed by the resource's position in the input batch.
type Node struct {
	Index    int
	Key      string
	Resource model.Resource
	Forward  map[int]struct{} // children restored after this node
	Reverse  map[int]struct{} // parent that must be restored first
}

// DAG holds the parent/child graph of one resource batch.
type DAG struct {
	Nodes map[int]*Node
}

// BuildDAG constructs the parent/child graph of a batch.
//
// Each resource is identified by the value of keyField and points at its
// parent through parentField. Resources whose parent value is absent or falsy
// are roots. Parents that are not part of the batch are assumed to be
// restored already and produce no edge. When two resources share a key,
// children attach to the first one.
func BuildDAG(resources []model.Resource, parentField, keyField string) *DAG {
	dag := &DAG{
		Nodes: make(map[int]*Node, len(resources)),
	}

	byKey := make(map[string]int, len(resources))
	for i, r := range resources {
		key, _ := r.Key(keyField)
		dag.Nodes[i] = &Node{
			Index:    i,
			Key:      key,
			Resource: r,
			Forward:  make(map[int]struct{}),
			Reverse:  make(map[int]struct{}),
		}
		if key == "" {
			continue
		}
		if _, dup := byKey[key]; !dup {
			byKey[key] = i
		}
	}

	for i, r := range resources {
		parentKey, ok := r.Key(parentField)
		if !ok {
			continue
		}
		parent, ok := byKey[parentKey]
		if !ok {
			continue
		}
		dag.Nodes[parent].Forward[i] = struct{}{}
		dag.Nodes[i].Reverse[parent] = struct{}{}
	}

	return dag
}
