package planner

import "github.com/ALT-F4-LLC/spacerestore/internal/model"

// Phase is a group of resources whose parents are all restored in earlier
// phases.
type Phase struct {
	Number    int
	Resources []model.Resource
}

// Plan describes how one batch would be restored: a sequence of phases with
// summary stats. It is what a dry run reports per resource type.
type Plan struct {
	Type           model.ResourceType
	Phases         []Phase
	TotalResources int
	TotalPhases    int
	MaxWidth       int
}

// GeneratePlan builds a restore plan for a batch. Phase 1 contains the
// resources with no in-batch parent, phase N contains resources whose parent
// is in phase N-1. A nil sorter places the whole batch in a single phase.
func GeneratePlan(t model.ResourceType, resources []model.Resource, sorter *TopologicalSort) (*Plan, error) {
	plan := &Plan{Type: t}

	if len(resources) > 0 {
		if sorter == nil {
			plan.Phases = []Phase{{Number: 1, Resources: resources}}
		} else {
			parent, key := sorter.fields()
			dag := BuildDAG(resources, parent, key)
			levels, err := TopoSort(dag)
			if err != nil {
				return nil, err
			}
			for _, level := range levels {
				phase := Phase{Number: len(plan.Phases) + 1}
				for _, idx := range level {
					phase.Resources = append(phase.Resources, dag.Nodes[idx].Resource)
				}
				plan.Phases = append(plan.Phases, phase)
			}
		}
	}

	for _, phase := range plan.Phases {
		plan.TotalResources += len(phase.Resources)
		if len(phase.Resources) > plan.MaxWidth {
			plan.MaxWidth = len(phase.Resources)
		}
	}
	plan.TotalPhases = len(plan.Phases)

	return plan, nil
}
