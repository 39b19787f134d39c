package planner

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError is returned when the parent graph of a batch contains a cycle
// and no valid restore order exists.
type CycleError struct {
	Keys []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among resources: %s", strings.Join(e.Keys, ", "))
}

// TopoSort performs a topological sort on the DAG using Kahn's algorithm.
// It returns node indexes grouped by level: level 0 holds the roots, level 1
// their children, and so on. Within a level, indexes keep batch order.
//
// Returns a CycleError if the graph contains a cycle, listing the keys of
// every resource that could not be ordered.
func TopoSort(dag *DAG) ([][]int, error) {
	inDegree := make(map[int]int, len(dag.Nodes))
	for idx, node := range dag.Nodes {
		inDegree[idx] = len(node.Reverse)
	}

	var queue []int
	for idx, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, idx)
		}
	}
	sort.Ints(queue)

	var levels [][]int
	processed := 0

	for len(queue) > 0 {
		level := make([]int, len(queue))
		copy(level, queue)
		levels = append(levels, level)
		processed += len(level)

		var nextQueue []int
		for _, idx := range queue {
			for child := range dag.Nodes[idx].Forward {
				inDegree[child]--
				if inDegree[child] == 0 {
					nextQueue = append(nextQueue, child)
				}
			}
		}
		sort.Ints(nextQueue)
		queue = nextQueue
	}

	if processed != len(dag.Nodes) {
		var stuck []int
		for idx, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, idx)
			}
		}
		sort.Ints(stuck)

		keys := make([]string, len(stuck))
		for i, idx := range stuck {
			keys[i] = dag.Nodes[idx].Key
		}
		return nil, &CycleError{Keys: keys}
	}

	return levels, nil
}
