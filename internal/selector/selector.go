// Package selector picks which element of a node to emit under the
// node's cycle policy (§4.5). Selection is a pure function of the
// node's elements, their visited flags and the injected pick function;
// the only mutations are the visitation resets and marks each policy
// defines.
package selector

import "github.com/narrativeflow/storyflow/pkg/model"

// Pick selects an index in [0, n); the runtime injects a seeded PRNG
// so Random and SmartRandom policies are reproducible under test.
type Pick func(n int) int

// Select returns one element of node according to node.CycleType and
// records the visitation the policy defines.
//
//   - List: first unvisited element, marked visited; all visited, the
//     last element (sticky, no flags touched).
//   - Loop: first unvisited element, marked visited; all visited, reset
//     every flag and start over from the first element.
//   - Random: uniform over all elements, with replacement, no marking.
//   - SmartRandom: uniform over the unvisited subset (resetting flags
//     first when the subset is empty), marking the pick visited.
//
// Nodes with CycleType None (Choice) are dispatched by element ID by
// the host, never through Select; they fall through to List behavior
// here only as a defensive default for malformed authoring data.
func Select(node *model.Node, pick Pick) *model.NodeElement {
	if len(node.Elements) == 0 {
		return nil
	}

	switch node.CycleType {
	case model.CycleLoop:
		el := firstUnvisited(node)
		if el == nil {
			resetVisited(node)
			el = node.Elements[0]
		}
		el.Visited = true
		return el

	case model.CycleRandom:
		return node.Elements[pick(len(node.Elements))]

	case model.CycleSmartRandom:
		unvisited := unvisitedElements(node)
		if len(unvisited) == 0 {
			resetVisited(node)
			unvisited = unvisitedElements(node)
		}
		el := unvisited[pick(len(unvisited))]
		el.Visited = true
		return el

	default: // List, None
		if el := firstUnvisited(node); el != nil {
			el.Visited = true
			return el
		}
		return node.Elements[len(node.Elements)-1]
	}
}

// AllVisited reports whether every element of node has been visited,
// used by the walker to detect Sequence exhaustion before consulting
// the node's fail path.
func AllVisited(node *model.Node) bool {
	return firstUnvisited(node) == nil
}

func firstUnvisited(node *model.Node) *model.NodeElement {
	for _, el := range node.Elements {
		if !el.Visited {
			return el
		}
	}
	return nil
}

func unvisitedElements(node *model.Node) []*model.NodeElement {
	var out []*model.NodeElement
	for _, el := range node.Elements {
		if !el.Visited {
			out = append(out, el)
		}
	}
	return out
}

func resetVisited(node *model.Node) {
	for _, el := range node.Elements {
		el.Visited = false
	}
}
