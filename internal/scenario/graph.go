package scenario

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports stores that depend on each other in a loop.
type CycleError struct {
	Path []string // ["a", "b", "a"]
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("CYCLE_DETECTED: store dependency cycle: %s", strings.Join(e.Path, " → "))
}

// dependencyGraph maps a store to the stores that depend on it. Edge lists
// follow declaration order so every traversal is deterministic.
type dependencyGraph struct {
	nodes []string
	edges map[string][]string
}

// upstream returns the stores s reads from.
func upstream(s StoreSpec) []string {
	var deps []string
	if s.Source != "" {
		deps = append(deps, s.Source)
	}
	deps = append(deps, s.Sources...)
	if s.Param != "" {
		deps = append(deps, s.Param)
	}
	if name, ok := s.Range.(string); ok {
		deps = append(deps, name)
	}
	return deps
}

func buildDependencyGraph(specs []StoreSpec) dependencyGraph {
	g := dependencyGraph{edges: make(map[string][]string, len(specs))}
	for _, s := range specs {
		g.nodes = append(g.nodes, s.Name)
	}
	for _, s := range specs {
		for _, dep := range upstream(s) {
			g.edges[dep] = append(g.edges[dep], s.Name)
		}
	}
	return g
}

// BuildOrder returns the stores ordered so every store comes after the
// stores it reads from. Ties keep declaration order. A cycle fails with
// *CycleError.
func BuildOrder(specs []StoreSpec) ([]StoreSpec, error) {
	g := buildDependencyGraph(specs)
	sccs := tarjanSCC(g)

	for _, scc := range sccs {
		if len(scc) > 1 || slices.Contains(g.edges[scc[0]], scc[0]) {
			return nil, &CycleError{Path: cyclePath(scc, g)}
		}
	}

	byName := make(map[string]StoreSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	// Tarjan emits components dependents-first.
	order := make([]StoreSpec, 0, len(specs))
	for i := len(sccs) - 1; i >= 0; i-- {
		order = append(order, byName[sccs[i][0]])
	}
	return order, nil
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Components come out in reverse topological order of the edges.
func tarjanSCC(g dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit in reverse declaration order so that, once reversed, unrelated
	// stores keep their declaration order.
	for i := len(g.nodes) - 1; i >= 0; i-- {
		if _, visited := indices[g.nodes[i]]; !visited {
			strongConnect(g.nodes[i])
		}
	}
	return sccs
}

// cyclePath walks edges inside an SCC from its first member back to it.
func cyclePath(scc []string, g dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := slices.MinFunc(scc, func(a, b string) int {
		return slices.Index(g.nodes, a) - slices.Index(g.nodes, b)
	})
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		for _, w := range g.edges[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
