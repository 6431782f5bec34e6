package catalogue

import (
	"fmt"
	"strings"
)

// checkCycles reports prerequisite cycles among declared entries, one
// error per strongly connected component, in declaration order.
// Prerequisites that are not declared entries are leaves.
func checkCycles(entries []Entry) []error {
	declared := make(map[string]int, len(entries))
	for i, e := range entries {
		declared[e.Name] = i
	}

	graph := make(map[string][]string, len(entries))
	for _, e := range entries {
		for _, n := range e.Needs {
			if _, ok := declared[n]; ok {
				graph[e.Name] = append(graph[e.Name], n)
			}
		}
	}

	var errs []error
	for _, scc := range tarjanSCC(entries, graph) {
		if len(scc) < 2 {
			continue
		}
		first := scc[0]
		for _, n := range scc[1:] {
			if declared[n] < declared[first] {
				first = n
			}
		}
		errs = append(errs, &CompileError{
			Entry:   first,
			Field:   "needs",
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(cyclePath(first, scc, graph), " -> ")),
			Pos:     entries[declared[first]].Pos,
		})
	}
	return errs
}

// tarjanSCC finds strongly connected components using Tarjan's
// algorithm, visiting roots in declaration order.
func tarjanSCC(entries []Entry, graph map[string][]string) [][]string {
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

		for _, w := range graph[v] {
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

	for _, e := range entries {
		if _, visited := indices[e.Name]; !visited {
			strongConnect(e.Name)
		}
	}
	return sccs
}

// cyclePath walks prerequisite edges inside scc from start back to start.
func cyclePath(start string, scc []string, graph map[string][]string) []string {
	in := make(map[string]bool, len(scc))
	for _, n := range scc {
		in[n] = true
	}

	seen := map[string]bool{start: true}
	var walk func(n string, path []string) []string
	walk = func(n string, path []string) []string {
		for _, w := range graph[n] {
			if !in[w] {
				continue
			}
			if w == start {
				return append(path, w)
			}
			if seen[w] {
				continue
			}
			seen[w] = true
			if found := walk(w, append(path, w)); found != nil {
				return found
			}
		}
		return nil
	}

	if path := walk(start, []string{start}); path != nil {
		return path
	}
	return append(scc, scc[0])
}
