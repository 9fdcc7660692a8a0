package graph

import "sort"

// Graph is a validated, acyclic set of nodes. It is safe for concurrent
// reads. Specs are shared with the builder's callers and must not be
// mutated.
type Graph struct {
	nodes      []*Node
	index      map[Identity]int
	deps       [][]int
	dependents [][]int
	order      []int
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = g.copyNode(n)
	}
	return out
}

func (g *Graph) copyNode(n *Node) Node {
	cp := *n
	cp.DependsOn = append([]Ref(nil), n.DependsOn...)
	return cp
}

// Node looks up the node r points at. A sub-object ref resolves to its
// owning node.
func (g *Graph) Node(r Ref) (Node, bool) {
	i, ok := g.index[r.ID]
	if !ok {
		return Node{}, false
	}
	return g.copyNode(g.nodes[i]), true
}

// DependenciesOf returns the refs r's node depends on, as declared.
func (g *Graph) DependenciesOf(r Ref) []Ref {
	i, ok := g.index[r.ID]
	if !ok {
		return nil
	}
	return append([]Ref(nil), g.nodes[i].DependsOn...)
}

// DependentsOf returns the nodes that declared a dependency on r's node.
func (g *Graph) DependentsOf(r Ref) []Ref {
	i, ok := g.index[r.ID]
	if !ok {
		return nil
	}
	out := make([]Ref, 0, len(g.dependents[i]))
	for _, d := range g.dependents[i] {
		out = append(out, g.nodes[d].Ref())
	}
	return out
}

// TopologicalOrder returns every node after all of its dependencies. Ties
// are broken by insertion order, so the result is deterministic.
func (g *Graph) TopologicalOrder() []Ref {
	out := make([]Ref, len(g.order))
	for k, i := range g.order {
		out[k] = g.nodes[i].Ref()
	}
	return out
}

// Roots returns the nodes without dependencies, in insertion order.
func (g *Graph) Roots() []Ref {
	var out []Ref
	for i, n := range g.nodes {
		if len(g.deps[i]) == 0 {
			out = append(out, n.Ref())
		}
	}
	return out
}

// Components returns the sorted names of the components owning nodes.
func (g *Graph) Components() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range g.nodes {
		if !seen[n.ID.Component] {
			seen[n.ID.Component] = true
			out = append(out, n.ID.Component)
		}
	}
	sort.Strings(out)
	return out
}

// Subgraph returns the nodes owned by component in topological order.
func (g *Graph) Subgraph(component string) []Ref {
	var out []Ref
	for _, i := range g.order {
		if g.nodes[i].ID.Component == component {
			out = append(out, g.nodes[i].Ref())
		}
	}
	return out
}
