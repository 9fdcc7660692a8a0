package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// CyclicDependencyError reports a dependency cycle. Cycle lists the node
// identities along the cycle, with the first repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "dependency cycle: " + strings.Join(e.Cycle, " -> ")
}

// DanglingRefError reports a dependency on a node that is not in the graph.
type DanglingRefError struct {
	From Identity
	To   Ref
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("%s depends on %s, which is not part of the graph", e.From, e.To)
}

// DuplicateNodeError reports two nodes with the same identity.
type DuplicateNodeError struct {
	ID Identity
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node %s", e.ID)
}

// Builder accumulates nodes for one component (or a whole stack) and
// validates them on Build. The zero value is not usable; call NewBuilder.
type Builder struct {
	component string
	nodes     []*Node
	index     map[Identity]int
	errs      []error
}

// NewBuilder returns a builder whose Add attributes nodes to component.
func NewBuilder(component string) *Builder {
	return &Builder{component: component, index: make(map[Identity]int)}
}

// Component returns the component nodes are attributed to.
func (b *Builder) Component() string { return b.component }

// Add appends a node and returns its ref. Dependencies may be given in any
// order; repeated refs are collapsed.
func (b *Builder) Add(namespace, name string, spec Spec, dependsOn ...Ref) Ref {
	id := Identity{Component: b.component, Kind: spec.Kind(), Namespace: namespace, Name: name}
	b.insert(&Node{ID: id, Spec: spec, DependsOn: dedupe(nil, dependsOn)})
	return Ref{ID: id}
}

func (b *Builder) insert(n *Node) {
	if _, dup := b.index[n.ID]; dup {
		b.errs = append(b.errs, &DuplicateNodeError{ID: n.ID})
		return
	}
	b.index[n.ID] = len(b.nodes)
	b.nodes = append(b.nodes, n)
}

// Include copies every node of g into the builder, keeping identities.
func (b *Builder) Include(g *Graph) {
	for _, n := range g.nodes {
		cp := *n
		cp.DependsOn = append([]Ref(nil), n.DependsOn...)
		b.insert(&cp)
	}
}

// DependOn adds dependencies to an already added node.
func (b *Builder) DependOn(from Ref, to ...Ref) {
	i, ok := b.index[from.ID]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("cannot add dependency: unknown node %s", from.ID))
		return
	}
	n := b.nodes[i]
	n.DependsOn = dedupe(n.DependsOn, to)
}

func dedupe(existing, add []Ref) []Ref {
	out := existing
	for _, r := range add {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// Build validates the nodes and returns the immutable graph.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	g := &Graph{
		nodes:      make([]*Node, len(b.nodes)),
		index:      make(map[Identity]int, len(b.nodes)),
		dependents: make([][]int, len(b.nodes)),
		deps:       make([][]int, len(b.nodes)),
	}
	for i, n := range b.nodes {
		cp := *n
		cp.DependsOn = append([]Ref(nil), n.DependsOn...)
		g.nodes[i] = &cp
		g.index[n.ID] = i
	}

	for i, n := range g.nodes {
		for _, d := range n.DependsOn {
			j, ok := g.index[d.ID]
			if !ok {
				return nil, &DanglingRefError{From: n.ID, To: d}
			}
			if !slices.Contains(g.deps[i], j) {
				g.deps[i] = append(g.deps[i], j)
				g.dependents[j] = append(g.dependents[j], i)
			}
		}
	}

	order, ok := kahn(g.deps, g.dependents)
	if !ok {
		return nil, &CyclicDependencyError{Cycle: g.findCycle(order)}
	}
	g.order = order
	return g, nil
}
