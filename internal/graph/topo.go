package graph

import "container/heap"

// readyQueue pops the lowest insertion index first, which keeps the
// topological order stable across runs.
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(int)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// kahn returns a dependency-first order. ok is false when some nodes are
// left over, i.e. they sit on or behind a cycle.
func kahn(deps, dependents [][]int) (order []int, ok bool) {
	indegree := make([]int, len(deps))
	q := &readyQueue{}
	for i := range deps {
		indegree[i] = len(deps[i])
		if indegree[i] == 0 {
			*q = append(*q, i)
		}
	}
	heap.Init(q)

	for q.Len() > 0 {
		i := heap.Pop(q).(int)
		order = append(order, i)
		for _, d := range dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(q, d)
			}
		}
	}
	return order, len(order) == len(deps)
}

// findCycle walks the nodes Kahn could not order and returns one cycle.
func (g *Graph) findCycle(ordered []int) []string {
	done := make([]bool, len(g.nodes))
	for _, i := range ordered {
		done[i] = true
	}

	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.nodes))
	var stack []int
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = grey
		stack = append(stack, i)
		for _, d := range g.deps[i] {
			if done[d] {
				continue
			}
			switch color[d] {
			case grey:
				start := 0
				for k, s := range stack {
					if s == d {
						start = k
						break
					}
				}
				for _, s := range stack[start:] {
					cycle = append(cycle, g.nodes[s].ID.String())
				}
				cycle = append(cycle, g.nodes[d].ID.String())
				return true
			case white:
				if visit(d) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range g.nodes {
		if !done[i] && color[i] == white && visit(i) {
			return cycle
		}
	}
	return nil
}
