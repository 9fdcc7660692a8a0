package graph

// NodeView is the printable form of a node. Secret payloads marshal
// redacted.
type NodeView struct {
	ID        string   `json:"id" yaml:"id"`
	Component string   `json:"component" yaml:"component"`
	Kind      Kind     `json:"kind" yaml:"kind"`
	Namespace string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name      string   `json:"name" yaml:"name"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Spec      Spec     `json:"spec" yaml:"spec"`
}

// View returns every node in topological order.
func (g *Graph) View() []NodeView {
	out := make([]NodeView, 0, len(g.order))
	for _, i := range g.order {
		n := g.nodes[i]
		v := NodeView{
			ID:        n.ID.String(),
			Component: n.ID.Component,
			Kind:      n.ID.Kind,
			Namespace: n.ID.Namespace,
			Name:      n.ID.Name,
			Spec:      n.Spec,
		}
		for _, d := range n.DependsOn {
			v.DependsOn = append(v.DependsOn, d.String())
		}
		out = append(out, v)
	}
	return out
}
