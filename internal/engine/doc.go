// Package engine applies resource graphs to a cluster.
//
// The bundled engine visits nodes in topological order, renders each node
// with secrets revealed and applies the result with Server-Side Apply.
// Dependencies on a sub-object (a ref narrowed with graph.Ref.Sub) wait
// until that object is ready. Nodes whose dependencies were not applied
// are skipped, so one failing component does not take down the rest of
// the stack. Chart releases can instead be installed as Helm releases.
package engine
