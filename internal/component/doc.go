// Package component assembles catalog components into resource graphs.
//
// Every component runs the same fixed algorithm: its settings are resolved
// ([Definition.Resolve]), the remote artifacts it declares are fetched
// ([Definition.Artifacts]), and only then does it describe its resources
// ([Definition.Build]). [Assemble] runs one component; [AssembleStack]
// runs a whole stack, prefetching artifacts of independent components
// concurrently and isolating failures per component.
package component
