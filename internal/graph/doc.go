// Package graph builds the dependency graph of declarative resources that
// components emit.
//
// A [Builder] accepts nodes together with the refs they depend on and
// validates the result on [Builder.Build]: duplicate identities, refs to
// nodes that were never added, and dependency cycles are errors. A built
// [Graph] is read-only and offers a deterministic topological order.
package graph
