package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/k8stack/internal/graph"
)

// Engine applies a resource graph to a cluster.
type Engine interface {
	Apply(ctx context.Context, g *graph.Graph) (Report, error)
}

// Status is the outcome of one node.
type Status string

const (
	StatusApplied Status = "Applied"
	StatusFailed  Status = "Failed"
	// StatusSkipped marks nodes not attempted because a dependency was not
	// applied.
	StatusSkipped Status = "Skipped"
)

// NodeResult is the outcome of one node of an Apply run.
type NodeResult struct {
	Ref      graph.Ref
	Status   Status
	Objects  int
	Duration time.Duration
	Err      error
}

// Report lists node results in the order nodes were visited.
type Report struct {
	Results []NodeResult
}

// Count returns the number of results with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Result returns the result recorded for ref's node.
func (r Report) Result(ref graph.Ref) (NodeResult, bool) {
	for _, res := range r.Results {
		if res.Ref.ID == ref.ID {
			return res, true
		}
	}
	return NodeResult{}, false
}

// Err joins the errors of every failed node, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s: %w", res.Ref.ID, res.Err))
		}
	}
	return errors.Join(errs...)
}

// SkippedError explains why a node was not attempted.
type SkippedError struct {
	Dependency graph.Ref
}

func (e *SkippedError) Error() string {
	return fmt.Sprintf("dependency %s was not applied", e.Dependency.ID)
}
