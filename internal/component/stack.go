package component

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/imamik/k8stack/internal/config"
	"github.com/imamik/k8stack/internal/graph"
)

// Catalog turns a stack entry into a typed definition.
type Catalog interface {
	Definition(spec config.ComponentSpec) (Definition, error)
}

// Stack is the outcome of assembling a stack file. Failed components are
// absent from Instances and Graph.
type Stack struct {
	Instances []*Instance
	Graph     *graph.Graph
	Failures  []*AssemblyError
}

// Err joins the failures, or returns nil.
func (s *Stack) Err() error {
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Instance returns the assembled component named name.
func (s *Stack) Instance(name string) (*Instance, bool) {
	for _, i := range s.Instances {
		if i.Name == name {
			return i, true
		}
	}
	return nil, false
}

// componentSpec is the node payload of the component-level ordering graph.
type componentSpec struct{}

func (componentSpec) Kind() graph.Kind { return "Component" }

// order returns component names dependency-first. Parents count as
// dependencies so a child is never built before its parent.
func order(specs []config.ComponentSpec) ([]string, error) {
	b := graph.NewBuilder("stack")
	refs := make(map[string]graph.Ref, len(specs))
	for _, s := range specs {
		refs[s.Name] = b.Add("", s.Name, componentSpec{})
	}
	for _, s := range specs {
		var deps []graph.Ref
		for _, d := range s.DependsOn {
			deps = append(deps, refs[d])
		}
		if s.Parent != "" {
			deps = append(deps, refs[s.Parent])
		}
		if len(deps) > 0 {
			b.DependOn(refs[s.Name], deps...)
		}
	}
	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("component ordering: %w", err)
	}
	names := make([]string, 0, len(specs))
	for _, r := range g.TopologicalOrder() {
		names = append(names, r.ID.Name)
	}
	return names, nil
}

// AssembleStack assembles every component of specs. A component failure
// aborts only that component and the components depending on it (or
// nested under it); the returned error covers stack-level defects such as
// cycles between components.
func AssembleStack(ctx context.Context, env Env, catalog Catalog, specs []config.ComponentSpec) (*Stack, error) {
	log := env.Logger()
	names, err := order(specs)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]config.ComponentSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	failed := make(map[string]*AssemblyError)
	var mu sync.Mutex
	fail := func(name string, cause error) {
		mu.Lock()
		defer mu.Unlock()
		var ae *AssemblyError
		if errors.As(cause, &ae) && ae.Component == name {
			failed[name] = ae
			return
		}
		failed[name] = &AssemblyError{Component: name, Cause: cause}
	}

	// resolve: pure, sequential
	preps := make(map[string]*prepared, len(specs))
	for _, name := range names {
		spec := byName[name]
		def, err := catalog.Definition(spec)
		if err != nil {
			fail(name, err)
			continue
		}
		p, err := resolvePhase(env, name, def)
		if err != nil {
			fail(name, err)
			continue
		}
		preps[name] = p
	}

	// prefetch: concurrent across components
	limit := env.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range names {
		p, ok := preps[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := p.fetch(gctx, env); err != nil {
				log.Error(err, "artifact prefetch failed", "component", p.name)
				fail(p.name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	// build: dependency order, so failures propagate to dependents
	result := &Stack{}
	instances := make(map[string]*Instance, len(specs))
	for _, name := range names {
		if _, bad := failed[name]; bad {
			continue
		}
		spec := byName[name]
		if dep := failedDependency(spec, failed); dep != "" {
			fail(name, &DependencyFailedError{Dependency: dep})
			continue
		}
		inst, err := preps[name].build()
		if err != nil {
			fail(name, err)
			continue
		}
		inst.Parent = spec.Parent
		instances[name] = inst
	}

	stack := graph.NewBuilder("")
	for _, s := range specs {
		if inst, ok := instances[s.Name]; ok {
			result.Instances = append(result.Instances, inst)
			stack.Include(inst.Graph)
		}
		if f, ok := failed[s.Name]; ok {
			result.Failures = append(result.Failures, f)
		}
	}
	for _, inst := range result.Instances {
		for _, d := range byName[inst.Name].DependsOn {
			dep := instances[d]
			targets := dep.Graph.TopologicalOrder()
			for _, root := range inst.Graph.Roots() {
				stack.DependOn(root, targets...)
			}
		}
	}
	merged, err := stack.Build()
	if err != nil {
		return nil, fmt.Errorf("merging component graphs: %w", err)
	}
	result.Graph = merged

	log.Info("stack assembled", "components", len(result.Instances), "failed", len(result.Failures), "nodes", merged.Len())
	return result, nil
}

func failedDependency(spec config.ComponentSpec, failed map[string]*AssemblyError) string {
	for _, d := range spec.DependsOn {
		if _, ok := failed[d]; ok {
			return d
		}
	}
	if spec.Parent != "" {
		if _, ok := failed[spec.Parent]; ok {
			return spec.Parent
		}
	}
	return ""
}
