package component

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// Fetcher retrieves artifacts; *artifact.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, src artifact.Source) (artifact.Entry, error)
}

// Env is everything a component may consult. There is no global state:
// two Envs never share configuration.
type Env struct {
	Stored  resolve.Store
	Secrets secret.Store
	Fetcher Fetcher
	// SkipFetch describes artifacts without retrieving them, for plans.
	SkipFetch bool
	// Concurrency bounds parallel prefetches in AssembleStack.
	Concurrency int
	Log         logr.Logger
}

// Resolver returns a fresh resolver for one component.
func (e Env) Resolver(component string) *resolve.Resolver {
	return resolve.New(component, e.Stored, e.Secrets)
}

// Logger returns e.Log, or a discarding logger.
func (e Env) Logger() logr.Logger {
	if e.Log.GetSink() == nil {
		return logr.Discard()
	}
	return e.Log
}

// Fetch retrieves src on behalf of component and attributes failures to it.
func (e Env) Fetch(ctx context.Context, component string, src artifact.Source) (artifact.Entry, error) {
	if e.SkipFetch {
		return artifact.Entry{Source: src, Key: src.Key()}, nil
	}
	if e.Fetcher == nil {
		return artifact.Entry{}, &artifact.FetchError{Component: component, Key: src.Key(), Cause: errors.New("no artifact fetcher configured")}
	}
	entry, err := e.Fetcher.Fetch(ctx, src)
	if err != nil {
		var fe *artifact.FetchError
		if errors.As(err, &fe) {
			cp := *fe
			cp.Component = component
			return artifact.Entry{}, &cp
		}
		return artifact.Entry{}, &artifact.FetchError{Component: component, Key: src.Key(), Cause: err}
	}
	return entry, nil
}

// Definition is one catalog component with typed arguments.
type Definition interface {
	// Type is the catalog type name, e.g. "nginx-ingress".
	Type() string
	// Resolve resolves every setting the component needs. It runs first
	// and must not perform I/O beyond the resolver.
	Resolve(r *resolve.Resolver) error
	// Artifacts lists the remote sources Build consumes.
	Artifacts() []artifact.Source
	// Build adds the component's nodes to b.
	Build(b *graph.Builder, fetched Artifacts) error
}

// Artifacts holds fetched entries keyed by source.
type Artifacts map[artifact.Source]artifact.Entry

// Get returns the entry fetched for src.
func (a Artifacts) Get(src artifact.Source) (artifact.Entry, error) {
	e, ok := a[src]
	if !ok {
		return artifact.Entry{}, fmt.Errorf("artifact %s was not prepared", src.Key())
	}
	return e, nil
}

// Instance is an assembled component. It is not modified after Assemble
// returns.
type Instance struct {
	Name      string
	Type      string
	Parent    string
	Settings  []resolve.Record
	Artifacts []artifact.Entry
	Graph     *graph.Graph
	// Definition is the resolved definition the graph was built from.
	Definition Definition
}

// AssemblyError attributes a failure to a component.
type AssemblyError struct {
	Component string
	Cause     error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Component, e.Cause)
}

func (e *AssemblyError) Unwrap() error { return e.Cause }

// DependencyFailedError is the cause of an AssemblyError for a component
// aborted because a component it depends on failed.
type DependencyFailedError struct {
	Dependency string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("dependency %q failed", e.Dependency)
}

// prepared is a component between the resolve and build phases.
type prepared struct {
	name    string
	def     Definition
	r       *resolve.Resolver
	fetched Artifacts
	entries []artifact.Entry
}

func resolvePhase(env Env, name string, def Definition) (*prepared, error) {
	r := env.Resolver(name)
	if err := def.Resolve(r); err != nil {
		return nil, err
	}
	return &prepared{name: name, def: def, r: r, fetched: Artifacts{}}, nil
}

func (p *prepared) fetch(ctx context.Context, env Env) error {
	for _, src := range p.def.Artifacts() {
		if _, done := p.fetched[src]; done {
			continue
		}
		entry, err := env.Fetch(ctx, p.name, src)
		if err != nil {
			return err
		}
		p.fetched[src] = entry
		p.entries = append(p.entries, entry)
	}
	return nil
}

func (p *prepared) build() (*Instance, error) {
	b := graph.NewBuilder(p.name)
	if err := p.def.Build(b, p.fetched); err != nil {
		return nil, err
	}
	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &Instance{
		Name:       p.name,
		Type:       p.def.Type(),
		Settings:   p.r.Records(),
		Artifacts:  p.entries,
		Graph:      g,
		Definition: p.def,
	}, nil
}

// Assemble runs the resolve, fetch and build phases for one component.
func Assemble(ctx context.Context, env Env, name string, def Definition) (*Instance, error) {
	log := env.Logger().WithValues("component", name, "type", def.Type())

	p, err := resolvePhase(env, name, def)
	if err != nil {
		return nil, &AssemblyError{Component: name, Cause: err}
	}
	if err := p.fetch(ctx, env); err != nil {
		return nil, &AssemblyError{Component: name, Cause: err}
	}
	inst, err := p.build()
	if err != nil {
		return nil, &AssemblyError{Component: name, Cause: err}
	}
	log.V(1).Info("component assembled", "nodes", inst.Graph.Len())
	return inst, nil
}
