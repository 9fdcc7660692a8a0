package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/yaml"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/engine/k8sclient"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/render"
	"github.com/imamik/k8stack/internal/util/retry"
)

// Defaults for Options.
const (
	DefaultFieldManager  = "k8stack"
	DefaultReadyTimeout  = 5 * time.Minute
	DefaultReadyInterval = 5 * time.Second
)

// Releaser installs a chart release node as a Helm release.
type Releaser interface {
	Release(ctx context.Context, n graph.Node, spec graph.ChartReleaseSpec) error
}

// Options configures an SSA engine.
type Options struct {
	FieldManager  string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	// Retry tunes the backoff around each node's apply.
	Retry []retry.Option
	// Releaser, when set, takes over chart release nodes.
	Releaser Releaser
	Log      logr.Logger
}

// SSA applies graphs with Server-Side Apply.
type SSA struct {
	client   k8sclient.Client
	renderer *render.Renderer
	opts     Options
}

var _ Engine = (*SSA)(nil)

// NewSSA returns an engine applying through client. A nil renderer renders
// with secrets included; a renderer passed in must include them as well.
func NewSSA(client k8sclient.Client, renderer *render.Renderer, opts Options) *SSA {
	if opts.FieldManager == "" {
		opts.FieldManager = DefaultFieldManager
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = DefaultReadyInterval
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	if renderer == nil {
		renderer = render.New(render.Options{IncludeSecrets: true, Log: opts.Log})
	}
	return &SSA{client: client, renderer: renderer, opts: opts}
}

// run holds the state of one Apply call.
type run struct {
	status map[graph.Identity]Status
	ready  map[graph.Object]bool
}

// Apply visits every node of g in topological order. A node is skipped
// when any of its dependencies was not applied. The returned error joins
// the errors of failed nodes, or is the context error when ctx ends first.
func (e *SSA) Apply(ctx context.Context, g *graph.Graph) (Report, error) {
	var report Report
	st := &run{status: map[graph.Identity]Status{}, ready: map[graph.Object]bool{}}

	e.opts.Log.Info("applying graph", "nodes", g.Len(), "components", g.Components())
	for _, ref := range g.TopologicalOrder() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, _ := g.Node(ref)

		start := time.Now()
		res := e.node(ctx, st, n)
		res.Duration = time.Since(start)
		st.status[n.ID] = res.Status
		report.Results = append(report.Results, res)
		recordNode(n.ID.Kind, res.Status, res.Duration)

		log := e.opts.Log.WithValues("node", n.ID.String())
		switch res.Status {
		case StatusApplied:
			log.Info("node applied", "objects", res.Objects, "duration", res.Duration.Round(time.Millisecond).String())
		case StatusSkipped:
			log.Info("node skipped", "reason", res.Err.Error())
		default:
			log.Error(res.Err, "node failed")
		}
	}

	e.opts.Log.Info("graph applied",
		"applied", report.Count(StatusApplied),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped))
	return report, report.Err()
}

func (e *SSA) node(ctx context.Context, st *run, n graph.Node) NodeResult {
	res := NodeResult{Ref: n.Ref()}

	for _, dep := range n.DependsOn {
		if st.status[dep.ID] != StatusApplied {
			res.Status = StatusSkipped
			res.Err = &SkippedError{Dependency: dep}
			return res
		}
	}
	for _, dep := range n.DependsOn {
		if dep.Obj.IsZero() {
			continue
		}
		if err := e.waitReady(ctx, st, dep.Obj); err != nil {
			res.Status = StatusFailed
			res.Err = err
			return res
		}
	}

	if spec, ok := n.Spec.(graph.ChartReleaseSpec); ok && e.opts.Releaser != nil {
		if err := e.opts.Releaser.Release(ctx, n, spec); err != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("helm release failed: %w", err)
			return res
		}
		res.Status = StatusApplied
		return res
	}

	manifest, err := e.renderer.Node(ctx, n)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	namespace := n.ID.Namespace
	if spec, ok := n.Spec.(graph.RawManifestSpec); ok {
		namespace = spec.DefaultNamespace
	}
	err = retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		count, err := e.client.ApplyManifests(ctx, manifest, e.opts.FieldManager, namespace)
		res.Objects = count
		return err
	}, append([]retry.Option{retry.WithLogger(e.opts.Log.WithValues("node", n.ID.String()))}, e.opts.Retry...)...)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	if definesCRDs(manifest) {
		if err := e.client.RefreshDiscovery(ctx); err != nil {
			e.opts.Log.Error(err, "failed to refresh API discovery", "node", n.ID.String())
		}
	}
	res.Status = StatusApplied
	return res
}

// waitReady polls until obj is ready. Readiness is remembered for the rest
// of the run.
func (e *SSA) waitReady(ctx context.Context, st *run, obj graph.Object) error {
	if st.ready[obj] {
		return nil
	}
	e.opts.Log.Info("waiting for object", "object", obj.String(), "timeout", e.opts.ReadyTimeout.String())
	err := retry.Until(ctx, e.opts.ReadyInterval, e.opts.ReadyTimeout, func(ctx context.Context) (bool, error) {
		return e.client.ObjectReady(ctx, obj)
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", obj, err)
	}
	st.ready[obj] = true
	return nil
}

// definesCRDs reports whether manifest contains a CustomResourceDefinition.
func definesCRDs(manifest []byte) bool {
	for _, doc := range helm.SplitDocuments(manifest) {
		var head struct {
			Kind string `json:"kind"`
		}
		if yaml.Unmarshal([]byte(doc), &head) == nil && head.Kind == "CustomResourceDefinition" {
			return true
		}
	}
	return false
}
