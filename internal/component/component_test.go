package component

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/config"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// fakeFetcher records calls and fails for URLs listed in fail.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, src artifact.Source) (artifact.Entry, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return artifact.Entry{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, src.URL)
	f.mu.Unlock()

	if err, ok := f.fail[src.URL]; ok {
		return artifact.Entry{}, &artifact.FetchError{Key: src.Key(), Cause: err}
	}
	return artifact.Entry{Source: src, Key: src.Key(), Path: "/cache/" + src.Key(), ChartPath: "/cache/" + src.Key() + "/chart"}, nil
}

// fakeDefinition adds a namespace, and a chart release when it has a source.
// With secretName set, the password is stored in a Secret the release
// depends on.
type fakeDefinition struct {
	typ        string
	secretName string
	namespace  string
	password   secret.Value
	src        *artifact.Source
	resolveErr error
	buildErr   error
}

func (d *fakeDefinition) Type() string { return d.typ }

func (d *fakeDefinition) Resolve(r *resolve.Resolver) error {
	if d.resolveErr != nil {
		return d.resolveErr
	}
	ns, err := resolve.Get(r, "namespace", nil, d.typ)
	if err != nil {
		return err
	}
	d.namespace = ns
	d.password, err = resolve.Secret(r, "password", nil, secret.Value{})
	return err
}

func (d *fakeDefinition) Artifacts() []artifact.Source {
	if d.src == nil {
		return nil
	}
	return []artifact.Source{*d.src}
}

func (d *fakeDefinition) Build(b *graph.Builder, fetched Artifacts) error {
	if d.buildErr != nil {
		return d.buildErr
	}
	ns := Namespace(b, d.namespace)
	if d.src == nil {
		return nil
	}
	entry, err := fetched.Get(*d.src)
	if err != nil {
		return err
	}
	deps := []graph.Ref{ns}
	spec := graph.ChartReleaseSpec{Chart: ChartRef(entry)}
	if d.secretName != "" {
		deps = append(deps, b.Add(d.namespace, d.secretName, graph.SecretSpec{
			Data: map[string]secret.Value{"password": d.password},
		}, ns))
		spec.Values = map[string]any{"existingSecret": d.secretName}
	}
	b.Add(d.namespace, d.typ, spec, deps...)
	return nil
}

func chartSource(name string) *artifact.Source {
	return &artifact.Source{Kind: artifact.KindHelmRepository, URL: "https://charts.example.com/" + name, Name: name, Version: "1.0.0"}
}

func TestAssemble_Phases(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{}
	env := Env{
		Stored:  resolve.MapStore{"web": {"namespace": "frontend"}},
		Secrets: secret.MapStore{"web": {"password": "hunter2"}},
		Fetcher: fetcher,
	}
	def := &fakeDefinition{typ: "demo", src: chartSource("demo")}

	inst, err := Assemble(context.Background(), env, "web", def)
	require.NoError(t, err)

	assert.Equal(t, "web", inst.Name)
	assert.Equal(t, "demo", inst.Type)
	require.Len(t, inst.Artifacts, 1)
	assert.Equal(t, []string{"https://charts.example.com/demo"}, fetcher.calls)

	order := inst.Graph.TopologicalOrder()
	require.Len(t, order, 2)
	assert.Equal(t, graph.KindNamespace, order[0].ID.Kind)
	assert.Equal(t, "frontend", order[0].ID.Name)
	assert.Equal(t, "web", order[1].ID.Component)

	node, ok := inst.Graph.Node(order[1])
	require.True(t, ok)
	spec := node.Spec.(graph.ChartReleaseSpec)
	assert.Equal(t, "/cache/"+chartSource("demo").Key()+"/chart", spec.Chart.Path)
	assert.Equal(t, "demo", spec.Chart.Name)

	require.Len(t, inst.Settings, 2)
	assert.Equal(t, "stored", inst.Settings[0].Source)
	assert.Equal(t, "secret", inst.Settings[1].Source)
	assert.True(t, inst.Settings[1].Sensitive)
	assert.NotContains(t, inst.Settings[1].Value.(secret.Value).String(), "hunter2")
}

func TestAssemble_NamespaceSecretChart(t *testing.T) {
	t.Parallel()
	secrets := secret.MapStore{}
	secrets.Set("demo", "password", "abc")
	env := Env{Stored: resolve.MapStore{}, Secrets: secrets, Fetcher: &fakeFetcher{}}
	def := &fakeDefinition{typ: "demo", secretName: "db", src: chartSource("demo")}

	inst, err := Assemble(context.Background(), env, "demo", def)
	require.NoError(t, err)

	order := inst.Graph.TopologicalOrder()
	require.Len(t, order, 3)
	ns, sec, chart := order[0], order[1], order[2]
	assert.Equal(t, graph.Identity{Component: "demo", Kind: graph.KindNamespace, Name: "demo"}, ns.ID)
	assert.Equal(t, graph.Identity{Component: "demo", Kind: graph.KindSecret, Namespace: "demo", Name: "db"}, sec.ID)
	assert.Equal(t, graph.KindChartRelease, chart.ID.Kind)
	assert.Equal(t, "demo", chart.ID.Namespace)

	assert.Equal(t, []graph.Ref{ns}, inst.Graph.Roots())
	assert.ElementsMatch(t, []graph.Ref{ns, sec}, inst.Graph.DependenciesOf(chart))

	node, ok := inst.Graph.Node(sec)
	require.True(t, ok)
	password := node.Spec.(graph.SecretSpec).Data["password"]
	assert.Equal(t, "abc", password.Reveal())
	assert.Equal(t, secret.Redacted, password.String())

	require.Len(t, inst.Settings, 2)
	assert.Equal(t, "namespace", inst.Settings[0].Key)
	assert.Equal(t, "default", inst.Settings[0].Source)
	assert.Equal(t, "password", inst.Settings[1].Key)
	assert.Equal(t, "secret", inst.Settings[1].Source)
	assert.True(t, inst.Settings[1].Sensitive)
}

func TestAssemble_ResolveFailureSkipsFetch(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{}
	missing := &resolve.MissingConfigurationError{Component: "web", Setting: "password"}
	def := &fakeDefinition{typ: "demo", src: chartSource("demo"), resolveErr: missing}

	_, err := Assemble(context.Background(), Env{Fetcher: fetcher}, "web", def)
	require.Error(t, err)

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "web", ae.Component)
	var mce *resolve.MissingConfigurationError
	assert.ErrorAs(t, err, &mce)
	assert.Empty(t, fetcher.calls)
}

func TestAssemble_FetchErrorNamesComponent(t *testing.T) {
	t.Parallel()
	src := chartSource("demo")
	fetcher := &fakeFetcher{fail: map[string]error{src.URL: errors.New("connection refused")}}

	_, err := Assemble(context.Background(), Env{Fetcher: fetcher}, "web", &fakeDefinition{typ: "demo", src: src})
	require.Error(t, err)

	var fe *artifact.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "web", fe.Component)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAssemble_SkipFetch(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{}
	inst, err := Assemble(context.Background(), Env{Fetcher: fetcher, SkipFetch: true}, "web", &fakeDefinition{typ: "demo", src: chartSource("demo")})
	require.NoError(t, err)
	assert.Empty(t, fetcher.calls)
	require.Len(t, inst.Artifacts, 1)
	assert.Empty(t, inst.Artifacts[0].Path)
}

func TestAssemble_NoFetcher(t *testing.T) {
	t.Parallel()
	_, err := Assemble(context.Background(), Env{}, "web", &fakeDefinition{typ: "demo", src: chartSource("demo")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no artifact fetcher configured")
}

func TestEnv_Isolation(t *testing.T) {
	t.Parallel()
	a := Env{Stored: resolve.MapStore{"web": {"namespace": "a"}}}
	b := Env{Stored: resolve.MapStore{"web": {"namespace": "b"}}}

	da, db := &fakeDefinition{typ: "demo"}, &fakeDefinition{typ: "demo"}
	_, err := Assemble(context.Background(), a, "web", da)
	require.NoError(t, err)
	_, err = Assemble(context.Background(), b, "web", db)
	require.NoError(t, err)

	assert.Equal(t, "a", da.namespace)
	assert.Equal(t, "b", db.namespace)
}

// fakeCatalog maps component names to prepared definitions.
type fakeCatalog map[string]Definition

func (c fakeCatalog) Definition(spec config.ComponentSpec) (Definition, error) {
	d, ok := c[spec.Name]
	if !ok {
		return nil, errors.New("unknown component type " + spec.Type)
	}
	return d, nil
}
