package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// MemcachedArgs configures memcached.
type MemcachedArgs struct {
	ReplicaCount *int    `yaml:"replicaCount,omitempty"`
	Memory       *int    `yaml:"memory,omitempty"`
	Namespace    *string `yaml:"namespace,omitempty"`
	Version      *string `yaml:"version,omitempty"`
}

// Memcached installs stable/memcached with metrics. The namespace
// defaults to the component name.
type Memcached struct {
	Args MemcachedArgs

	replicas  int
	memory    int
	namespace string
	chart     artifact.Source
}

// NewMemcached returns the memcached definition.
func NewMemcached(args MemcachedArgs) *Memcached {
	return &Memcached{Args: args}
}

func (m *Memcached) Type() string { return "memcached" }

func (m *Memcached) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	m.replicas = setting(s, "replicaCount", m.Args.ReplicaCount, 1)
	m.memory = setting(s, "memory", m.Args.Memory, 512)
	m.namespace = setting(s, "namespace", m.Args.Namespace, r.Component())
	version := setting(s, "version", m.Args.Version, "")
	if s.err != nil {
		return s.err
	}
	chart, err := repoChart(m.Type(), version)
	if err != nil {
		return err
	}
	m.chart = chart
	return nil
}

func (m *Memcached) Artifacts() []artifact.Source { return []artifact.Source{m.chart} }

func (m *Memcached) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, m.namespace)
	_, err := release(b, fetched, m.chart, m.namespace, graph.ChartReleaseSpec{
		Values: helm.Values{
			"memcached": helm.Values{"maxItemMemory": m.memory},
			"metrics": helm.Values{
				"enabled":        true,
				"serviceMonitor": helm.Values{"enabled": true},
			},
			"replicaCount": m.replicas,
		},
	}, ns)
	return err
}
