package addons

import (
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// MetricsServerArgs configures the metrics server.
type MetricsServerArgs struct {
	Version *string `yaml:"version,omitempty"`
}

// MetricsServer installs stable/metrics-server into kube-system with the
// chart's defaults.
type MetricsServer struct {
	Args MetricsServerArgs

	chart artifact.Source
}

// NewMetricsServer returns the metrics-server definition.
func NewMetricsServer(args MetricsServerArgs) *MetricsServer {
	return &MetricsServer{Args: args}
}

func (m *MetricsServer) Type() string { return "metrics-server" }

func (m *MetricsServer) Resolve(r *resolve.Resolver) error {
	version, err := resolve.Get(r, "version", m.Args.Version, "")
	if err != nil {
		return err
	}
	chart, err := repoChart(m.Type(), version)
	if err != nil {
		return err
	}
	m.chart = chart
	return nil
}

func (m *MetricsServer) Artifacts() []artifact.Source { return []artifact.Source{m.chart} }

// Build adds only the release; kube-system always exists.
func (m *MetricsServer) Build(b *graph.Builder, fetched component.Artifacts) error {
	_, err := release(b, fetched, m.chart, "kube-system", graph.ChartReleaseSpec{})
	return err
}
