package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/render"
)

// HelmReleaser installs chart release nodes as Helm releases, so that
// `helm list` and rollbacks see them.
type HelmReleaser struct {
	Kubeconfig []byte
	// Timeout bounds each install or upgrade; zero means
	// helm.DefaultReleaseTimeout.
	Timeout time.Duration
	Log     logr.Logger

	renderer *render.Renderer
}

var _ Releaser = (*HelmReleaser)(nil)

// NewHelmReleaser returns a releaser for the cluster of kubeconfig.
func NewHelmReleaser(kubeconfig []byte, log logr.Logger) *HelmReleaser {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &HelmReleaser{
		Kubeconfig: kubeconfig,
		Log:        log,
		renderer:   render.New(render.Options{IncludeSecrets: true, Log: log}),
	}
}

func (h *HelmReleaser) Release(ctx context.Context, n graph.Node, spec graph.ChartReleaseSpec) error {
	ch, err := loadChart(spec.Chart)
	if err != nil {
		return err
	}
	values, err := helm.ReleaseValues(ch, h.renderer.ChartOptions(n, spec))
	if err != nil {
		return err
	}

	namespace := n.ID.Namespace
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	client, err := helm.NewReleaseClient(h.Kubeconfig, namespace, h.Log)
	if err != nil {
		return err
	}
	if h.Timeout > 0 {
		client.Timeout = h.Timeout
	}

	rel, err := client.InstallOrUpgrade(ctx, n.ID.Name, ch, values, helm.ReleaseOptions{
		SkipCRDs:            spec.SkipCRDs,
		APIVersionOverrides: spec.APIVersionOverrides,
	})
	if err != nil {
		return err
	}
	h.Log.Info("release deployed", "release", rel.Name, "namespace", rel.Namespace, "revision", rel.Version)
	return nil
}

func loadChart(ref graph.ChartRef) (*chart.Chart, error) {
	if ref.Path != "" {
		ch, err := loader.Load(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load chart from %s: %w", ref.Path, err)
		}
		return ch, nil
	}
	if ref.Repository == "" || ref.Name == "" {
		return nil, fmt.Errorf("chart release has neither a local chart nor a repository chart")
	}
	return helm.LoadChart(ref.Repository, ref.Name, ref.Version)
}
