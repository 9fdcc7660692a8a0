package helm

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/postrender"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
)

// DefaultReleaseTimeout bounds install and upgrade waits.
const DefaultReleaseTimeout = 10 * time.Minute

// ReleaseClient installs charts as Helm releases in one namespace.
type ReleaseClient struct {
	namespace    string
	actionConfig *action.Configuration
	Timeout      time.Duration
}

// NewReleaseClient creates a release client from kubeconfig bytes.
func NewReleaseClient(kubeconfig []byte, namespace string, log logr.Logger) (*ReleaseClient, error) {
	actionConfig := new(action.Configuration)
	restGetter := newKubeconfigGetter(kubeconfig, namespace)

	debug := func(format string, v ...any) {
		log.V(2).Info(fmt.Sprintf(format, v...))
	}
	if err := actionConfig.Init(restGetter, namespace, "secret", debug); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	return &ReleaseClient{namespace: namespace, actionConfig: actionConfig, Timeout: DefaultReleaseTimeout}, nil
}

// ReleaseOptions tune one install or upgrade.
type ReleaseOptions struct {
	SkipCRDs            bool
	APIVersionOverrides map[string]string
}

// apiVersionRenderer rewrites apiVersions of the rendered release manifest.
type apiVersionRenderer map[string]string

var _ postrender.PostRenderer = apiVersionRenderer(nil)

func (r apiVersionRenderer) Run(rendered *bytes.Buffer) (*bytes.Buffer, error) {
	out, err := OverrideAPIVersions(rendered.Bytes(), r)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(out), nil
}

func (o ReleaseOptions) postRenderer() postrender.PostRenderer {
	if len(o.APIVersionOverrides) == 0 {
		return nil
	}
	return apiVersionRenderer(o.APIVersionOverrides)
}

// InstallOrUpgrade installs ch as releaseName, or upgrades the release if
// it already exists, and waits for its resources.
func (c *ReleaseClient) InstallOrUpgrade(ctx context.Context, releaseName string, ch *chart.Chart, values map[string]any, opts ReleaseOptions) (*release.Release, error) {
	exists, err := c.releaseExists(releaseName)
	if err != nil {
		return nil, err
	}
	if !exists {
		install := action.NewInstall(c.actionConfig)
		install.ReleaseName = releaseName
		install.Namespace = c.namespace
		install.Wait = true
		install.Timeout = c.Timeout
		install.SkipCRDs = opts.SkipCRDs
		install.PostRenderer = opts.postRenderer()
		return install.RunWithContext(ctx, ch, values)
	}

	upgrade := action.NewUpgrade(c.actionConfig)
	upgrade.Namespace = c.namespace
	upgrade.Wait = true
	upgrade.Timeout = c.Timeout
	upgrade.ReuseValues = false
	upgrade.SkipCRDs = opts.SkipCRDs
	upgrade.PostRenderer = opts.postRenderer()
	return upgrade.RunWithContext(ctx, releaseName, ch, values)
}

func (c *ReleaseClient) releaseExists(releaseName string) (bool, error) {
	hist := action.NewHistory(c.actionConfig)
	hist.Max = 1
	if _, err := hist.Run(releaseName); err != nil {
		return false, nil
	}
	return true, nil
}

// LoadChart resolves a chart in a Helm repository and loads it into
// memory. Charts of catalog components are normally prefetched into the
// artifact cache instead.
func LoadChart(repoURL, name, version string) (*chart.Chart, error) {
	providers := getter.All(cli.New())
	chartURL, err := repo.FindChartInRepoURL(repoURL, name, version, "", "", "", providers)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", name, repoURL, err)
	}

	u, err := url.Parse(chartURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chart URL %q: %w", chartURL, err)
	}
	g, err := providers.ByScheme(u.Scheme)
	if err != nil {
		return nil, err
	}
	buf, err := g.Get(chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart %s: %w", chartURL, err)
	}
	return loader.LoadArchive(buf)
}
