package render

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/secret"
	"github.com/imamik/k8stack/internal/util/labels"
)

// DefaultDownloadTimeout bounds downloads of manifests referenced by URL.
const DefaultDownloadTimeout = 2 * time.Minute

// Options configures a Renderer.
type Options struct {
	// IncludeSecrets renders secret values in plaintext. Without it every
	// secret renders as secret.Redacted.
	IncludeSecrets bool
	// Getters download raw manifests referenced by URL. Defaults to
	// Helm's getters.
	Getters getter.Providers
	Log     logr.Logger
}

// Renderer turns graph nodes into Kubernetes manifests.
type Renderer struct {
	opts Options
}

// New returns a Renderer.
func New(opts Options) *Renderer {
	if opts.Getters == nil {
		opts.Getters = getter.All(cli.New())
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	return &Renderer{opts: opts}
}

// Graph renders every node of g in topological order. Each node's first
// document carries a "# Source:" comment naming the node.
func (r *Renderer) Graph(ctx context.Context, g *graph.Graph) ([]byte, error) {
	var docs []string
	for _, ref := range g.TopologicalOrder() {
		n, _ := g.Node(ref)
		out, err := r.Node(ctx, n)
		if err != nil {
			return nil, err
		}
		for i, doc := range helm.SplitDocuments(out) {
			if i == 0 {
				doc = "# Source: " + n.ID.String() + "\n" + doc
			}
			docs = append(docs, doc)
		}
	}
	return helm.JoinDocuments(docs), nil
}

// Node renders one node into multi-document YAML.
func (r *Renderer) Node(ctx context.Context, n graph.Node) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch spec := n.Spec.(type) {
	case graph.NamespaceSpec:
		out, err = marshal(&corev1.Namespace{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
			ObjectMeta: metav1.ObjectMeta{Name: n.ID.Name, Labels: labels.NewLabelBuilder().Merge(spec.Labels).Build()},
		})
	case graph.SecretSpec:
		out, err = marshal(r.secret(n, spec))
	case graph.ConfigMapSpec:
		out, err = marshal(r.configMap(n, spec))
	case graph.CustomResourceSpec:
		out, err = marshal(r.customResource(n, spec))
	case graph.ChartReleaseSpec:
		out, err = r.chart(n, spec)
	case graph.RawManifestSpec:
		out, err = r.rawManifest(ctx, spec)
	default:
		err = fmt.Errorf("unsupported node kind %s", n.ID.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", n.ID, err)
	}
	return out, nil
}

func marshal(obj any) ([]byte, error) {
	out, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to encode object: %w", err)
	}
	return out, nil
}

// objectLabels returns the labels of an object declared by n. Namespaces
// may be shared between components and carry no component label.
func objectLabels(n graph.Node, explicit map[string]string) map[string]string {
	return labels.NewLabelBuilder().WithComponent(n.ID.Component).Merge(explicit).Build()
}

func (r *Renderer) value(v secret.Value) string {
	if r.opts.IncludeSecrets {
		return v.Reveal()
	}
	return secret.Redacted
}

func (r *Renderer) values(v map[string]any) map[string]any {
	if r.opts.IncludeSecrets {
		return helm.Reveal(v)
	}
	return helm.Redact(v)
}

func (r *Renderer) secret(n graph.Node, spec graph.SecretSpec) *corev1.Secret {
	typ := corev1.SecretTypeOpaque
	if spec.Type != "" {
		typ = corev1.SecretType(spec.Type)
	}
	data := make(map[string]string, len(spec.Data))
	for k, v := range spec.Data {
		data[k] = r.value(v)
	}
	return &corev1.Secret{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{Name: n.ID.Name, Namespace: n.ID.Namespace, Labels: objectLabels(n, spec.Labels)},
		Type:       typ,
		StringData: data,
	}
}

func (r *Renderer) configMap(n graph.Node, spec graph.ConfigMapSpec) *corev1.ConfigMap {
	data := make(map[string]string, len(spec.Data)+len(spec.SecretData))
	for k, v := range spec.Data {
		data[k] = v
	}
	for k, v := range spec.SecretData {
		data[k] = r.value(v)
	}
	return &corev1.ConfigMap{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{Name: n.ID.Name, Namespace: n.ID.Namespace, Labels: objectLabels(n, spec.Labels)},
		Data:       data,
	}
}

func (r *Renderer) customResource(n graph.Node, spec graph.CustomResourceSpec) map[string]any {
	metadata := map[string]any{"name": n.ID.Name}
	if !spec.ClusterScoped && n.ID.Namespace != "" {
		metadata["namespace"] = n.ID.Namespace
	}
	metadata["labels"] = objectLabels(n, spec.Labels)
	obj := map[string]any{
		"apiVersion": spec.APIVersion,
		"kind":       spec.ResourceKind,
		"metadata":   metadata,
	}
	if spec.Spec != nil {
		obj["spec"] = r.values(spec.Spec)
	}
	return obj
}

// ChartOptions returns the render options of a chart release node with
// secret values revealed or redacted per the renderer's options.
func (r *Renderer) ChartOptions(n graph.Node, spec graph.ChartReleaseSpec) helm.RenderOptions {
	return helm.RenderOptions{
		ReleaseName:         n.ID.Name,
		Namespace:           n.ID.Namespace,
		Values:              r.values(spec.Values),
		ValuesFiles:         spec.ValuesFiles,
		APIVersionOverrides: spec.APIVersionOverrides,
		IncludeCRDs:         !spec.SkipCRDs,
	}
}

func (r *Renderer) chart(n graph.Node, spec graph.ChartReleaseSpec) ([]byte, error) {
	opts := r.ChartOptions(n, spec)
	if spec.Chart.Path != "" {
		return helm.RenderFromPath(spec.Chart.Path, opts)
	}
	if spec.Chart.Repository == "" || spec.Chart.Name == "" {
		return nil, fmt.Errorf("chart release has neither a local chart nor a repository chart")
	}
	r.opts.Log.V(1).Info("loading chart from repository", "repository", spec.Chart.Repository, "chart", spec.Chart.Name, "version", spec.Chart.Version)
	ch, err := helm.LoadChart(spec.Chart.Repository, spec.Chart.Name, spec.Chart.Version)
	if err != nil {
		return nil, err
	}
	return helm.Render(ch, opts)
}

func (r *Renderer) rawManifest(ctx context.Context, spec graph.RawManifestSpec) ([]byte, error) {
	var docs []string
	switch {
	case len(spec.Files) > 0:
		for _, pattern := range spec.Files {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid manifest pattern %q: %w", pattern, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no manifest matches %q", pattern)
			}
			sort.Strings(matches)
			for _, m := range matches {
				// #nosec G304
				data, err := os.ReadFile(m)
				if err != nil {
					return nil, fmt.Errorf("failed to read manifest: %w", err)
				}
				docs = append(docs, string(data))
			}
		}
	case spec.URL != "":
		data, err := r.download(ctx, spec.URL)
		if err != nil {
			return nil, err
		}
		docs = append(docs, string(data))
	default:
		return nil, fmt.Errorf("raw manifest has neither files nor a URL")
	}

	out := helm.JoinDocuments(docs)
	if len(spec.APIVersionOverrides) > 0 {
		return helm.OverrideAPIVersions(out, spec.APIVersionOverrides)
	}
	return out, nil
}

func (r *Renderer) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest URL %q: %w", rawURL, err)
	}
	g, err := r.opts.Getters.ByScheme(u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("unsupported URL scheme %q: %w", u.Scheme, err)
	}
	timeout := DefaultDownloadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	r.opts.Log.V(1).Info("downloading manifest", "url", rawURL)
	buf, err := g.Get(rawURL, getter.WithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
