package graph

import "github.com/imamik/k8stack/internal/secret"

// NamespaceSpec creates a namespace.
type NamespaceSpec struct {
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

func (NamespaceSpec) Kind() Kind { return KindNamespace }

// SecretSpec creates an Opaque (or typed) Secret. Data values stay secret
// until the node is rendered for a cluster.
type SecretSpec struct {
	Type   string                  `json:"type,omitempty" yaml:"type,omitempty"`
	Labels map[string]string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Data   map[string]secret.Value `json:"data" yaml:"data"`
}

func (SecretSpec) Kind() Kind { return KindSecret }

// ConfigMapSpec creates a ConfigMap. SecretData entries join Data when the
// node is rendered for a cluster and print redacted everywhere else; they
// serve workloads that only read their environment from a ConfigMap.
type ConfigMapSpec struct {
	Labels     map[string]string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Data       map[string]string       `json:"data" yaml:"data"`
	SecretData map[string]secret.Value `json:"secretData,omitempty" yaml:"secretData,omitempty"`
}

func (ConfigMapSpec) Kind() Kind { return KindConfigMap }

// ChartRef locates a chart. Exactly one of Path (a local chart directory
// or archive, usually from the artifact cache) or Repository+Name is used.
type ChartRef struct {
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ChartReleaseSpec installs a chart as a release named after the node.
// Values may hold secret.Value leaves; they are revealed only when the
// chart is rendered for a cluster.
type ChartReleaseSpec struct {
	Chart  ChartRef       `json:"chart" yaml:"chart"`
	Values map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	// ValuesFiles are chart-relative values files merged under Values,
	// e.g. "values-crd.yaml".
	ValuesFiles []string `json:"valuesFiles,omitempty" yaml:"valuesFiles,omitempty"`
	// APIVersionOverrides rewrites the apiVersion of rendered objects,
	// keyed by the apiVersion to replace, e.g. {"apps/v1beta2": "apps/v1"}.
	APIVersionOverrides map[string]string `json:"apiVersionOverrides,omitempty" yaml:"apiVersionOverrides,omitempty"`
	// SkipCRDs leaves the chart's crds/ directory out of the render.
	SkipCRDs bool `json:"skipCRDs,omitempty" yaml:"skipCRDs,omitempty"`
}

func (ChartReleaseSpec) Kind() Kind { return KindChartRelease }

// CustomResourceSpec creates an arbitrary object, typically an instance of
// a CRD installed by a chart release.
type CustomResourceSpec struct {
	APIVersion    string            `json:"apiVersion" yaml:"apiVersion"`
	ResourceKind  string            `json:"kind" yaml:"kind"`
	ClusterScoped bool              `json:"clusterScoped,omitempty" yaml:"clusterScoped,omitempty"`
	Labels        map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Spec          map[string]any    `json:"spec,omitempty" yaml:"spec,omitempty"`
}

func (CustomResourceSpec) Kind() Kind { return KindCustomResource }

// RawManifestSpec applies multi-document YAML from a URL or local files.
// Files are paths or glob patterns, applied in order with each pattern's
// matches sorted; URL is used when no file is given.
type RawManifestSpec struct {
	URL   string   `json:"url,omitempty" yaml:"url,omitempty"`
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
	// DefaultNamespace is set on namespaced objects that carry none.
	DefaultNamespace    string            `json:"defaultNamespace,omitempty" yaml:"defaultNamespace,omitempty"`
	APIVersionOverrides map[string]string `json:"apiVersionOverrides,omitempty" yaml:"apiVersionOverrides,omitempty"`
}

func (RawManifestSpec) Kind() Kind { return KindRawManifest }
