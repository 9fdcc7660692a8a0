package helm

// ChartSpec locates a chart in a Helm repository.
type ChartSpec struct {
	Repository string
	Name       string
	Version    string
}

// Repositories used by the catalog.
const (
	RepoStable    = "https://kubernetes-charts.storage.googleapis.com"
	RepoIncubator = "https://kubernetes-charts-incubator.storage.googleapis.com"
	RepoBitnami   = "https://charts.bitnami.com/bitnami"
)

// DefaultChartSpecs maps catalog components to the chart they install.
// An empty Version means the repository's latest chart.
var DefaultChartSpecs = map[string]ChartSpec{
	"anycable": {
		Repository: "https://helm.anycable.io",
		Name:       "anycable-go",
	},
	"cert-manager": {
		Repository: "https://charts.jetstack.io",
		Name:       "cert-manager",
		Version:    "v1.0.1",
	},
	"haproxy-ingress": {
		Repository: RepoIncubator,
		Name:       "haproxy-ingress",
	},
	"harbor": {
		Repository: "https://helm.goharbor.io",
		Name:       "harbor",
		Version:    "1.3.1",
	},
	"hcloud-fip-controller": {
		Repository: "https://cbeneke.github.com/helm-charts",
		Name:       "hcloud-fip-controller",
	},
	"memcached": {
		Repository: RepoStable,
		Name:       "memcached",
	},
	"metrics-server": {
		Repository: RepoStable,
		Name:       "metrics-server",
	},
	"minio": {
		Repository: RepoStable,
		Name:       "minio",
	},
	"nginx-ingress": {
		Repository: RepoStable,
		Name:       "nginx-ingress",
		Version:    "3.7.1",
	},
	"pgadmin": {
		Repository: "https://helm.runix.net",
		Name:       "pgadmin4",
	},
	"redis": {
		Repository: RepoBitnami,
		Name:       "redis",
	},
	"redis-cluster": {
		Repository: RepoBitnami,
		Name:       "redis-cluster",
	},
}

// GetChartSpec returns the chart for a catalog component with the version
// replaced when version is non-empty. ok is false for unknown components.
func GetChartSpec(component, version string) (ChartSpec, bool) {
	spec, ok := DefaultChartSpecs[component]
	if !ok {
		return ChartSpec{}, false
	}
	if version != "" {
		spec.Version = version
	}
	return spec, true
}
