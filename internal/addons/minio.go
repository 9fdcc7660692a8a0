package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// MinioArgs configures the MinIO object store.
type MinioArgs struct {
	Namespace               *string       `yaml:"namespace,omitempty"`
	Version                 *string       `yaml:"version,omitempty"`
	Mode                    *string       `yaml:"mode,omitempty"`
	Replicas                *int          `yaml:"replicas,omitempty"`
	DrivesPerNode           *int          `yaml:"drivesPerNode,omitempty"`
	Zones                   *int          `yaml:"zones,omitempty"`
	PersistenceEnabled      *bool         `yaml:"persistenceEnabled,omitempty"`
	PersistenceStorageClass *string       `yaml:"persistenceStorageClass,omitempty"`
	PersistenceSize         *string       `yaml:"persistenceSize,omitempty"`
	VeleroBackupEnabled     *bool         `yaml:"veleroBackupEnabled,omitempty"`
	MemoryRequest           *string       `yaml:"memoryRequest,omitempty"`
	AccessKey               *secret.Value `yaml:"accessKey,omitempty"`
	SecretKey               *secret.Value `yaml:"secretKey,omitempty"`
}

// Minio installs the stable/minio chart. The chart still ships
// apps/v1beta2 workloads, which are rewritten to apps/v1.
type Minio struct {
	Args MinioArgs

	namespace     string
	mode          string
	replicas      int
	drivesPerNode int
	zones         int
	persistence   bool
	storageClass  string
	size          string
	backup        bool
	memoryRequest string
	accessKey     secret.Value
	secretKey     secret.Value
	chart         artifact.Source
}

// NewMinio returns the minio definition.
func NewMinio(args MinioArgs) *Minio {
	return &Minio{Args: args}
}

func (m *Minio) Type() string { return "minio" }

func (m *Minio) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	m.accessKey = requiredSecret(s, "accessKey", m.Args.AccessKey)
	m.secretKey = requiredSecret(s, "secretKey", m.Args.SecretKey)
	m.namespace = setting(s, "namespace", m.Args.Namespace, "minio")
	version := setting(s, "version", m.Args.Version, "")
	m.mode = setting(s, "mode", m.Args.Mode, "standalone")
	m.replicas = setting(s, "replicas", m.Args.Replicas, 4)
	m.drivesPerNode = setting(s, "drivesPerNode", m.Args.DrivesPerNode, 1)
	m.zones = setting(s, "zones", m.Args.Zones, 1)
	m.persistence = setting(s, "persistenceEnabled", m.Args.PersistenceEnabled, true)
	m.storageClass = setting(s, "persistenceStorageClass", m.Args.PersistenceStorageClass, "")
	m.size = setting(s, "persistenceSize", m.Args.PersistenceSize, "1Gi")
	m.memoryRequest = setting(s, "memoryRequest", m.Args.MemoryRequest, "512Mi")
	m.backup = setting(s, "veleroBackupEnabled", m.Args.VeleroBackupEnabled, false)
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

func (m *Minio) Artifacts() []artifact.Source { return []artifact.Source{m.chart} }

func (m *Minio) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, m.namespace)
	_, err := release(b, fetched, m.chart, m.namespace, graph.ChartReleaseSpec{
		Values:              m.values(),
		APIVersionOverrides: map[string]string{"apps/v1beta2": "apps/v1"},
	}, ns)
	return err
}

func (m *Minio) values() helm.Values {
	return helm.Values{
		"mode":          m.mode,
		"accessKey":     m.accessKey,
		"secretKey":     m.secretKey,
		"drivesPerNode": m.drivesPerNode,
		"replicas":      m.replicas,
		"zones":         m.zones,
		"persistence":   persistenceValues(m.persistence, m.storageClass, m.size),
		"service": helm.Values{
			"annotations": helm.Values{
				"prometheus.io/scrape": "true",
				"prometheus.io/path":   "/minio/prometheus/metrics",
				"prometheus.io/port":   "9000",
			},
		},
		"podAnnotations": backupAnnotations(m.backup, "export"),
		"metrics": helm.Values{
			"serviceMonitor": helm.Values{"enabled": true},
		},
		"resources": helm.Values{
			"requests": resources("", m.memoryRequest),
		},
	}
}
