package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// HarborArgs configures the Harbor registry.
type HarborArgs struct {
	Namespace                  *string       `yaml:"namespace,omitempty"`
	Hostname                   *string       `yaml:"hostname,omitempty"`
	ExposeType                 *string       `yaml:"exposeType,omitempty"`
	IngressClass               *string       `yaml:"ingressClass,omitempty"`
	CertManagerClusterIssuer   *string       `yaml:"certManagerClusterIssuer,omitempty"`
	TLSSecretName              *string       `yaml:"tlsSecretName,omitempty"`
	TLSEnabled                 *bool         `yaml:"tlsEnabled,omitempty"`
	VeleroBackupEnabled        *bool         `yaml:"veleroBackupEnabled,omitempty"`
	ClairEnabled               *bool         `yaml:"clairEnabled,omitempty"`
	PersistenceEnabled         *bool         `yaml:"persistenceEnabled,omitempty"`
	StorageClass               *string       `yaml:"storageClass,omitempty"`
	PersistenceRegistrySize    *string       `yaml:"persistenceRegistrySize,omitempty"`
	PersistenceChartMuseumSize *string       `yaml:"persistenceChartMuseumSize,omitempty"`
	PersistenceJobServiceSize  *string       `yaml:"persistenceJobServiceSize,omitempty"`
	PersistenceDatabaseSize    *string       `yaml:"persistenceDatabaseSize,omitempty"`
	PersistenceRedisSize       *string       `yaml:"persistenceRedisSize,omitempty"`
	Version                    *string       `yaml:"version,omitempty"`
	AdminPassword              *secret.Value `yaml:"adminPassword,omitempty"`
	SecretKey                  *secret.Value `yaml:"secretKey,omitempty"`
}

// Harbor installs the goharbor chart with internal database and redis.
type Harbor struct {
	Args HarborArgs

	namespace     string
	hostname      string
	exposeType    string
	ingressClass  string
	clusterIssuer string
	tlsSecretName string
	tlsEnabled    bool
	backup        bool
	clair         bool
	persistence   bool
	storageClass  string
	sizes         map[string]string
	adminPassword secret.Value
	secretKey     secret.Value
	chart         artifact.Source
}

// NewHarbor returns the harbor definition.
func NewHarbor(args HarborArgs) *Harbor {
	return &Harbor{Args: args}
}

func (h *Harbor) Type() string { return "harbor" }

func (h *Harbor) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	h.adminPassword = requiredSecret(s, "adminPassword", h.Args.AdminPassword)
	h.secretKey = requiredSecret(s, "secretKey", h.Args.SecretKey)
	h.namespace = setting(s, "namespace", h.Args.Namespace, "harbor")
	version := setting(s, "version", h.Args.Version, "1.3.1")
	h.hostname = requiredSetting(s, "hostname", h.Args.Hostname)
	h.exposeType = setting(s, "exposeType", h.Args.ExposeType, "ingress")
	h.ingressClass = setting(s, "ingressClass", h.Args.IngressClass, "nginx")
	h.clusterIssuer = setting(s, "certManagerClusterIssuer", h.Args.CertManagerClusterIssuer, "letsencrypt-prod")
	h.tlsSecretName = setting(s, "tlsSecretName", h.Args.TLSSecretName, "harbor-ingress-cert")
	h.tlsEnabled = setting(s, "tlsEnabled", h.Args.TLSEnabled, true)
	h.backup = setting(s, "veleroBackupEnabled", h.Args.VeleroBackupEnabled, false)
	h.clair = setting(s, "clairEnabled", h.Args.ClairEnabled, true)
	h.persistence = setting(s, "persistenceEnabled", h.Args.PersistenceEnabled, true)
	h.storageClass = setting(s, "storageClass", h.Args.StorageClass, "")
	h.sizes = map[string]string{
		"registry":    setting(s, "persistenceRegistrySize", h.Args.PersistenceRegistrySize, "50Gi"),
		"chartmuseum": setting(s, "persistenceChartMuseumSize", h.Args.PersistenceChartMuseumSize, "5Gi"),
		"jobservice":  setting(s, "persistenceJobServiceSize", h.Args.PersistenceJobServiceSize, "1Gi"),
		"database":    setting(s, "persistenceDatabaseSize", h.Args.PersistenceDatabaseSize, "5Gi"),
		"redis":       setting(s, "persistenceRedisSize", h.Args.PersistenceRedisSize, "1Gi"),
	}
	if s.err != nil {
		return s.err
	}
	chart, err := repoChart(h.Type(), version)
	if err != nil {
		return err
	}
	h.chart = chart
	return nil
}

func (h *Harbor) Artifacts() []artifact.Source { return []artifact.Source{h.chart} }

func (h *Harbor) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, h.namespace)
	_, err := release(b, fetched, h.chart, h.namespace, graph.ChartReleaseSpec{Values: h.values()}, ns)
	return err
}

func (h *Harbor) externalURL() string {
	if h.tlsEnabled {
		return "https://" + h.hostname
	}
	return "http://" + h.hostname
}

func (h *Harbor) values() helm.Values {
	ingress := helm.Values{}
	if h.exposeType == "ingress" {
		annotations := ingressAnnotations(h.clusterIssuer, h.ingressClass)
		annotations["kubernetes.io/tls-acme"] = "true"
		ingress = helm.Values{
			"annotations": annotations,
			"hosts":       helm.Values{"core": h.hostname},
		}
	}

	persistence := helm.Values{}
	if h.persistence {
		claims := helm.Values{}
		for name, size := range h.sizes {
			claims[name] = helm.Values{"storageClass": h.storageClass, "size": size}
		}
		persistence = helm.Values{"persistentVolumeClaim": claims}
	}

	return helm.Values{
		"expose": helm.Values{
			"type":    h.exposeType,
			"ingress": ingress,
			"tls": helm.Values{
				"enabled":    h.tlsEnabled,
				"secretName": h.tlsSecretName,
			},
		},
		"persistence":         persistence,
		"externalURL":         h.externalURL(),
		"harborAdminPassword": h.adminPassword,
		"secretkey":           h.secretKey,
		"clair":               helm.Values{"enabled": h.clair},
		"notary":              helm.Values{"enabled": false},
		"database": helm.Values{
			"type":           "internal",
			"podAnnotations": backupAnnotations(h.backup, "database-data"),
		},
		"redis": helm.Values{
			"type":           "internal",
			"podAnnotations": backupAnnotations(h.backup, "data"),
		},
		"jobservice": helm.Values{"podAnnotations": backupAnnotations(h.backup, "job-logs")},
		"registry":   helm.Values{"podAnnotations": backupAnnotations(h.backup, "registry-data")},
	}
}
