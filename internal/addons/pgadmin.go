package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// PgAdminArgs configures pgAdmin 4.
type PgAdminArgs struct {
	Namespace               *string       `yaml:"namespace,omitempty"`
	Version                 *string       `yaml:"version,omitempty"`
	Email                   *string       `yaml:"email,omitempty"`
	Password                *secret.Value `yaml:"password,omitempty"`
	PersistenceEnabled      *bool         `yaml:"persistenceEnabled,omitempty"`
	PersistenceStorageClass *string       `yaml:"persistenceStorageClass,omitempty"`
	PersistenceSize         *string       `yaml:"persistenceSize,omitempty"`
}

// PgAdmin installs the runix pgadmin4 chart behind a ClusterIP service.
type PgAdmin struct {
	Args PgAdminArgs

	namespace    string
	email        string
	password     secret.Value
	persistence  bool
	storageClass string
	size         string
	chart        artifact.Source
}

// NewPgAdmin returns the pgadmin definition.
func NewPgAdmin(args PgAdminArgs) *PgAdmin {
	return &PgAdmin{Args: args}
}

func (p *PgAdmin) Type() string { return "pgadmin" }

func (p *PgAdmin) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	p.namespace = setting(s, "namespace", p.Args.Namespace, "pgadmin")
	version := setting(s, "version", p.Args.Version, "")
	p.email = requiredSetting(s, "email", p.Args.Email)
	p.password = requiredSecret(s, "password", p.Args.Password)
	p.persistence = setting(s, "persistenceEnabled", p.Args.PersistenceEnabled, false)
	p.storageClass = setting(s, "persistenceStorageClass", p.Args.PersistenceStorageClass, "")
	p.size = setting(s, "persistenceSize", p.Args.PersistenceSize, "1Gi")
	if s.err != nil {
		return s.err
	}
	chart, err := repoChart(p.Type(), version)
	if err != nil {
		return err
	}
	p.chart = chart
	return nil
}

func (p *PgAdmin) Artifacts() []artifact.Source { return []artifact.Source{p.chart} }

func (p *PgAdmin) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, p.namespace)
	_, err := release(b, fetched, p.chart, p.namespace, graph.ChartReleaseSpec{
		Values: helm.Values{
			"env": helm.Values{
				"email":    p.email,
				"password": p.password,
			},
			"persistentVolume": persistenceValues(p.persistence, p.storageClass, p.size),
			"service":          helm.Values{"type": ServiceTypeClusterIP},
			"ingress":          helm.Values{"enabled": false},
		},
	}, ns)
	return err
}
