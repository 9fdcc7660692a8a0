package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// RedisArgs configures a master/replica redis.
type RedisArgs struct {
	Namespace               *string `yaml:"namespace,omitempty"`
	Version                 *string `yaml:"version,omitempty"`
	ClusterEnabled          *bool   `yaml:"clusterEnabled,omitempty"`
	SlaveCount              *int    `yaml:"slaveCount,omitempty"`
	SentinelEnabled         *bool   `yaml:"sentinelEnabled,omitempty"`
	PersistenceEnabled      *bool   `yaml:"persistenceEnabled,omitempty"`
	PersistenceStorageClass *string `yaml:"persistenceStorageClass,omitempty"`
	PersistenceSize         *string `yaml:"persistenceSize,omitempty"`
	MaxmemoryPolicy         *string `yaml:"maxmemoryPolicy,omitempty"`
	MemoryLimit             *string `yaml:"memoryLimit,omitempty"`
}

// Redis installs bitnami/redis without authentication.
type Redis struct {
	Args RedisArgs

	namespace       string
	cluster         bool
	slaveCount      int
	sentinel        bool
	persistence     bool
	storageClass    string
	size            string
	maxmemoryPolicy string
	memoryLimit     string
	chart           artifact.Source
}

// NewRedis returns the redis definition.
func NewRedis(args RedisArgs) *Redis {
	return &Redis{Args: args}
}

func (r *Redis) Type() string { return "redis" }

func (r *Redis) Resolve(res *resolve.Resolver) error {
	s := newSettings(res)
	r.namespace = setting(s, "namespace", r.Args.Namespace, "redis")
	version := setting(s, "version", r.Args.Version, "")
	r.persistence = setting(s, "persistenceEnabled", r.Args.PersistenceEnabled, true)
	r.storageClass = setting(s, "persistenceStorageClass", r.Args.PersistenceStorageClass, "")
	r.size = setting(s, "persistenceSize", r.Args.PersistenceSize, "1Gi")
	r.cluster = setting(s, "clusterEnabled", r.Args.ClusterEnabled, false)
	r.slaveCount = setting(s, "slaveCount", r.Args.SlaveCount, 1)
	r.sentinel = setting(s, "sentinelEnabled", r.Args.SentinelEnabled, false)
	r.maxmemoryPolicy = setting(s, "maxmemoryPolicy", r.Args.MaxmemoryPolicy, "noeviction")
	r.memoryLimit = setting(s, "memoryLimit", r.Args.MemoryLimit, "1Gi")
	if s.err != nil {
		return s.err
	}
	chart, err := repoChart(r.Type(), version)
	if err != nil {
		return err
	}
	r.chart = chart
	return nil
}

func (r *Redis) Artifacts() []artifact.Source { return []artifact.Source{r.chart} }

func (r *Redis) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, r.namespace)
	persistence := persistenceValues(r.persistence, r.storageClass, r.size)
	_, err := release(b, fetched, r.chart, r.namespace, graph.ChartReleaseSpec{
		Values: helm.Values{
			"usePassword": false,
			"cluster": helm.Values{
				"enabled":    r.cluster,
				"slaveCount": r.slaveCount,
			},
			"sentinel": helm.Values{"enabled": r.sentinel},
			"master": helm.Values{
				"persistence":     persistence,
				"extraFlags":      []string{"--maxmemory-policy " + r.maxmemoryPolicy},
				"disableCommands": []string{},
				"resources": helm.Values{
					"limits": resources("", r.memoryLimit),
				},
			},
			"slave":   helm.Values{"persistence": persistence},
			"metrics": helm.Values{"enabled": true},
		},
	}, ns)
	return err
}
