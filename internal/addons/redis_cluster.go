package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// RedisClusterArgs configures a sharded redis cluster.
type RedisClusterArgs struct {
	MasterNodes             *int    `yaml:"masterNodes,omitempty"`
	ReplicasPerMaster       *int    `yaml:"replicasPerMaster,omitempty"`
	Namespace               *string `yaml:"namespace,omitempty"`
	Version                 *string `yaml:"version,omitempty"`
	PersistenceEnabled      *bool   `yaml:"persistenceEnabled,omitempty"`
	PersistenceStorageClass *string `yaml:"persistenceStorageClass,omitempty"`
	PersistenceSize         *string `yaml:"persistenceSize,omitempty"`
	MaxmemoryPolicy         *string `yaml:"maxmemoryPolicy,omitempty"`
	MemoryLimit             *string `yaml:"memoryLimit,omitempty"`
}

// RedisCluster installs bitnami/redis-cluster without authentication.
type RedisCluster struct {
	Args RedisClusterArgs

	masterNodes       int
	replicasPerMaster int
	namespace         string
	persistence       bool
	storageClass      string
	size              string
	maxmemoryPolicy   string
	memoryLimit       string
	chart             artifact.Source
}

// NewRedisCluster returns the redis-cluster definition.
func NewRedisCluster(args RedisClusterArgs) *RedisCluster {
	return &RedisCluster{Args: args}
}

func (r *RedisCluster) Type() string { return "redis-cluster" }

func (r *RedisCluster) Resolve(res *resolve.Resolver) error {
	s := newSettings(res)
	r.namespace = setting(s, "namespace", r.Args.Namespace, "redis-cluster")
	version := setting(s, "version", r.Args.Version, "")
	r.persistence = setting(s, "persistenceEnabled", r.Args.PersistenceEnabled, true)
	r.storageClass = setting(s, "persistenceStorageClass", r.Args.PersistenceStorageClass, "")
	r.size = setting(s, "persistenceSize", r.Args.PersistenceSize, "1Gi")
	r.masterNodes = setting(s, "masterNodes", r.Args.MasterNodes, 3)
	r.replicasPerMaster = setting(s, "replicasPerMaster", r.Args.ReplicasPerMaster, 1)
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

func (r *RedisCluster) Artifacts() []artifact.Source { return []artifact.Source{r.chart} }

func (r *RedisCluster) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, r.namespace)
	_, err := release(b, fetched, r.chart, r.namespace, graph.ChartReleaseSpec{
		Values: helm.Values{
			"usePassword": false,
			"cluster": helm.Values{
				"nodes":    r.masterNodes,
				"replicas": r.replicasPerMaster,
			},
			"persistence": persistenceValues(r.persistence, r.storageClass, r.size),
			"extraFlags":  []string{"--maxmemory-policy " + r.maxmemoryPolicy},
			"resources": helm.Values{
				"limits": resources("", r.memoryLimit),
			},
		},
	}, ns)
	return err
}
