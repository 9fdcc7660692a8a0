package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

const redisClusterProxyRepo = "https://github.com/vitobotta/redis-cluster-proxy-helm.git"

// RedisClusterProxyArgs configures redis-cluster-proxy.
type RedisClusterProxyArgs struct {
	ClusterAddress *string `yaml:"clusterAddress,omitempty"`
	Port           *string `yaml:"port,omitempty"`
	Namespace      *string `yaml:"namespace,omitempty"`
	// Ref is the git ref of the chart repository.
	Ref *string `yaml:"ref,omitempty"`
}

// RedisClusterProxy installs a chart checked out from git.
type RedisClusterProxy struct {
	Args RedisClusterProxyArgs

	clusterAddress string
	port           string
	namespace      string
	chart          artifact.Source
}

// NewRedisClusterProxy returns the redis-cluster-proxy definition.
func NewRedisClusterProxy(args RedisClusterProxyArgs) *RedisClusterProxy {
	return &RedisClusterProxy{Args: args}
}

func (p *RedisClusterProxy) Type() string { return "redis-cluster-proxy" }

func (p *RedisClusterProxy) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	p.clusterAddress = requiredSetting(s, "clusterAddress", p.Args.ClusterAddress)
	p.port = setting(s, "port", p.Args.Port, "7777")
	p.namespace = setting(s, "namespace", p.Args.Namespace, "redis-cluster-proxy")
	ref := setting(s, "ref", p.Args.Ref, "master")
	if s.err != nil {
		return s.err
	}
	p.chart = artifact.Source{Kind: artifact.KindGit, URL: redisClusterProxyRepo, Version: ref}
	return nil
}

func (p *RedisClusterProxy) Artifacts() []artifact.Source { return []artifact.Source{p.chart} }

func (p *RedisClusterProxy) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, p.namespace)
	_, err := release(b, fetched, p.chart, p.namespace, graph.ChartReleaseSpec{
		Values: helm.Values{
			"cluster_address": p.clusterAddress,
			"port":            p.port,
		},
	}, ns)
	return err
}
