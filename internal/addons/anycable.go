package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// AnyCableArgs configures the anycable-go websocket server.
type AnyCableArgs struct {
	Hostname                 *string       `yaml:"hostname,omitempty"`
	RedisChannel             *string       `yaml:"redisChannel,omitempty"`
	RPCHost                  *string       `yaml:"rpcHost,omitempty"`
	Namespace                *string       `yaml:"namespace,omitempty"`
	Version                  *string       `yaml:"version,omitempty"`
	IngressEnabled           *bool         `yaml:"ingressEnabled,omitempty"`
	RedisURL                 *secret.Value `yaml:"redisUrl,omitempty"`
	LogLevel                 *string       `yaml:"logLevel,omitempty"`
	ImageTag                 *string       `yaml:"imageTag,omitempty"`
	ReplicaCount             *int          `yaml:"replicaCount,omitempty"`
	CertManagerClusterIssuer *string       `yaml:"certManagerClusterIssuer,omitempty"`
	IngressClass             *string       `yaml:"ingressClass,omitempty"`
	CPU                      *string       `yaml:"cpu,omitempty"`
	Memory                   *string       `yaml:"memory,omitempty"`
}

// AnyCable installs anycable-go behind an ingress on /cable.
type AnyCable struct {
	Args AnyCableArgs

	hostname      string
	redisChannel  string
	rpcHost       string
	namespace     string
	ingress       bool
	redisURL      secret.Value
	logLevel      string
	imageTag      string
	replicas      int
	clusterIssuer string
	ingressClass  string
	cpu           string
	memory        string
	chart         artifact.Source
}

// NewAnyCable returns the anycable definition.
func NewAnyCable(args AnyCableArgs) *AnyCable {
	return &AnyCable{Args: args}
}

func (a *AnyCable) Type() string { return "anycable" }

func (a *AnyCable) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	a.redisURL = requiredSecret(s, "redisUrl", a.Args.RedisURL)
	a.hostname = requiredSetting(s, "hostname", a.Args.Hostname)
	a.redisChannel = requiredSetting(s, "redisChannel", a.Args.RedisChannel)
	a.rpcHost = requiredSetting(s, "rpcHost", a.Args.RPCHost)
	a.namespace = requiredSetting(s, "namespace", a.Args.Namespace)
	version := setting(s, "version", a.Args.Version, "")
	a.ingress = setting(s, "ingressEnabled", a.Args.IngressEnabled, true)
	a.logLevel = setting(s, "logLevel", a.Args.LogLevel, "info")
	a.imageTag = setting(s, "imageTag", a.Args.ImageTag, "1.0.0.preview1")
	a.replicas = setting(s, "replicaCount", a.Args.ReplicaCount, 1)
	a.clusterIssuer = setting(s, "certManagerClusterIssuer", a.Args.CertManagerClusterIssuer, "letsencrypt-prod")
	a.ingressClass = setting(s, "ingressClass", a.Args.IngressClass, "nginx")
	a.cpu = setting(s, "cpu", a.Args.CPU, "350m")
	a.memory = setting(s, "memory", a.Args.Memory, "400Mi")
	if s.err != nil {
		return s.err
	}
	chart, err := repoChart(a.Type(), version)
	if err != nil {
		return err
	}
	a.chart = chart
	return nil
}

func (a *AnyCable) Artifacts() []artifact.Source { return []artifact.Source{a.chart} }

func (a *AnyCable) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, a.namespace)
	_, err := release(b, fetched, a.chart, a.namespace, graph.ChartReleaseSpec{Values: a.values()}, ns)
	return err
}

func (a *AnyCable) values() helm.Values {
	return helm.Values{
		"image":    helm.Values{"tag": a.imageTag},
		"replicas": a.replicas,
		"ingress": helm.Values{
			"enable":      a.ingress,
			"path":        "/cable",
			"annotations": ingressAnnotations(a.clusterIssuer, a.ingressClass),
			"acme": helm.Values{
				"hosts": []string{a.hostname},
			},
		},
		"resources": helm.Values{
			"limits":   resources(a.cpu, a.memory),
			"requests": resources(a.cpu, a.memory),
		},
		"env": helm.Values{
			"anycableHost":           "0.0.0.0",
			"anycablePort":           "8080",
			"anycablePath":           "/cable",
			"anycableSslCert":        "",
			"anycableRedisUrl":       a.redisURL,
			"anycableRedisChannel":   a.redisChannel,
			"anycableRpcHost":        a.rpcHost,
			"anycableHeaders":        "cookie,origin,x-forwarded-for,cf-connecting-ip",
			"anycableDisconnectRate": "100",
			"anycableLogLevel":       a.logLevel,
			"anycableLogFormat":      "text",
			"anycableDebug":          "",
		},
	}
}
