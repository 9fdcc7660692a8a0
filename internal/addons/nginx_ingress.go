package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// NginxIngressArgs configures the NGINX ingress controller.
type NginxIngressArgs struct {
	Version             *string `yaml:"version,omitempty"`
	Namespace           *string `yaml:"namespace,omitempty"`
	ServiceType         *string `yaml:"serviceType,omitempty"`
	IngressClass        *string `yaml:"ingressClass,omitempty"`
	NodePortHTTP        *int    `yaml:"nodePortHTTP,omitempty"`
	NodePortHTTPS       *int    `yaml:"nodePortHTTPS,omitempty"`
	ReplicaCount        *int    `yaml:"replicaCount,omitempty"`
	UseProxyProtocol    *string `yaml:"useProxyProtocol,omitempty"`
	UseForwardedHeaders *string `yaml:"useForwardedHeaders,omitempty"`
	ClientMaxBodySize   *string `yaml:"clientMaxBodySize,omitempty"`
}

// NginxIngress installs the stable/nginx-ingress chart plus the
// controller ConfigMap.
type NginxIngress struct {
	Args NginxIngressArgs

	namespace           string
	serviceType         string
	ingressClass        string
	replicaCount        int
	useProxyProtocol    string
	useForwardedHeaders string
	clientMaxBodySize   string
	exposure            Exposure
	chart               artifact.Source
}

// NewNginxIngress returns the nginx-ingress definition.
func NewNginxIngress(args NginxIngressArgs) *NginxIngress {
	return &NginxIngress{Args: args}
}

func (n *NginxIngress) Type() string { return "nginx-ingress" }

func (n *NginxIngress) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	version := setting(s, "version", n.Args.Version, "3.7.1")
	n.namespace = setting(s, "namespace", n.Args.Namespace, "nginx-ingress")
	n.serviceType = setting(s, "serviceType", n.Args.ServiceType, ServiceTypeClusterIP)
	n.ingressClass = setting(s, "ingressClass", n.Args.IngressClass, "nginx")
	httpPort := setting(s, "nodePortHTTP", n.Args.NodePortHTTP, 30080)
	httpsPort := setting(s, "nodePortHTTPS", n.Args.NodePortHTTPS, 30443)
	n.replicaCount = setting(s, "replicaCount", n.Args.ReplicaCount, 1)
	n.useProxyProtocol = setting(s, "useProxyProtocol", n.Args.UseProxyProtocol, "false")
	n.useForwardedHeaders = setting(s, "useForwardedHeaders", n.Args.UseForwardedHeaders, "true")
	n.clientMaxBodySize = setting(s, "clientMaxBodySize", n.Args.ClientMaxBodySize, "0")
	if s.err != nil {
		return s.err
	}
	n.exposure = ExposureFor(n.serviceType, httpPort, httpsPort)
	chart, err := repoChart(n.Type(), version)
	if err != nil {
		return err
	}
	n.chart = chart
	return nil
}

func (n *NginxIngress) Artifacts() []artifact.Source { return []artifact.Source{n.chart} }

func (n *NginxIngress) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, n.namespace)
	chart, err := release(b, fetched, n.chart, n.namespace, graph.ChartReleaseSpec{Values: n.values()}, ns)
	if err != nil {
		return err
	}
	b.Add(n.namespace, b.Component()+"-controller", graph.ConfigMapSpec{Data: n.controllerConfig()}, chart)
	return nil
}

func (n *NginxIngress) values() helm.Values {
	service := helm.Values{
		"type":                  n.serviceType,
		"externalTrafficPolicy": n.exposure.ExternalTrafficPolicy,
	}
	if n.exposure.NodePorts != nil {
		service["nodePorts"] = helm.Values{
			"http":  n.exposure.NodePorts["http"],
			"https": n.exposure.NodePorts["https"],
		}
	}
	return helm.Values{
		"controller": helm.Values{
			"kind":         n.exposure.Kind,
			"replicaCount": n.replicaCount,
			"service":      service,
			"ingressClass": n.ingressClass,
			"daemonset": helm.Values{
				"useHostPort": n.exposure.UseHostPort,
			},
			"hostNetwork": n.exposure.HostNetwork,
			"metrics": helm.Values{
				"enabled": true,
				"service": helm.Values{"type": ServiceTypeClusterIP},
			},
		},
	}
}

func (n *NginxIngress) controllerConfig() map[string]string {
	return map[string]string{
		"use-proxy-protocol":    n.useProxyProtocol,
		"use-forwarded-headers": n.useForwardedHeaders,
		"client-max-body-size":  n.clientMaxBodySize,
		"http-redirect-code":    "301",
		"map-hash-bucket-size":  "128",
		"proxy-buffer-size":     "8k",
		"proxy-buffers":         "4 8k",
		"enable-brotli":         "true",
		"ssl-protocols":         "TLSv1.3 TLSv1.2",
	}
}
