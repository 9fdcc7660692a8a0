package addons

import (
	"strconv"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
)

// HAProxyIngressArgs configures the HAProxy ingress controller.
type HAProxyIngressArgs struct {
	Namespace                    *string           `yaml:"namespace,omitempty"`
	Version                      *string           `yaml:"version,omitempty"`
	ControllerImageTag           *string           `yaml:"controllerImageTag,omitempty"`
	ConfigMapData                map[string]string `yaml:"configMapData,omitempty"`
	UseHostNetwork               *bool             `yaml:"useHostNetwork,omitempty"`
	ControllerKind               *string           `yaml:"controllerKind,omitempty"`
	DaemonsetUseHostPort         *bool             `yaml:"daemonsetUseHostPort,omitempty"`
	DaemonsetHTTPHostPort        *string           `yaml:"daemonsetHttpHostPort,omitempty"`
	DaemonsetHTTPSHostPort       *string           `yaml:"daemonsetHttpsHostPort,omitempty"`
	DeploymentReplicaCount       *int              `yaml:"deploymentReplicaCount,omitempty"`
	ServiceAnnotations           map[string]string `yaml:"serviceAnnotations,omitempty"`
	ServiceExternalTrafficPolicy *string           `yaml:"serviceExternalTrafficPolicy,omitempty"`
	ServiceType                  *string           `yaml:"serviceType,omitempty"`
	UseProxyProtocol             *bool             `yaml:"useProxyProtocol,omitempty"`
	IngressClass                 *string           `yaml:"ingressClass,omitempty"`
}

// HAProxyIngress installs incubator/haproxy-ingress and the controller
// ConfigMap.
type HAProxyIngress struct {
	Args HAProxyIngressArgs

	namespace          string
	imageTag           string
	configMapData      map[string]string
	hostNetwork        bool
	kind               string
	useHostPort        bool
	httpHostPort       string
	httpsHostPort      string
	replicas           int
	serviceAnnotations map[string]string
	trafficPolicy      string
	serviceType        string
	useProxyProtocol   bool
	ingressClass       string
	chart              artifact.Source
}

// NewHAProxyIngress returns the haproxy-ingress definition.
func NewHAProxyIngress(args HAProxyIngressArgs) *HAProxyIngress {
	return &HAProxyIngress{Args: args}
}

func (h *HAProxyIngress) Type() string { return "haproxy-ingress" }

func (h *HAProxyIngress) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	h.namespace = setting(s, "namespace", h.Args.Namespace, "haproxy-ingress")
	version := setting(s, "version", h.Args.Version, "")
	h.imageTag = setting(s, "controllerImageTag", h.Args.ControllerImageTag, "v0.10-snapshot.5")
	h.configMapData = setting(s, "configMapData", mapArg(h.Args.ConfigMapData), map[string]string{})
	h.hostNetwork = setting(s, "useHostNetwork", h.Args.UseHostNetwork, false)
	h.kind = setting(s, "controllerKind", h.Args.ControllerKind, "Deployment")
	h.useHostPort = setting(s, "daemonsetUseHostPort", h.Args.DaemonsetUseHostPort, true)
	h.httpHostPort = setting(s, "daemonsetHttpHostPort", h.Args.DaemonsetHTTPHostPort, "80")
	h.httpsHostPort = setting(s, "daemonsetHttpsHostPort", h.Args.DaemonsetHTTPSHostPort, "443")
	h.replicas = setting(s, "deploymentReplicaCount", h.Args.DeploymentReplicaCount, 1)
	h.serviceAnnotations = setting(s, "serviceAnnotations", mapArg(h.Args.ServiceAnnotations), map[string]string{})
	h.trafficPolicy = setting(s, "serviceExternalTrafficPolicy", h.Args.ServiceExternalTrafficPolicy, "Local")
	h.serviceType = setting(s, "serviceType", h.Args.ServiceType, ServiceTypeLoadBalancer)
	h.useProxyProtocol = setting(s, "useProxyProtocol", h.Args.UseProxyProtocol, false)
	h.ingressClass = setting(s, "ingressClass", h.Args.IngressClass, "haproxy")
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

func (h *HAProxyIngress) Artifacts() []artifact.Source { return []artifact.Source{h.chart} }

func (h *HAProxyIngress) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, h.namespace)
	chart, err := release(b, fetched, h.chart, h.namespace, graph.ChartReleaseSpec{Values: h.values()}, ns)
	if err != nil {
		return err
	}
	b.Add(h.namespace, b.Component()+"-controller", graph.ConfigMapSpec{Data: h.controllerConfig()}, chart)
	return nil
}

// controllerConfig is the configured data, or the tuned defaults when none
// was given.
func (h *HAProxyIngress) controllerConfig() map[string]string {
	if len(h.configMapData) > 0 {
		return h.configMapData
	}
	return map[string]string{
		"healthz-port":       "10253",
		"syslog-endpoint":    "127.0.0.1:514",
		"ssl-redirect":       "true",
		"ssl-redirect-code":  "301",
		"forwardfor":         "ifmissing",
		"max-connections":    "10000",
		"proxy-body-size":    "50m",
		"use-proxy-protocol": strconv.FormatBool(h.useProxyProtocol),
	}
}

func (h *HAProxyIngress) values() helm.Values {
	return helm.Values{
		"controller": helm.Values{
			"image":         helm.Values{"tag": h.imageTag},
			"ingressClass":  h.ingressClass,
			"configMapData": stringValues(h.configMapData),
			"hostNetwork":   h.hostNetwork,
			"kind":          h.kind,
			"daemonset": helm.Values{
				"useHostPort": h.useHostPort,
				"hostPorts": helm.Values{
					"http":  h.httpHostPort,
					"https": h.httpsHostPort,
				},
			},
			"replicaCount": h.replicas,
			"service": helm.Values{
				"annotations":           stringValues(h.serviceAnnotations),
				"externalTrafficPolicy": h.trafficPolicy,
				"type":                  h.serviceType,
			},
			"metrics": helm.Values{"enabled": true},
			"logs":    helm.Values{"enabled": true},
		},
		"stats": helm.Values{
			"enabled": true,
			"service": helm.Values{"type": ServiceTypeClusterIP},
		},
	}
}
