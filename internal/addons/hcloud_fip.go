package addons

import (
	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// HCloudFIPControllerArgs configures the floating IP controller.
type HCloudFIPControllerArgs struct {
	Addresses       []string      `yaml:"addresses,omitempty"`
	APIToken        *secret.Value `yaml:"apiToken,omitempty"`
	Namespace       *string       `yaml:"namespace,omitempty"`
	Version         *string       `yaml:"version,omitempty"`
	NodeAddressType *string       `yaml:"nodeAddressType,omitempty"`
	ReplicaCount    *int          `yaml:"replicaCount,omitempty"`
}

// HCloudFIPController installs cbeneke/hcloud-fip-controller, which moves
// the floating IPs onto a healthy node.
type HCloudFIPController struct {
	Args HCloudFIPControllerArgs

	addresses       []string
	token           secret.Value
	namespace       string
	nodeAddressType string
	replicas        int
	chart           artifact.Source
}

// NewHCloudFIPController returns the hcloud-fip-controller definition.
func NewHCloudFIPController(args HCloudFIPControllerArgs) *HCloudFIPController {
	return &HCloudFIPController{Args: args}
}

func (h *HCloudFIPController) Type() string { return "hcloud-fip-controller" }

func (h *HCloudFIPController) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	h.token = requiredSecret(s, "apiToken", h.Args.APIToken)
	h.namespace = setting(s, "namespace", h.Args.Namespace, "hcloud-fip-controller")
	version := setting(s, "version", h.Args.Version, "")
	h.addresses = requiredSetting(s, "addresses", sliceArg(h.Args.Addresses))
	h.nodeAddressType = setting(s, "nodeAddressType", h.Args.NodeAddressType, "internal")
	h.replicas = setting(s, "replicaCount", h.Args.ReplicaCount, 3)
	if s.err != nil {
		return s.err
	}
	if len(h.addresses) == 0 {
		return errNoAddresses
	}
	chart, err := repoChart(h.Type(), version)
	if err != nil {
		return err
	}
	h.chart = chart
	return nil
}

func (h *HCloudFIPController) Artifacts() []artifact.Source { return []artifact.Source{h.chart} }

// FloatingIPs returns the API token and the addresses the controller
// manages, for preflight checks.
func (h *HCloudFIPController) FloatingIPs() (token secret.Value, addresses []string) {
	return h.token, h.addresses
}

func (h *HCloudFIPController) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, h.namespace)
	_, err := release(b, fetched, h.chart, h.namespace, graph.ChartReleaseSpec{
		Values: helm.Values{
			"replicaCount": h.replicas,
			"configInline": helm.Values{
				"hcloud_floating_ips": h.addresses,
				"node_address_type":   h.nodeAddressType,
			},
			"secretInline": secret.Sprintf("HCLOUD_API_TOKEN: '%s'", h.token),
		},
	}, ns)
	return err
}
