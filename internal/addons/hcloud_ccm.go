package addons

import (
	"fmt"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// HCloudCCMArgs configures the Hetzner Cloud controller manager.
type HCloudCCMArgs struct {
	APIToken *secret.Value `yaml:"apiToken,omitempty"`
	Version  *string       `yaml:"version,omitempty"`
	Network  *string       `yaml:"network,omitempty"`
}

// HCloudCCM applies the upstream networks manifest after the API token
// secret it reads.
type HCloudCCM struct {
	Args HCloudCCMArgs

	token    secret.Value
	network  string
	manifest artifact.Source
}

// NewHCloudCCM returns the hcloud-ccm definition.
func NewHCloudCCM(args HCloudCCMArgs) *HCloudCCM {
	return &HCloudCCM{Args: args}
}

func (h *HCloudCCM) Type() string { return "hcloud-ccm" }

func (h *HCloudCCM) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	h.token = requiredSecret(s, "apiToken", h.Args.APIToken)
	version := setting(s, "version", h.Args.Version, "v1.6.1")
	h.network = setting(s, "network", h.Args.Network, "default")
	if s.err != nil {
		return s.err
	}
	h.manifest = artifact.Source{
		Kind:    artifact.KindManifest,
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/hetznercloud/hcloud-cloud-controller-manager/master/deploy/%s-networks.yaml", version),
		Name:    "hcloud-ccm",
		Version: version,
	}
	return nil
}

func (h *HCloudCCM) Artifacts() []artifact.Source { return []artifact.Source{h.manifest} }

// Network returns the API token and the private network the controller
// routes through, for preflight checks.
func (h *HCloudCCM) Network() (token secret.Value, network string) {
	return h.token, h.network
}

func (h *HCloudCCM) Build(b *graph.Builder, fetched component.Artifacts) error {
	entry, err := fetched.Get(h.manifest)
	if err != nil {
		return err
	}
	token := b.Add("kube-system", "hcloud", graph.SecretSpec{
		Data: map[string]secret.Value{
			"token":   h.token,
			"network": secret.New(h.network),
		},
	})
	b.Add("kube-system", b.Component()+"-manifest", manifestSpec(entry), token)
	return nil
}
