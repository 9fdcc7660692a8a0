package addons

import (
	"fmt"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// HCloudCSIArgs configures the Hetzner Cloud CSI driver.
type HCloudCSIArgs struct {
	Version *string       `yaml:"version,omitempty"`
	Token   *secret.Value `yaml:"token,omitempty"`
}

// HCloudCSI applies the upstream CSI driver manifest after its token
// secret.
type HCloudCSI struct {
	Args HCloudCSIArgs

	token    secret.Value
	manifest artifact.Source
}

// NewHCloudCSI returns the hcloud-csi definition.
func NewHCloudCSI(args HCloudCSIArgs) *HCloudCSI {
	return &HCloudCSI{Args: args}
}

func (h *HCloudCSI) Type() string { return "hcloud-csi" }

func (h *HCloudCSI) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	version := setting(s, "version", h.Args.Version, "1.5.1")
	h.token = requiredSecret(s, "token", h.Args.Token)
	if s.err != nil {
		return s.err
	}
	h.manifest = artifact.Source{
		Kind:    artifact.KindManifest,
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/hetznercloud/csi-driver/v%s/deploy/kubernetes/hcloud-csi.yml", version),
		Name:    "hcloud-csi",
		Version: version,
	}
	return nil
}

func (h *HCloudCSI) Artifacts() []artifact.Source { return []artifact.Source{h.manifest} }

func (h *HCloudCSI) Build(b *graph.Builder, fetched component.Artifacts) error {
	entry, err := fetched.Get(h.manifest)
	if err != nil {
		return err
	}
	token := b.Add("kube-system", "hcloud-csi", graph.SecretSpec{
		Data: map[string]secret.Value{"token": h.token},
	})
	b.Add("kube-system", b.Component()+"-manifest", manifestSpec(entry), token)
	return nil
}
