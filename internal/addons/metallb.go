package addons

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// MetalLBArgs configures MetalLB in layer 2 mode.
type MetalLBArgs struct {
	Addresses []string      `yaml:"addresses,omitempty"`
	SecretKey *secret.Value `yaml:"secretKey,omitempty"`
	Namespace *string       `yaml:"namespace,omitempty"`
	Version   *string       `yaml:"version,omitempty"`
}

// MetalLB applies the upstream manifest with one layer 2 address pool.
type MetalLB struct {
	Args MetalLBArgs

	addresses []string
	secretKey secret.Value
	namespace string
	manifest  artifact.Source
}

// NewMetalLB returns the metallb definition.
func NewMetalLB(args MetalLBArgs) *MetalLB {
	return &MetalLB{Args: args}
}

func (m *MetalLB) Type() string { return "metallb" }

func (m *MetalLB) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	version := setting(s, "version", m.Args.Version, "v0.9.3")
	m.secretKey = requiredSecret(s, "secretKey", m.Args.SecretKey)
	m.namespace = setting(s, "namespace", m.Args.Namespace, "metallb-system")
	m.addresses = requiredSetting(s, "addresses", sliceArg(m.Args.Addresses))
	if s.err != nil {
		return s.err
	}
	if len(m.addresses) == 0 {
		return errNoAddresses
	}
	m.manifest = artifact.Source{
		Kind:    artifact.KindManifest,
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/google/metallb/%s/manifests/metallb.yaml", version),
		Name:    "metallb",
		Version: version,
	}
	return nil
}

func (m *MetalLB) Artifacts() []artifact.Source { return []artifact.Source{m.manifest} }

type addressPool struct {
	Name      string   `yaml:"name"`
	Protocol  string   `yaml:"protocol"`
	Addresses []string `yaml:"addresses"`
}

// poolConfig is the config file MetalLB reads from its ConfigMap.
func (m *MetalLB) poolConfig() (string, error) {
	out, err := yaml.Marshal(map[string][]addressPool{
		"address-pools": {{Name: "default", Protocol: "layer2", Addresses: m.addresses}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode address pools: %w", err)
	}
	return string(out), nil
}

func (m *MetalLB) Build(b *graph.Builder, fetched component.Artifacts) error {
	entry, err := fetched.Get(m.manifest)
	if err != nil {
		return err
	}
	pools, err := m.poolConfig()
	if err != nil {
		return err
	}

	ns := component.Namespace(b, m.namespace)
	b.Add(m.namespace, "config", graph.ConfigMapSpec{Data: map[string]string{"config": pools}}, ns)
	memberlist := b.Add(m.namespace, "memberlist", graph.SecretSpec{
		Data: map[string]secret.Value{"secretkey": m.secretKey},
	}, ns)
	b.Add("", b.Component()+"-manifest", manifestSpec(entry), memberlist)
	return nil
}
