package addons

import (
	"fmt"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

const (
	letsEncryptProduction = "https://acme-v02.api.letsencrypt.org/directory"
	letsEncryptStaging    = "https://acme-staging-v02.api.letsencrypt.org/directory"

	cloudflareSecretName = "cloudflare-api-key"
	cloudflareSecretKey  = "api-key"
)

// CertManagerArgs configures cert-manager and its Let's Encrypt issuers.
type CertManagerArgs struct {
	Version          *string       `yaml:"version,omitempty"`
	Namespace        *string       `yaml:"namespace,omitempty"`
	Email            *string       `yaml:"email,omitempty"`
	CloudflareEmail  *string       `yaml:"cloudflareEmail,omitempty"`
	CloudflareAPIKey *secret.Value `yaml:"cloudflareAPIKey,omitempty"`
	IngressClass     *string       `yaml:"ingressClass,omitempty"`
}

// CertManager installs the CRDs, the jetstack chart, the Cloudflare API
// key and one production and one staging ClusterIssuer.
type CertManager struct {
	Args CertManagerArgs

	version          string
	namespace        string
	email            string
	cloudflareEmail  string
	cloudflareAPIKey secret.Value
	ingressClass     string
	crds             artifact.Source
	chart            artifact.Source
}

// NewCertManager returns the cert-manager definition.
func NewCertManager(args CertManagerArgs) *CertManager {
	return &CertManager{Args: args}
}

func (c *CertManager) Type() string { return "cert-manager" }

func (c *CertManager) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	c.version = setting(s, "version", c.Args.Version, "v1.0.1")
	c.namespace = setting(s, "namespace", c.Args.Namespace, "cert-manager")
	c.email = requiredSetting(s, "email", c.Args.Email)
	c.cloudflareEmail = requiredSetting(s, "cloudflareEmail", c.Args.CloudflareEmail)
	c.cloudflareAPIKey = requiredSecret(s, "cloudflareAPIKey", c.Args.CloudflareAPIKey)
	c.ingressClass = setting(s, "ingressClass", c.Args.IngressClass, "nginx")
	if s.err != nil {
		return s.err
	}
	c.crds = artifact.Source{
		Kind:    artifact.KindManifest,
		URL:     fmt.Sprintf("https://github.com/jetstack/cert-manager/releases/download/%s/cert-manager.crds.yaml", c.version),
		Name:    "cert-manager-crds",
		Version: c.version,
	}
	chart, err := repoChart(c.Type(), c.version)
	if err != nil {
		return err
	}
	c.chart = chart
	return nil
}

func (c *CertManager) Artifacts() []artifact.Source {
	return []artifact.Source{c.crds, c.chart}
}

// Cloudflare returns the DNS01 solver credentials for preflight checks.
func (c *CertManager) Cloudflare() (email string, apiKey secret.Value) {
	return c.cloudflareEmail, c.cloudflareAPIKey
}

func (c *CertManager) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, c.namespace)

	crdEntry, err := fetched.Get(c.crds)
	if err != nil {
		return err
	}
	crds := b.Add("", b.Component()+"-crds", manifestSpec(crdEntry), ns)

	chart, err := release(b, fetched, c.chart, c.namespace, graph.ChartReleaseSpec{
		Values:   c.values(),
		SkipCRDs: true,
	}, ns, crds)
	if err != nil {
		return err
	}

	apiKey := b.Add(c.namespace, cloudflareSecretName, graph.SecretSpec{
		Data: map[string]secret.Value{cloudflareSecretKey: c.cloudflareAPIKey},
	}, chart)

	webhook := chart.Sub("apps/v1/Deployment", c.namespace+"/"+b.Component()+"-webhook")
	for _, issuer := range []struct{ name, server string }{
		{"letsencrypt-prod", letsEncryptProduction},
		{"letsencrypt-staging", letsEncryptStaging},
	} {
		b.Add("", issuer.name, c.clusterIssuer(issuer.name, issuer.server), chart, apiKey, webhook)
	}
	return nil
}

func (c *CertManager) values() helm.Values {
	return helm.Values{
		"extraArgs": []string{
			"--dns01-recursive-nameservers-only",
			"--dns01-recursive-nameservers=1.1.1.1:53,1.0.0.1:53",
		},
	}
}

func (c *CertManager) clusterIssuer(name, server string) graph.CustomResourceSpec {
	return graph.CustomResourceSpec{
		APIVersion:    "cert-manager.io/v1",
		ResourceKind:  "ClusterIssuer",
		ClusterScoped: true,
		Spec: map[string]any{
			"acme": map[string]any{
				"server": server,
				"email":  c.email,
				"privateKeySecretRef": map[string]any{
					"name": name + "-account-key",
				},
				"solvers": []any{
					map[string]any{
						"http01": map[string]any{
							"ingress": map[string]any{"class": c.ingressClass},
						},
					},
					map[string]any{
						"dns01": map[string]any{
							"cloudflare": map[string]any{
								"email": c.cloudflareEmail,
								"apiKeySecretRef": map[string]any{
									"name": cloudflareSecretName,
									"key":  cloudflareSecretKey,
								},
							},
						},
					},
				},
			},
		},
	}
}
