package addons

import (
	"errors"
	"fmt"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

var errNoAddresses = errors.New("addresses must list at least one IP")

// BucketLocation is an S3 bucket a component stores backups in.
type BucketLocation struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     secret.Value
	SecretAccessKey secret.Value
	PathStyle       bool
}

// BucketUser is implemented by components that need an existing bucket.
type BucketUser interface {
	Bucket() BucketLocation
}

// NetworkUser is implemented by components that need an existing Hetzner
// Cloud network.
type NetworkUser interface {
	Network() (token secret.Value, network string)
}

// CloudflareUser is implemented by components that solve ACME challenges
// through the Cloudflare API.
type CloudflareUser interface {
	Cloudflare() (email string, apiKey secret.Value)
}

// FloatingIPUser is implemented by components that manage existing
// Hetzner Cloud floating IPs.
type FloatingIPUser interface {
	FloatingIPs() (token secret.Value, addresses []string)
}

// settings resolves a batch of settings for one component and keeps the
// first error, so Resolve methods read as a list of lookups.
type settings struct {
	r   *resolve.Resolver
	err error
}

func newSettings(r *resolve.Resolver) *settings { return &settings{r: r} }

func setting[T any](s *settings, key string, explicit *T, def T) T {
	if s.err != nil {
		return def
	}
	v, err := resolve.Get(s.r, key, explicit, def)
	if err != nil {
		s.err = err
	}
	return v
}

func optionalSetting[T any](s *settings, key string, explicit *T) *T {
	if s.err != nil {
		return nil
	}
	v, err := resolve.Optional(s.r, key, explicit)
	if err != nil {
		s.err = err
	}
	return v
}

func requiredSetting[T any](s *settings, key string, explicit *T) T {
	var v T
	if s.err != nil {
		return v
	}
	v, err := resolve.Require(s.r, key, explicit)
	if err != nil {
		s.err = err
	}
	return v
}

func requiredSecret(s *settings, key string, explicit *secret.Value) secret.Value {
	if s.err != nil {
		return secret.Value{}
	}
	v, err := resolve.RequireSecret(s.r, key, explicit)
	if err != nil {
		s.err = err
	}
	return v
}

func optionalSecret(s *settings, key string, explicit *secret.Value) secret.Value {
	if s.err != nil {
		return secret.Value{}
	}
	v, err := resolve.Secret(s.r, key, explicit, secret.Value{})
	if err != nil {
		s.err = err
	}
	return v
}

// repoChart is the repository source of a catalog chart, with version
// overriding the registry's pin when set.
func repoChart(typ, version string) (artifact.Source, error) {
	spec, ok := helm.GetChartSpec(typ, version)
	if !ok {
		return artifact.Source{}, fmt.Errorf("no chart registered for component type %q", typ)
	}
	return component.RepositorySource(spec), nil
}

// release adds the component's chart release, named after the component.
func release(b *graph.Builder, fetched component.Artifacts, src artifact.Source, namespace string, spec graph.ChartReleaseSpec, deps ...graph.Ref) (graph.Ref, error) {
	entry, err := fetched.Get(src)
	if err != nil {
		return graph.Ref{}, err
	}
	spec.Chart = component.ChartRef(entry)
	return b.Add(namespace, b.Component(), spec, deps...), nil
}

// persistenceValues is the persistence block shared by most stateful
// charts.
func persistenceValues(enabled bool, storageClass, size string) helm.Values {
	return helm.Values{
		"enabled":      enabled,
		"storageClass": storageClass,
		"size":         size,
	}
}

// backupAnnotations marks pod volumes for velero's restic backups.
func backupAnnotations(enabled bool, volumes string) helm.Values {
	if !enabled {
		return helm.Values{}
	}
	return helm.Values{"backup.velero.io/backup-volumes": volumes}
}

// ingressAnnotations requests a cert-manager certificate through the
// HTTP-01 solver of ingressClass.
func ingressAnnotations(clusterIssuer, ingressClass string) helm.Values {
	return helm.Values{
		"cert-manager.io/cluster-issuer":            clusterIssuer,
		"kubernetes.io/ingress.class":               ingressClass,
		"acme.cert-manager.io/http01-ingress-class": ingressClass,
	}
}

func resources(cpu, memory string) helm.Values {
	v := helm.Values{}
	if cpu != "" {
		v["cpu"] = cpu
	}
	if memory != "" {
		v["memory"] = memory
	}
	return v
}

// manifestSpec applies a fetched manifest, from the cache when it was
// materialized and from its URL otherwise.
func manifestSpec(entry artifact.Entry) graph.RawManifestSpec {
	spec := graph.RawManifestSpec{URL: entry.Source.URL}
	if entry.ManifestPath != "" {
		spec.Files = []string{entry.ManifestPath}
	}
	return spec
}

// mapArg treats a nil map as an absent argument.
func mapArg[M ~map[string]V, V any](m M) *M {
	if m == nil {
		return nil
	}
	return &m
}

// stringValues converts a string map into chart values, which Helm only
// merges as map[string]any.
func stringValues(m map[string]string) helm.Values {
	out := make(helm.Values, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sliceArg treats a nil slice as an absent argument.
func sliceArg[S ~[]E, E any](s S) *S {
	if s == nil {
		return nil
	}
	return &s
}

var (
	_ BucketUser     = (*Velero)(nil)
	_ BucketUser     = (*ZalandoPostgresOperator)(nil)
	_ BucketUser     = (*ZalandoPostgresCluster)(nil)
	_ NetworkUser    = (*HCloudCCM)(nil)
	_ FloatingIPUser = (*HCloudFIPController)(nil)
	_ CloudflareUser = (*CertManager)(nil)
)
