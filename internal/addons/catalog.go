package addons

import (
	"fmt"
	"sort"

	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/config"
)

// UnknownTypeError reports a stack entry naming no catalog component.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown component type %q", e.Type)
}

type entry struct {
	description string
	decode      func(spec config.ComponentSpec) (component.Definition, error)
}

// define decodes a stack entry's args into A and builds the definition.
func define[A any, D component.Definition](description string, ctor func(A) D) entry {
	return entry{
		description: description,
		decode: func(spec config.ComponentSpec) (component.Definition, error) {
			var args A
			if err := spec.DecodeArgs(&args); err != nil {
				return nil, err
			}
			return ctor(args), nil
		},
	}
}

var registry = map[string]entry{
	"anycable":                  define("AnyCable websocket server for Rails action cable", NewAnyCable),
	"cert-manager":              define("cert-manager with Let's Encrypt cluster issuers (HTTP-01 and Cloudflare DNS-01)", NewCertManager),
	"haproxy-ingress":           define("HAProxy ingress controller", NewHAProxyIngress),
	"harbor":                    define("Harbor container registry", NewHarbor),
	"hcloud-ccm":                define("Hetzner Cloud controller manager with private network support", NewHCloudCCM),
	"hcloud-csi":                define("Hetzner Cloud volumes CSI driver", NewHCloudCSI),
	"hcloud-fip-controller":     define("Hetzner floating IP controller", NewHCloudFIPController),
	"memcached":                 define("Memcached", NewMemcached),
	"metallb":                   define("MetalLB layer 2 load balancer", NewMetalLB),
	"metrics-server":            define("Kubernetes metrics server", NewMetricsServer),
	"minio":                     define("MinIO object storage", NewMinio),
	"nginx-ingress":             define("NGINX ingress controller", NewNginxIngress),
	"pgadmin":                   define("pgAdmin 4", NewPgAdmin),
	"redis":                     define("Redis with optional replicas", NewRedis),
	"redis-cluster":             define("Redis cluster", NewRedisCluster),
	"redis-cluster-proxy":       define("Proxy exposing a Redis cluster as a single instance", NewRedisClusterProxy),
	"velero":                    define("Velero backups to S3 compatible storage", NewVelero),
	"zalando-postgres-cluster":  define("PostgreSQL cluster managed by the Zalando operator", NewZalandoPostgresCluster),
	"zalando-postgres-operator": define("Zalando postgres operator with WAL-G backups", NewZalandoPostgresOperator),
}

// Catalog resolves stack entries to catalog definitions.
type Catalog struct{}

var _ component.Catalog = Catalog{}

// Definition returns a fresh definition for spec.
func (Catalog) Definition(spec config.ComponentSpec) (component.Definition, error) {
	e, ok := registry[spec.Type]
	if !ok {
		return nil, &UnknownTypeError{Type: spec.Type}
	}
	return e.decode(spec)
}

// Types lists the catalog's component types, sorted.
func Types() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Describe returns the one-line description of typ.
func Describe(typ string) (string, bool) {
	e, ok := registry[typ]
	return e.description, ok
}
