// Package addons is the component catalog.
//
// Every catalog entry is a [component.Definition] with a typed Args struct
// decoded from the stack file. Resolve looks each setting up through the
// explicit, stored, secret and default tiers; Artifacts names the charts
// and manifests to fetch; Build adds the component's resource nodes to a
// graph, starting from its namespace.
//
// [Catalog] maps a stack entry's type to its definition:
//   - ingress: nginx-ingress, haproxy-ingress
//   - TLS and backups: cert-manager, velero
//   - Hetzner Cloud: hcloud-ccm, hcloud-csi, hcloud-fip-controller, metallb
//   - data stores: redis, redis-cluster, redis-cluster-proxy, memcached,
//     minio, zalando-postgres-operator, zalando-postgres-cluster
//   - applications: harbor, anycable, pgadmin, metrics-server
package addons
