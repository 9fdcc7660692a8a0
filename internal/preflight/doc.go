// Package preflight checks, before a stack is applied, that the external
// resources its components rely on exist: Hetzner Cloud networks and
// floating IPs, S3 backup buckets and Cloudflare credentials.
package preflight
