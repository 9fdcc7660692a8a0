// Package artifact fetches remote charts, manifests and git repositories
// into a local, version-keyed cache.
//
// Every source maps to <root>/<kind>/<name>/<version>/. A directory is a
// cache hit only when it carries the completion marker, which is written
// into a staging directory before the staging directory is renamed into
// place. Fetches of one key are serialized within the process by a keyed
// lock and across processes by an advisory file lock next to the entry.
package artifact
