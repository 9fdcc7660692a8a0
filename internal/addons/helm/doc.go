// Package helm renders charts for the catalog.
//
// It holds the catalog's chart registry (repository, chart name and
// default version per component), the Values type with merge helpers, the
// single rendering point for chart releases and raw manifests (values
// files, secret reveal, apiVersion overrides), and a release client that
// installs charts through Helm actions when a stack prefers releases over
// server-side applied manifests.
package helm
