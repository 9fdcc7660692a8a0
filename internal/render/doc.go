// Package render turns a resource graph into Kubernetes manifests.
//
// Namespaces, secrets and config maps become typed core/v1 objects, custom
// resources become unstructured objects, chart releases are rendered with
// the Helm SDK and raw manifests are read from the artifact cache or
// downloaded. Secret values are redacted unless the renderer is created
// with IncludeSecrets, which only the apply path and an explicit
// --include-secrets render do.
package render
