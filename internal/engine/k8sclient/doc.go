// Package k8sclient talks to the cluster for the apply engine: server-side
// apply of multi-document manifests, discovery refresh once CRDs are
// installed, and readiness checks for the objects nodes wait on.
package k8sclient
