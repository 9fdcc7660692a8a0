package graph

import (
	"fmt"
	"strings"
)

// Kind is the type of a resource node.
type Kind string

const (
	KindNamespace      Kind = "Namespace"
	KindSecret         Kind = "Secret"
	KindConfigMap      Kind = "ConfigMap"
	KindChartRelease   Kind = "ChartRelease"
	KindCustomResource Kind = "CustomResource"
	KindRawManifest    Kind = "RawManifest"
)

// Identity names a node. Two nodes of one graph never share an identity.
type Identity struct {
	Component string `json:"component" yaml:"component"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name      string `json:"name" yaml:"name"`
}

func (i Identity) String() string {
	var b strings.Builder
	b.WriteString(i.Component)
	b.WriteByte(':')
	b.WriteString(string(i.Kind))
	b.WriteByte('/')
	if i.Namespace != "" {
		b.WriteString(i.Namespace)
		b.WriteByte('/')
	}
	b.WriteString(i.Name)
	return b.String()
}

// Object names one object rendered inside a node, e.g. the webhook
// Deployment of a chart release.
type Object struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
	Namespace  string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name       string `json:"name" yaml:"name"`
}

// IsZero reports whether o names nothing.
func (o Object) IsZero() bool { return o == Object{} }

func (o Object) String() string {
	if o.Namespace == "" {
		return fmt.Sprintf("%s/%s %s", o.APIVersion, o.Kind, o.Name)
	}
	return fmt.Sprintf("%s/%s %s/%s", o.APIVersion, o.Kind, o.Namespace, o.Name)
}

// Ref is a stable handle to a node, optionally narrowed to an object the
// node renders. A dependency on a narrowed ref means "that object must be
// ready", not merely "the node has been applied".
type Ref struct {
	ID  Identity
	Obj Object
}

// Sub narrows r to one object rendered by the node, given its
// "apiVersion/Kind" (or "Kind" for the core group) and "namespace/name".
func (r Ref) Sub(apiVersionKind, namespacedName string) Ref {
	apiVersion, kind := "v1", apiVersionKind
	if i := strings.LastIndex(apiVersionKind, "/"); i >= 0 {
		apiVersion, kind = apiVersionKind[:i], apiVersionKind[i+1:]
	}
	ns, name := "", namespacedName
	if i := strings.Index(namespacedName, "/"); i >= 0 {
		ns, name = namespacedName[:i], namespacedName[i+1:]
	}
	r.Obj = Object{APIVersion: apiVersion, Kind: kind, Namespace: ns, Name: name}
	return r
}

// Node returns the ref of the whole node, dropping any sub-object.
func (r Ref) Node() Ref { return Ref{ID: r.ID} }

func (r Ref) String() string {
	if r.Obj.IsZero() {
		return r.ID.String()
	}
	return r.ID.String() + "#" + r.Obj.String()
}

// Spec is the kind-specific payload of a node.
type Spec interface {
	Kind() Kind
}

// Node is one resource of the graph.
type Node struct {
	ID        Identity
	Spec      Spec
	DependsOn []Ref
}

// Ref returns the handle of n.
func (n Node) Ref() Ref { return Ref{ID: n.ID} }
