package labels

// Standard label keys for rendered objects.
const (
	// KeyManagedBy is the well-known Kubernetes managed-by label.
	KeyManagedBy = "app.kubernetes.io/managed-by"

	// KeyComponent identifies the stack component that declared an object
	KeyComponent = "k8stack.io/component"
)

// ManagedByK8stack is the KeyManagedBy value of every rendered object.
const ManagedByK8stack = "k8stack"

// LabelBuilder provides a fluent interface for building object labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the managed-by label pre-set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{KeyManagedBy: ManagedByK8stack},
	}
}

// WithComponent adds the component label. Empty names are ignored.
func (lb *LabelBuilder) WithComponent(component string) *LabelBuilder {
	if component != "" {
		lb.labels[KeyComponent] = component
	}
	return lb
}

// Merge adds all labels from the provided map. Explicit labels win over
// the standard ones.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}
