package k8sclient

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/imamik/k8stack/internal/graph"
)

var crdResource = schema.GroupVersionResource{
	Group:    "apiextensions.k8s.io",
	Version:  "v1",
	Resource: "customresourcedefinitions",
}

func (c *client) ObjectReady(ctx context.Context, obj graph.Object) (bool, error) {
	gv, err := schema.ParseGroupVersion(obj.APIVersion)
	if err != nil {
		return false, fmt.Errorf("invalid apiVersion %q: %w", obj.APIVersion, err)
	}

	var ready bool
	switch {
	case gv.Group == "apps" && obj.Kind == "Deployment":
		ready, err = c.deploymentReady(ctx, obj)
	case gv.Group == "apps" && obj.Kind == "StatefulSet":
		ready, err = c.statefulSetReady(ctx, obj)
	case gv.Group == "apps" && obj.Kind == "DaemonSet":
		ready, err = c.daemonSetReady(ctx, obj)
	case gv.Group == crdResource.Group && obj.Kind == "CustomResourceDefinition":
		ready, err = c.crdEstablished(ctx, obj.Name)
	default:
		ready, err = c.exists(ctx, gv.WithKind(obj.Kind), obj)
	}
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	return ready, err
}

func desiredReplicas(r *int32) int32 {
	if r == nil {
		return 1
	}
	return *r
}

func (c *client) deploymentReady(ctx context.Context, obj graph.Object) (bool, error) {
	d, err := c.clientset.AppsV1().Deployments(obj.Namespace).Get(ctx, obj.Name, metav1.GetOptions{})
	if err != nil {
		return false, err
	}
	if d.Status.ReadyReplicas < desiredReplicas(d.Spec.Replicas) {
		return false, nil
	}
	for _, cond := range d.Status.Conditions {
		if cond.Type == appsv1.DeploymentAvailable {
			return cond.Status == corev1.ConditionTrue, nil
		}
	}
	return false, nil
}

func (c *client) statefulSetReady(ctx context.Context, obj graph.Object) (bool, error) {
	s, err := c.clientset.AppsV1().StatefulSets(obj.Namespace).Get(ctx, obj.Name, metav1.GetOptions{})
	if err != nil {
		return false, err
	}
	return s.Status.ReadyReplicas >= desiredReplicas(s.Spec.Replicas), nil
}

func (c *client) daemonSetReady(ctx context.Context, obj graph.Object) (bool, error) {
	d, err := c.clientset.AppsV1().DaemonSets(obj.Namespace).Get(ctx, obj.Name, metav1.GetOptions{})
	if err != nil {
		return false, err
	}
	return d.Status.DesiredNumberScheduled > 0 && d.Status.NumberReady >= d.Status.DesiredNumberScheduled, nil
}

func (c *client) crdEstablished(ctx context.Context, name string) (bool, error) {
	u, err := c.dynamicClient.Resource(crdResource).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, err
	}
	conditions, _, err := unstructured.NestedSlice(u.Object, "status", "conditions")
	if err != nil {
		return false, err
	}
	for _, raw := range conditions {
		cond, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if cond["type"] == "Established" {
			return cond["status"] == string(corev1.ConditionTrue), nil
		}
	}
	return false, nil
}

func (c *client) exists(ctx context.Context, gvk schema.GroupVersionKind, obj graph.Object) (bool, error) {
	mapping, err := c.mapping(ctx, gvk)
	if err != nil {
		if meta.IsNoMatchError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}
	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		_, err = resource.Namespace(obj.Namespace).Get(ctx, obj.Name, metav1.GetOptions{})
	} else {
		_, err = resource.Get(ctx, obj.Name, metav1.GetOptions{})
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
