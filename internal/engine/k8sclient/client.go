package k8sclient

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/k8stack/internal/graph"
)

// Client provides the cluster operations of the apply engine.
type Client interface {
	// ApplyManifests applies multi-document YAML using Server-Side Apply
	// and returns the number of objects applied. Namespaced objects without
	// a namespace are applied to defaultNamespace.
	ApplyManifests(ctx context.Context, manifests []byte, fieldManager, defaultNamespace string) (int, error)

	// RefreshDiscovery rebuilds the REST mapping so kinds of newly
	// installed CRDs can be applied.
	RefreshDiscovery(ctx context.Context) error

	// ObjectReady reports whether obj exists and, for workloads and CRDs,
	// whether it is ready. A missing object is not an error.
	ObjectReady(ctx context.Context, obj graph.Object) (bool, error)
}

// client implements Client using k8s.io/client-go.
type client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	discovery     discovery.DiscoveryInterface

	mu     sync.RWMutex
	mapper meta.RESTMapper
}

// NewFromKubeconfig creates a Client from kubeconfig bytes.
func NewFromKubeconfig(kubeconfig []byte) (Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	c := &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		discovery:     discoveryClient,
	}
	if err := c.RefreshDiscovery(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// newFromClients creates a client from pre-configured clients, such as
// fakes. Without a discovery client RefreshDiscovery keeps mapper.
func newFromClients(
	clientset kubernetes.Interface,
	dynamicClient dynamic.Interface,
	mapper meta.RESTMapper,
) Client {
	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
	}
}

func (c *client) RefreshDiscovery(_ context.Context) error {
	if c.discovery == nil {
		return nil
	}
	groupResources, err := restmapper.GetAPIGroupResources(c.discovery)
	if err != nil {
		// Partial discovery errors are common while aggregated APIs start.
		if !discovery.IsGroupDiscoveryFailedError(err) || len(groupResources) == 0 {
			return fmt.Errorf("failed to get API group resources: %w", err)
		}
	}
	c.mu.Lock()
	c.mapper = restmapper.NewDiscoveryRESTMapper(groupResources)
	c.mu.Unlock()
	return nil
}

func (c *client) restMapper() meta.RESTMapper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapper
}
