package addons

// Service types an ingress controller can be exposed with.
const (
	ServiceTypeClusterIP    = "ClusterIP"
	ServiceTypeNodePort     = "NodePort"
	ServiceTypeLoadBalancer = "LoadBalancer"
)

// Exposure is the network topology derived from a service type.
type Exposure struct {
	Kind                  string
	UseHostPort           bool
	HostNetwork           bool
	ExternalTrafficPolicy string
	// NodePorts is set only for NodePort services.
	NodePorts map[string]int
}

// defaultExposure runs the controller on every node's host network.
func defaultExposure() Exposure {
	return Exposure{Kind: "DaemonSet", UseHostPort: true, HostNetwork: true}
}

// ExposureFor maps a service type onto the controller topology. Unknown
// service types keep the defaults.
func ExposureFor(serviceType string, nodePortHTTP, nodePortHTTPS int) Exposure {
	e := defaultExposure()
	switch serviceType {
	case ServiceTypeClusterIP:
	case ServiceTypeNodePort:
		e.UseHostPort = false
		e.HostNetwork = false
		e.ExternalTrafficPolicy = "Local"
		e.NodePorts = map[string]int{"http": nodePortHTTP, "https": nodePortHTTPS}
	case ServiceTypeLoadBalancer:
		e.Kind = "Deployment"
		e.UseHostPort = false
		e.HostNetwork = false
		e.ExternalTrafficPolicy = "Local"
	}
	return e
}
