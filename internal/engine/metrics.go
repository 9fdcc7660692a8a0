package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/k8stack/internal/graph"
)

var (
	nodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "k8stack",
			Subsystem: "engine",
			Name:      "nodes_total",
			Help:      "Total number of graph nodes visited by kind and status",
		},
		[]string{"kind", "status"},
	)

	nodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "k8stack",
			Subsystem: "engine",
			Name:      "node_apply_duration_seconds",
			Help:      "Duration of applying one graph node, including readiness waits",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(nodesTotal, nodeDuration)
}

func recordNode(kind graph.Kind, status Status, d time.Duration) {
	nodesTotal.WithLabelValues(string(kind), string(status)).Inc()
	if status == StatusApplied {
		nodeDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
}
