package artifact

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "k8stack"
	metricsSubsystem = "artifact"
)

var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fetch_total",
			Help:      "Total number of artifact fetches by kind and result",
		},
		[]string{"kind", "result"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of artifact downloads and extraction",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of fetches served from the local cache",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(fetchTotal, fetchDuration, cacheHits)
}

// Result labels for fetchTotal.
const (
	ResultDownloaded = "downloaded"
	ResultCached     = "cached"
	ResultFailed     = "failed"
	ResultReferenced = "referenced"
)

func recordFetch(kind Kind, result string, d time.Duration) {
	fetchTotal.WithLabelValues(string(kind), result).Inc()
	switch result {
	case ResultCached:
		cacheHits.WithLabelValues(string(kind)).Inc()
	case ResultDownloaded:
		fetchDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
}

// WriteMetrics writes the process metrics in the text exposition format,
// for node-exporter's textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
