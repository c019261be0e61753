package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
)

// Query and shard store Prometheus metrics.
var (
	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "query_requests_total",
			Help:      "Total number of store read operations",
		},
		[]string{"operation", "status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_duration_seconds",
			Help:      "Store read operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	ReplicaReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "replica_reads_total",
			Help:      "Total number of replica reads by replica index and outcome",
		},
		[]string{"replica", "status"},
	)

	HardwareUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "hardware_usage_total",
			Help:      "Accumulated hardware usage per collection",
		},
		[]string{"collection", "counter"},
	)
)

var registerQuery sync.Once

// RegisterQueryMetrics registers store read and hardware usage metrics. Safe
// to call more than once.
func RegisterQueryMetrics() {
	registerQuery.Do(func() {
		prometheus.MustRegister(QueryRequestsTotal, QueryDuration, ReplicaReadsTotal, HardwareUsageTotal)
	})
}

// AddHardwareUsage adds a usage snapshot to the per-collection counters.
func AddHardwareUsage(collection string, u hardware.Usage) {
	for _, name := range hardware.Counters {
		if v := u.Get(name); v > 0 {
			HardwareUsageTotal.WithLabelValues(collection, name).Add(float64(v))
		}
	}
}
