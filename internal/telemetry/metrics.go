package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FeedSyncs counts feed synchronization runs by feed and outcome
	FeedSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmscout",
			Name:      "feed_syncs_total",
			Help:      "Total number of feed synchronization runs",
		},
		[]string{"feed", "status"},
	)

	// CVEsUpserted counts CVE records written by the enumeration sync
	CVEsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vmscout",
			Name:      "cves_upserted_total",
			Help:      "Total number of CVE records upserted from the enumeration feed",
		},
	)

	// KEVMarked counts CVEs newly flagged as known exploited
	KEVMarked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vmscout",
			Name:      "kev_marked_total",
			Help:      "Total number of CVEs newly flagged as known exploited",
		},
	)

	// MatchRuns counts per-asset match runs by outcome
	MatchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmscout",
			Name:      "match_runs_total",
			Help:      "Total number of per-asset match runs",
		},
		[]string{"status"},
	)

	// FindingsCreated counts findings written by match runs
	FindingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vmscout",
			Name:      "findings_created_total",
			Help:      "Total number of findings created",
		},
	)

	// FeedRequestDuration observes outbound feed request latency
	FeedRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vmscout",
			Name:      "feed_request_duration_seconds",
			Help:      "Latency of outbound feed requests",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"feed"},
	)

	// JobsQueued reports the number of background jobs waiting to run
	JobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vmscout",
			Name:      "jobs_queued",
			Help:      "Number of background jobs waiting in the queue",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is idempotent.
func InitMetrics() {
	once.Do(func() {
		// Registration errors mean the collector is already present
		prometheus.DefaultRegisterer.Register(FeedSyncs)
		prometheus.DefaultRegisterer.Register(CVEsUpserted)
		prometheus.DefaultRegisterer.Register(KEVMarked)
		prometheus.DefaultRegisterer.Register(MatchRuns)
		prometheus.DefaultRegisterer.Register(FindingsCreated)
		prometheus.DefaultRegisterer.Register(FeedRequestDuration)
		prometheus.DefaultRegisterer.Register(JobsQueued)
	})
}
