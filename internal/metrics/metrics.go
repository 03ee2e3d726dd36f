package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	// Refresh cycles by result: ok, skipped, no_rates, persist_error
	RefreshCycles   *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	// Per-source fetch outcomes
	SourceFetches *prometheus.CounterVec

	SnapshotsPersisted *prometheus.CounterVec

	// Query cache hits and misses by namespace
	CacheLookups *prometheus.CounterVec

	// Notification deliveries by channel and result
	Notifications *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RefreshCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_refresh_cycles_total",
				Help: "Refresh cycles by outcome",
			},
			[]string{"result"},
		),
		RefreshDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rate_refresh_duration_seconds",
				Help:    "Wall time of completed refresh cycles",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		SourceFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_source_fetches_total",
				Help: "Provider fetches by source and outcome",
			},
			[]string{"source", "result"},
		),
		SnapshotsPersisted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_snapshots_persisted_total",
				Help: "Aggregated snapshots written to the store",
			},
			[]string{"currency"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_cache_lookups_total",
				Help: "Query cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
		Notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_notifications_total",
				Help: "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		),
	}
}

// Nop returns collectors bound to a private registry, for tests and optional wiring.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
