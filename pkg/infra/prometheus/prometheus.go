package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		1, 2.5, 5, // In-memory decisions
		10, 25, 50, // Redis-backed decisions
		100, 250, 500, // Degraded store
		1000, 2500, // Breaker timeouts
	}

	ScorePenaltiesTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_score_penalties_total",
			Help: "Total number of risk score penalties applied, by cause",
		},
		[]string{"cause"},
	)

	AccountLocksTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "authwatch_account_locks_total",
			Help: "Total number of unlocked-to-locked transitions",
		},
	)

	AccountUnlocksTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_account_unlocks_total",
			Help: "Total number of locked-to-unlocked transitions, by cause",
		},
		[]string{"cause"},
	)

	WarningsTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "authwatch_warnings_total",
			Help: "Total number of warning-threshold crossings",
		},
	)

	DecayEventsTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "authwatch_decay_events_total",
			Help: "Total number of material decay passes over single profiles",
		},
	)

	ProfilesTotal = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "authwatch_profiles_total",
			Help: "Number of profiles currently tracked",
		},
	)

	LockedProfiles = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "authwatch_locked_profiles",
			Help: "Number of profiles currently locked",
		},
	)

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "authwatch_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authwatch_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"path"},
	)
)

func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}
