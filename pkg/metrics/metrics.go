// Package metrics provides Prometheus instrumentation for gopulse components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for gopulse components.
type Registry struct {
	// Rate Limiting Metrics
	RateLimitRequests      *prometheus.CounterVec
	RateLimitAllowed       *prometheus.CounterVec
	RateLimitDenied        *prometheus.CounterVec
	RateLimitWaitTime      *prometheus.HistogramVec
	RateLimitStoredPermits *prometheus.GaugeVec

	// Event Bus Metrics
	EventsPosted     *prometheus.CounterVec
	EventsDelivered  *prometheus.CounterVec
	DeadEvents       *prometheus.CounterVec
	SubscriberErrors *prometheus.CounterVec
	Subscribers      *prometheus.GaugeVec

	// Cache Metrics
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	CacheLoadSuccess  *prometheus.CounterVec
	CacheLoadFailure  *prometheus.CounterVec
	CacheLoadDuration *prometheus.HistogramVec
	CacheEvictions    *prometheus.CounterVec
	CacheSize         *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by gopulse components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Rate Limiting Metrics
		RateLimitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "ratelimit",
				Name:      "requests_total",
				Help:      "Total number of permits requested",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "ratelimit",
				Name:      "allowed_total",
				Help:      "Total number of permits granted",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "ratelimit",
				Name:      "denied_total",
				Help:      "Total number of permits denied",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gopulse",
				Subsystem: "ratelimit",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting for permits",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitStoredPermits: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gopulse",
				Subsystem: "ratelimit",
				Name:      "stored_permits",
				Help:      "Number of permits currently banked",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		// Event Bus Metrics
		EventsPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "eventbus",
				Name:      "posted_total",
				Help:      "Total number of events posted",
			},
			[]string{"bus"},
		),

		EventsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "eventbus",
				Name:      "delivered_total",
				Help:      "Total number of subscriber deliveries",
			},
			[]string{"bus"},
		),

		DeadEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "eventbus",
				Name:      "dead_events_total",
				Help:      "Total number of events with no subscribers",
			},
			[]string{"bus"},
		),

		SubscriberErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "eventbus",
				Name:      "subscriber_errors_total",
				Help:      "Total number of failures raised by subscribers",
			},
			[]string{"bus"},
		),

		Subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gopulse",
				Subsystem: "eventbus",
				Name:      "subscribers",
				Help:      "Number of currently registered subscribers",
			},
			[]string{"bus"},
		),

		// Cache Metrics
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		CacheLoadSuccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "load_success_total",
				Help:      "Total number of successful cache loads",
			},
			[]string{"cache"},
		),

		CacheLoadFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "load_failure_total",
				Help:      "Total number of failed cache loads",
			},
			[]string{"cache"},
		),

		CacheLoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "load_duration_seconds",
				Help:      "Time spent loading cache values",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"cache"},
		),

		CacheEvictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"cache"},
		),

		CacheSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gopulse",
				Subsystem: "cache",
				Name:      "size",
				Help:      "Number of entries currently cached",
			},
			[]string{"cache"},
		),
	}
}
