// Package metrics provides Prometheus instrumentation for gopulse components.
//
// This package enables monitoring and observability for gopulse's rate
// limiting, event bus, and cache components through Prometheus metrics.
//
// # Overview
//
// The metrics package provides automatic instrumentation for:
//   - Rate limiting (requests, allows, denies, wait times, stored permits)
//   - Event bus activity (posted, delivered, dead events, subscriber errors)
//   - Cache behaviour (hits, misses, loads, evictions)
//
// # Quick Start
//
// Wrap a limiter with metrics recorded on the default registry:
//
//	// Rate limiter with metrics
//	base, err := smooth.New(10)
//	limiter := smooth.WrapWithMetrics(base, "api_requests", metrics.Config{Enabled: true})
//
// smooth.NewWithMetrics records on a dedicated registry of its own, which
// promhttp.Handler does not serve.
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
// # Available Metrics
//
// ## Rate Limiting Metrics
//
//   - gopulse_ratelimit_requests_total: Total number of permits requested
//   - gopulse_ratelimit_allowed_total: Total number of permits granted
//   - gopulse_ratelimit_denied_total: Total number of permits denied
//   - gopulse_ratelimit_wait_duration_seconds: Time spent waiting for permits
//   - gopulse_ratelimit_stored_permits: Number of permits currently banked
//
// ## Event Bus Metrics
//
//   - gopulse_eventbus_posted_total: Total number of events posted
//   - gopulse_eventbus_delivered_total: Total number of subscriber deliveries
//   - gopulse_eventbus_dead_events_total: Total number of events with no subscribers
//   - gopulse_eventbus_subscriber_errors_total: Total number of subscriber failures
//   - gopulse_eventbus_subscribers: Number of currently registered subscribers
//
// ## Cache Metrics
//
//   - gopulse_cache_hits_total: Total number of cache hits
//   - gopulse_cache_misses_total: Total number of cache misses
//   - gopulse_cache_load_success_total: Total number of successful loads
//   - gopulse_cache_load_failure_total: Total number of failed loads
//   - gopulse_cache_load_duration_seconds: Time spent loading values
//   - gopulse_cache_evictions_total: Total number of evictions
//   - gopulse_cache_size: Gauge for the number of cached entries; it is
//     registered, but no cache component updates it
//
// # Labels
//
// Metrics include relevant labels for filtering and aggregation:
//
//   - limiter_type: "smooth_bursty" or "smooth_warming_up"
//   - limiter_name: User-provided name for the limiter instance
//   - bus: Event bus identifier
//   - cache: User-provided name for the cache instance
//
// # Performance
//
// Metrics collection is designed for minimal overhead:
//   - Metrics are updated only when operations occur
//   - No background goroutines or timers
//   - Conditional metrics updates based on enabled state
package metrics
