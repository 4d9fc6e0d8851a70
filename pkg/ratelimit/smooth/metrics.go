package smooth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/gopulse/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter     Limiter
	limiterType string
	name        string
	registry    *metrics.Registry
	enabled     bool
}

// NewWithMetrics creates a bursty limiter with metrics enabled on a
// dedicated registry.
func NewWithMetrics(permitsPerSecond float64, name string) (Limiter, error) {
	registry := prometheus.NewRegistry()
	config := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}
	base, err := New(permitsPerSecond)
	if err != nil {
		return nil, err
	}
	return WrapWithMetrics(base, name, config), nil
}

// WrapWithMetrics instruments an existing limiter. If metrics are disabled
// in the config, the limiter is returned unwrapped.
func WrapWithMetrics(limiter Limiter, name string, metricsConfig metrics.Config) Limiter {
	if !metricsConfig.Enabled {
		return limiter
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	limiterType := "smooth"
	if sl, ok := limiter.(*smoothLimiter); ok {
		limiterType = sl.mode.name()
	}

	return &MetricsLimiter{
		limiter:     limiter,
		limiterType: limiterType,
		name:        name,
		registry:    registry,
		enabled:     true,
	}
}

// Acquire obtains a single permit, blocking until it is available.
func (ml *MetricsLimiter) Acquire() time.Duration {
	return ml.AcquireN(1)
}

// AcquireN obtains the given number of permits, blocking until they are available.
func (ml *MetricsLimiter) AcquireN(permits int) time.Duration {
	if ml.enabled {
		ml.registry.RateLimitRequests.WithLabelValues(ml.limiterType, ml.name).Add(float64(permits))
	}

	waited := ml.limiter.AcquireN(permits)

	if ml.enabled {
		ml.registry.RateLimitAllowed.WithLabelValues(ml.limiterType, ml.name).Add(float64(permits))
		ml.registry.RateLimitWaitTime.WithLabelValues(ml.limiterType, ml.name).Observe(waited.Seconds())
		ml.registry.RateLimitStoredPermits.WithLabelValues(ml.limiterType, ml.name).Set(ml.limiter.StoredPermits())
	}

	return waited
}

// TryAcquire obtains a permit only if it is available without waiting.
func (ml *MetricsLimiter) TryAcquire() bool {
	return ml.TryAcquireN(1, 0)
}

// TryAcquireN obtains permits if they would become available within the timeout.
func (ml *MetricsLimiter) TryAcquireN(permits int, timeout time.Duration) bool {
	if ml.enabled {
		ml.registry.RateLimitRequests.WithLabelValues(ml.limiterType, ml.name).Add(float64(permits))
	}

	start := time.Now()
	acquired := ml.limiter.TryAcquireN(permits, timeout)

	if ml.enabled {
		if acquired {
			ml.registry.RateLimitAllowed.WithLabelValues(ml.limiterType, ml.name).Add(float64(permits))
			ml.registry.RateLimitWaitTime.WithLabelValues(ml.limiterType, ml.name).Observe(time.Since(start).Seconds())
		} else {
			ml.registry.RateLimitDenied.WithLabelValues(ml.limiterType, ml.name).Add(float64(permits))
		}
		ml.registry.RateLimitStoredPermits.WithLabelValues(ml.limiterType, ml.name).Set(ml.limiter.StoredPermits())
	}

	return acquired
}

// SetRate updates the stable rate.
func (ml *MetricsLimiter) SetRate(permitsPerSecond float64) error {
	return ml.limiter.SetRate(permitsPerSecond)
}

// Rate returns the stable rate in permits per second.
func (ml *MetricsLimiter) Rate() float64 {
	return ml.limiter.Rate()
}

// StoredPermits returns the number of permits currently banked.
func (ml *MetricsLimiter) StoredPermits() float64 {
	stored := ml.limiter.StoredPermits()

	if ml.enabled {
		ml.registry.RateLimitStoredPermits.WithLabelValues(ml.limiterType, ml.name).Set(stored)
	}

	return stored
}

// String describes the wrapped limiter.
func (ml *MetricsLimiter) String() string {
	return ml.limiter.String()
}

// EnableMetrics enables metrics collection.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	ml.enabled = config.Enabled

	if config.Registry != nil {
		ml.registry = metrics.NewRegistry(config.Registry)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.enabled
}
