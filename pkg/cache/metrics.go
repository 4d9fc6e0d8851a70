package cache

import (
	"time"

	"github.com/vnykmshr/gopulse/pkg/metrics"
)

// metricsStatsCounter mirrors every stat into Prometheus while keeping a
// local snapshot counter so Stats() still works.
type metricsStatsCounter struct {
	inner    *SimpleStatsCounter
	name     string
	registry *metrics.Registry
}

// NewMetricsStatsCounter creates a StatsCounter that exports to
// Prometheus under the given cache name. Install it with
// Builder.RecordStatsWith.
func NewMetricsStatsCounter(name string, config metrics.Config) StatsCounter {
	registry := metrics.DefaultRegistry
	if config.Registry != nil {
		registry = metrics.NewRegistry(config.Registry)
	}
	return &metricsStatsCounter{
		inner:    NewSimpleStatsCounter(),
		name:     name,
		registry: registry,
	}
}

func (c *metricsStatsCounter) RecordHits(count int) {
	c.inner.RecordHits(count)
	c.registry.CacheHits.WithLabelValues(c.name).Add(float64(count))
}

func (c *metricsStatsCounter) RecordMisses(count int) {
	c.inner.RecordMisses(count)
	c.registry.CacheMisses.WithLabelValues(c.name).Add(float64(count))
}

func (c *metricsStatsCounter) RecordLoadSuccess(loadTime time.Duration) {
	c.inner.RecordLoadSuccess(loadTime)
	c.registry.CacheLoadSuccess.WithLabelValues(c.name).Inc()
	c.registry.CacheLoadDuration.WithLabelValues(c.name).Observe(loadTime.Seconds())
}

func (c *metricsStatsCounter) RecordLoadException(loadTime time.Duration) {
	c.inner.RecordLoadException(loadTime)
	c.registry.CacheLoadFailure.WithLabelValues(c.name).Inc()
	c.registry.CacheLoadDuration.WithLabelValues(c.name).Observe(loadTime.Seconds())
}

func (c *metricsStatsCounter) RecordEviction() {
	c.inner.RecordEviction()
	c.registry.CacheEvictions.WithLabelValues(c.name).Inc()
}

func (c *metricsStatsCounter) Snapshot() CacheStats {
	return c.inner.Snapshot()
}
