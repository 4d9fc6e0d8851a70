package cache

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// CacheStats is an immutable snapshot of cache activity counters.
type CacheStats struct {
	hitCount           int64
	missCount          int64
	loadSuccessCount   int64
	loadExceptionCount int64
	totalLoadTime      int64
	evictionCount      int64
}

// NewCacheStats builds a snapshot from raw counters. It panics if any
// counter is negative.
func NewCacheStats(hits, misses, loadSuccesses, loadExceptions, totalLoadTime, evictions int64) CacheStats {
	for _, v := range []int64{hits, misses, loadSuccesses, loadExceptions, totalLoadTime, evictions} {
		if v < 0 {
			panic(fmt.Sprintf("cache: stats counter must not be negative: %d", v))
		}
	}
	return CacheStats{
		hitCount:           hits,
		missCount:          misses,
		loadSuccessCount:   loadSuccesses,
		loadExceptionCount: loadExceptions,
		totalLoadTime:      totalLoadTime,
		evictionCount:      evictions,
	}
}

// HitCount returns the number of lookups that found a live entry.
func (s CacheStats) HitCount() int64 { return s.hitCount }

// MissCount returns the number of lookups that found nothing.
func (s CacheStats) MissCount() int64 { return s.missCount }

// LoadSuccessCount returns the number of loads that returned a value.
func (s CacheStats) LoadSuccessCount() int64 { return s.loadSuccessCount }

// LoadExceptionCount returns the number of loads that failed.
func (s CacheStats) LoadExceptionCount() int64 { return s.loadExceptionCount }

// TotalLoadTime returns the cumulative load time in nanoseconds.
func (s CacheStats) TotalLoadTime() int64 { return s.totalLoadTime }

// EvictionCount returns the number of entries evicted by size or expiry.
func (s CacheStats) EvictionCount() int64 { return s.evictionCount }

// RequestCount returns hits plus misses.
func (s CacheStats) RequestCount() int64 {
	return saturatingAdd(s.hitCount, s.missCount)
}

// HitRate returns the ratio of hits to requests, or 1 with no requests.
func (s CacheStats) HitRate() float64 {
	requests := s.RequestCount()
	if requests == 0 {
		return 1.0
	}
	return float64(s.hitCount) / float64(requests)
}

// MissRate returns the ratio of misses to requests, or 0 with no requests.
func (s CacheStats) MissRate() float64 {
	requests := s.RequestCount()
	if requests == 0 {
		return 0.0
	}
	return float64(s.missCount) / float64(requests)
}

// LoadCount returns successful plus failed loads.
func (s CacheStats) LoadCount() int64 {
	return saturatingAdd(s.loadSuccessCount, s.loadExceptionCount)
}

// LoadExceptionRate returns the ratio of failed loads to all loads.
func (s CacheStats) LoadExceptionRate() float64 {
	loads := s.LoadCount()
	if loads == 0 {
		return 0.0
	}
	return float64(s.loadExceptionCount) / float64(loads)
}

// AverageLoadPenalty returns the mean nanoseconds spent per load.
func (s CacheStats) AverageLoadPenalty() float64 {
	loads := s.LoadCount()
	if loads == 0 {
		return 0.0
	}
	return float64(s.totalLoadTime) / float64(loads)
}

// Minus returns the counter-wise difference, floored at zero.
func (s CacheStats) Minus(other CacheStats) CacheStats {
	return CacheStats{
		hitCount:           maxInt64(0, s.hitCount-other.hitCount),
		missCount:          maxInt64(0, s.missCount-other.missCount),
		loadSuccessCount:   maxInt64(0, s.loadSuccessCount-other.loadSuccessCount),
		loadExceptionCount: maxInt64(0, s.loadExceptionCount-other.loadExceptionCount),
		totalLoadTime:      maxInt64(0, s.totalLoadTime-other.totalLoadTime),
		evictionCount:      maxInt64(0, s.evictionCount-other.evictionCount),
	}
}

// Plus returns the counter-wise saturating sum.
func (s CacheStats) Plus(other CacheStats) CacheStats {
	return CacheStats{
		hitCount:           saturatingAdd(s.hitCount, other.hitCount),
		missCount:          saturatingAdd(s.missCount, other.missCount),
		loadSuccessCount:   saturatingAdd(s.loadSuccessCount, other.loadSuccessCount),
		loadExceptionCount: saturatingAdd(s.loadExceptionCount, other.loadExceptionCount),
		totalLoadTime:      saturatingAdd(s.totalLoadTime, other.totalLoadTime),
		evictionCount:      saturatingAdd(s.evictionCount, other.evictionCount),
	}
}

func (s CacheStats) String() string {
	return fmt.Sprintf("CacheStats{hitCount=%d, missCount=%d, loadSuccessCount=%d, loadExceptionCount=%d, totalLoadTime=%d, evictionCount=%d}",
		s.hitCount, s.missCount, s.loadSuccessCount, s.loadExceptionCount, s.totalLoadTime, s.evictionCount)
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return math.MaxInt64
	}
	if a < 0 && b < 0 && sum >= 0 {
		return math.MinInt64
	}
	return sum
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// StatsCounter accumulates cache activity. Implementations must be safe
// for concurrent use.
type StatsCounter interface {
	RecordHits(count int)
	RecordMisses(count int)
	RecordLoadSuccess(loadTime time.Duration)
	RecordLoadException(loadTime time.Duration)
	RecordEviction()
	Snapshot() CacheStats
}

// SimpleStatsCounter is the default counting StatsCounter.
type SimpleStatsCounter struct {
	hits           atomic.Int64
	misses         atomic.Int64
	loadSuccesses  atomic.Int64
	loadExceptions atomic.Int64
	totalLoadTime  atomic.Int64
	evictions      atomic.Int64
}

// NewSimpleStatsCounter creates a zeroed counter.
func NewSimpleStatsCounter() *SimpleStatsCounter {
	return &SimpleStatsCounter{}
}

func (c *SimpleStatsCounter) RecordHits(count int) {
	c.hits.Add(int64(count))
}

func (c *SimpleStatsCounter) RecordMisses(count int) {
	c.misses.Add(int64(count))
}

func (c *SimpleStatsCounter) RecordLoadSuccess(loadTime time.Duration) {
	c.loadSuccesses.Add(1)
	c.totalLoadTime.Add(loadTime.Nanoseconds())
}

func (c *SimpleStatsCounter) RecordLoadException(loadTime time.Duration) {
	c.loadExceptions.Add(1)
	c.totalLoadTime.Add(loadTime.Nanoseconds())
}

func (c *SimpleStatsCounter) RecordEviction() {
	c.evictions.Add(1)
}

func (c *SimpleStatsCounter) Snapshot() CacheStats {
	return CacheStats{
		hitCount:           c.hits.Load(),
		missCount:          c.misses.Load(),
		loadSuccessCount:   c.loadSuccesses.Load(),
		loadExceptionCount: c.loadExceptions.Load(),
		totalLoadTime:      c.totalLoadTime.Load(),
		evictionCount:      c.evictions.Load(),
	}
}

// nopStatsCounter is installed when stats recording is off.
type nopStatsCounter struct{}

func (nopStatsCounter) RecordHits(int)                    {}
func (nopStatsCounter) RecordMisses(int)                  {}
func (nopStatsCounter) RecordLoadSuccess(time.Duration)   {}
func (nopStatsCounter) RecordLoadException(time.Duration) {}
func (nopStatsCounter) RecordEviction()                   {}
func (nopStatsCounter) Snapshot() CacheStats              { return CacheStats{} }
