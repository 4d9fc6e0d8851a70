package cache

import (
	"math"
	"testing"
	"time"

	"github.com/vnykmshr/gopulse/internal/testutil"
)

func TestCacheStatsAccessors(t *testing.T) {
	s := NewCacheStats(10, 5, 3, 1, 4000, 2)

	testutil.AssertEqual(t, s.HitCount(), int64(10))
	testutil.AssertEqual(t, s.MissCount(), int64(5))
	testutil.AssertEqual(t, s.LoadSuccessCount(), int64(3))
	testutil.AssertEqual(t, s.LoadExceptionCount(), int64(1))
	testutil.AssertEqual(t, s.TotalLoadTime(), int64(4000))
	testutil.AssertEqual(t, s.EvictionCount(), int64(2))

	testutil.AssertEqual(t, s.RequestCount(), int64(15))
	testutil.AssertEqual(t, s.LoadCount(), int64(4))
	if rate := s.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("HitRate() = %f, want ~2/3", rate)
	}
	if rate := s.MissRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("MissRate() = %f, want ~1/3", rate)
	}
	testutil.AssertEqual(t, s.LoadExceptionRate(), 0.25)
	testutil.AssertEqual(t, s.AverageLoadPenalty(), 1000.0)
}

func TestCacheStatsEmptyRates(t *testing.T) {
	var s CacheStats
	testutil.AssertEqual(t, s.HitRate(), 1.0)
	testutil.AssertEqual(t, s.MissRate(), 0.0)
	testutil.AssertEqual(t, s.LoadExceptionRate(), 0.0)
	testutil.AssertEqual(t, s.AverageLoadPenalty(), 0.0)
}

func TestCacheStatsPlusMinus(t *testing.T) {
	a := NewCacheStats(10, 5, 3, 1, 4000, 2)
	b := NewCacheStats(4, 2, 1, 0, 1000, 1)

	sum := a.Plus(b)
	testutil.AssertEqual(t, sum.HitCount(), int64(14))
	testutil.AssertEqual(t, sum.MissCount(), int64(7))
	testutil.AssertEqual(t, sum.TotalLoadTime(), int64(5000))

	diff := a.Minus(b)
	testutil.AssertEqual(t, diff.HitCount(), int64(6))
	testutil.AssertEqual(t, diff.EvictionCount(), int64(1))

	// Differences floor at zero rather than going negative.
	floor := b.Minus(a)
	testutil.AssertEqual(t, floor.HitCount(), int64(0))
	testutil.AssertEqual(t, floor.MissCount(), int64(0))
}

func TestCacheStatsSaturation(t *testing.T) {
	big := NewCacheStats(math.MaxInt64, math.MaxInt64, 0, 0, 0, 0)
	sum := big.Plus(big)
	testutil.AssertEqual(t, sum.HitCount(), int64(math.MaxInt64))
	testutil.AssertEqual(t, sum.RequestCount(), int64(math.MaxInt64))
}

func TestNewCacheStatsRejectsNegatives(t *testing.T) {
	assertPanics(t, func() { NewCacheStats(-1, 0, 0, 0, 0, 0) })
	assertPanics(t, func() { NewCacheStats(0, 0, 0, 0, -1, 0) })
}

func TestSimpleStatsCounter(t *testing.T) {
	c := NewSimpleStatsCounter()
	c.RecordHits(3)
	c.RecordMisses(2)
	c.RecordLoadSuccess(2 * time.Microsecond)
	c.RecordLoadException(time.Microsecond)
	c.RecordEviction()

	s := c.Snapshot()
	testutil.AssertEqual(t, s.HitCount(), int64(3))
	testutil.AssertEqual(t, s.MissCount(), int64(2))
	testutil.AssertEqual(t, s.LoadSuccessCount(), int64(1))
	testutil.AssertEqual(t, s.LoadExceptionCount(), int64(1))
	testutil.AssertEqual(t, s.TotalLoadTime(), int64(3000))
	testutil.AssertEqual(t, s.EvictionCount(), int64(1))
}
