package smooth

import "math"

// burstyMode banks up to maxBurstSeconds worth of unused capacity. Stored
// permits are free to spend, so a full bucket can be drained in one burst
// with zero wait.
type burstyMode struct {
	maxBurstSeconds float64
}

func (m *burstyMode) doSetRate(l *smoothLimiter, permitsPerSecond, stableIntervalMicros float64) {
	oldMaxPermits := l.maxPermits
	l.maxPermits = m.maxBurstSeconds * permitsPerSecond
	switch {
	case math.IsInf(oldMaxPermits, 1):
		l.storedPermits = l.maxPermits
	case oldMaxPermits == 0:
		// initial state: bursts are not pre-charged
		l.storedPermits = 0
	default:
		l.storedPermits = l.storedPermits * l.maxPermits / oldMaxPermits
	}
}

func (m *burstyMode) storedPermitsToWaitTime(l *smoothLimiter, storedPermits, permitsToTake float64) int64 {
	return 0
}

func (m *burstyMode) coolDownIntervalMicros(l *smoothLimiter) float64 {
	return l.stableIntervalMicros
}

func (m *burstyMode) name() string {
	return "smooth_bursty"
}
