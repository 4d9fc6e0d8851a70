package smooth

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/gopulse/pkg/common/errors"
	"github.com/vnykmshr/gopulse/pkg/common/validation"
)

// Limiter distributes permits at a configurable rate. Each AcquireN blocks
// until its permits are available, smoothing callers out to the stable rate
// while letting idle time bank permits for later bursts (bursty mode) or
// slow the limiter down after idle periods (warming-up mode).
type Limiter interface {
	// Acquire obtains a single permit, blocking until it is available.
	// It returns the time spent sleeping, which may be zero.
	Acquire() time.Duration

	// AcquireN obtains the given number of permits, blocking until they
	// are available. It returns the time spent sleeping.
	// It panics if permits is not positive.
	AcquireN(permits int) time.Duration

	// TryAcquire obtains a permit only if it is available without waiting.
	TryAcquire() bool

	// TryAcquireN obtains permits if they would become available within
	// the timeout. On refusal no permits are consumed and no state
	// changes; on success it blocks for the required wait and returns true.
	// It panics if permits is not positive.
	TryAcquireN(permits int, timeout time.Duration) bool

	// SetRate updates the stable rate. Accumulated debt is preserved:
	// callers already reserved are unaffected, subsequent callers pay at
	// the new rate.
	SetRate(permitsPerSecond float64) error

	// Rate returns the stable rate in permits per second.
	Rate() float64

	// StoredPermits returns the number of permits currently banked after
	// accounting for idle time up to now.
	StoredPermits() float64

	fmt.Stringer
}

// Stopwatch is the limiter's clock and sleep seam. Implementations must
// report monotonic, non-decreasing microseconds.
type Stopwatch interface {
	// ReadMicros returns the elapsed microseconds since the stopwatch
	// was created.
	ReadMicros() int64

	// SleepMicros blocks the caller for approximately the given number
	// of microseconds. Values <= 0 return immediately. The sleep runs to
	// completion; it is not shortened by external cancellation.
	SleepMicros(micros int64)
}

// systemStopwatch implements Stopwatch using the runtime's monotonic clock.
type systemStopwatch struct {
	start time.Time
}

// NewStopwatch creates a Stopwatch backed by the system timer.
func NewStopwatch() Stopwatch {
	return &systemStopwatch{start: time.Now()}
}

func (s *systemStopwatch) ReadMicros() int64 {
	return time.Since(s.start).Microseconds()
}

func (s *systemStopwatch) SleepMicros(micros int64) {
	if micros > 0 {
		time.Sleep(time.Duration(micros) * time.Microsecond)
	}
}

// New creates a bursty limiter with the given rate and a one second burst
// window, backed by the system timer.
func New(permitsPerSecond float64) (Limiter, error) {
	return NewBursty(permitsPerSecond, 1.0, nil)
}

// NewBursty creates a limiter that banks up to maxBurstSeconds worth of
// unused capacity and spends it in bursts at no extra cost. The bucket
// starts empty, so bursts are earned by idle time rather than pre-charged.
// A nil stopwatch selects the system timer.
func NewBursty(permitsPerSecond, maxBurstSeconds float64, stopwatch Stopwatch) (Limiter, error) {
	if err := checkRate(permitsPerSecond); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveFloat("smooth", "maxBurstSeconds", maxBurstSeconds); err != nil {
		return nil, err
	}
	if stopwatch == nil {
		stopwatch = NewStopwatch()
	}
	l := &smoothLimiter{
		stopwatch: stopwatch,
		mode:      &burstyMode{maxBurstSeconds: maxBurstSeconds},
	}
	l.doSetRate(permitsPerSecond, stopwatch.ReadMicros())
	return l, nil
}

// NewWarmingUp creates a limiter that serves slower than the stable rate
// after idle periods, ramping back to the stable interval over
// warmupPeriod as stored permits drain. The bucket starts full, so the
// first callers after creation experience the cold rate. coldFactor is the
// ratio between the cold interval and the stable interval; 3 reproduces
// the conventional warm-up curve. A nil stopwatch selects the system timer.
func NewWarmingUp(permitsPerSecond float64, warmupPeriod time.Duration, coldFactor float64, stopwatch Stopwatch) (Limiter, error) {
	if err := checkRate(permitsPerSecond); err != nil {
		return nil, err
	}
	if warmupPeriod < 0 {
		return nil, errors.NewValidationError("smooth", "warmupPeriod", warmupPeriod, "cannot be negative").
			WithHint("use 0 for no warm-up or a positive duration")
	}
	if coldFactor < 1 {
		return nil, errors.NewValidationError("smooth", "coldFactor", coldFactor, "must be at least 1").
			WithHint("3 is the conventional value")
	}
	if stopwatch == nil {
		stopwatch = NewStopwatch()
	}
	l := &smoothLimiter{
		stopwatch: stopwatch,
		mode: &warmingUpMode{
			warmupPeriodMicros: warmupPeriod.Microseconds(),
			coldFactor:         coldFactor,
		},
	}
	l.doSetRate(permitsPerSecond, stopwatch.ReadMicros())
	return l, nil
}

func checkRate(permitsPerSecond float64) error {
	if permitsPerSecond <= 0 || math.IsNaN(permitsPerSecond) || math.IsInf(permitsPerSecond, 0) {
		return errors.NewValidationError("smooth", "permitsPerSecond", permitsPerSecond, "must be positive and finite").
			WithHint("rate is expressed in permits per second")
	}
	return nil
}

func checkPermits(permits int) {
	if permits <= 0 {
		panic(fmt.Sprintf("smooth: requested permits (%d) must be positive", permits))
	}
}

// mode supplies the policy-specific pieces of the reservation flow.
type mode interface {
	// doSetRate installs the new stable interval and rescales the bucket.
	doSetRate(l *smoothLimiter, permitsPerSecond, stableIntervalMicros float64)

	// storedPermitsToWaitTime translates spending permitsToTake out of
	// storedPermits into microseconds of wait.
	storedPermitsToWaitTime(l *smoothLimiter, storedPermits, permitsToTake float64) int64

	// coolDownIntervalMicros is the interval at which idle time earns
	// fresh permits.
	coolDownIntervalMicros(l *smoothLimiter) float64

	// name identifies the mode for metrics labels.
	name() string
}

// smoothLimiter holds the state shared by both modes. All fields are
// guarded by mu; nextFreeTicketMicros never decreases.
type smoothLimiter struct {
	stopwatch Stopwatch
	mode      mode

	mu                   sync.Mutex
	storedPermits        float64
	maxPermits           float64
	stableIntervalMicros float64
	nextFreeTicketMicros int64
}

func (l *smoothLimiter) Acquire() time.Duration {
	return l.AcquireN(1)
}

func (l *smoothLimiter) AcquireN(permits int) time.Duration {
	microsToWait := l.reserve(permits)
	l.stopwatch.SleepMicros(microsToWait)
	return time.Duration(microsToWait) * time.Microsecond
}

func (l *smoothLimiter) TryAcquire() bool {
	return l.TryAcquireN(1, 0)
}

func (l *smoothLimiter) TryAcquireN(permits int, timeout time.Duration) bool {
	checkPermits(permits)
	timeoutMicros := timeout.Microseconds()
	if timeoutMicros < 0 {
		timeoutMicros = 0
	}

	var microsToWait int64
	l.mu.Lock()
	nowMicros := l.stopwatch.ReadMicros()
	if !l.canAcquire(nowMicros, timeoutMicros) {
		l.mu.Unlock()
		return false
	}
	microsToWait = l.reserveAndGetWaitLength(permits, nowMicros)
	l.mu.Unlock()

	l.stopwatch.SleepMicros(microsToWait)
	return true
}

func (l *smoothLimiter) SetRate(permitsPerSecond float64) error {
	if err := checkRate(permitsPerSecond); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doSetRate(permitsPerSecond, l.stopwatch.ReadMicros())
	return nil
}

func (l *smoothLimiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return float64(time.Second.Microseconds()) / l.stableIntervalMicros
}

func (l *smoothLimiter) StoredPermits() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resync(l.stopwatch.ReadMicros())
	return l.storedPermits
}

func (l *smoothLimiter) String() string {
	return fmt.Sprintf("Limiter[stableRate=%3.1fqps]", l.Rate())
}

// doSetRate re-syncs the bucket at the old cool-down interval before
// installing the new stable interval, so a rate change neither forgets
// accumulated debt nor grants an instantaneous burst.
func (l *smoothLimiter) doSetRate(permitsPerSecond float64, nowMicros int64) {
	l.resync(nowMicros)
	stableIntervalMicros := float64(time.Second.Microseconds()) / permitsPerSecond
	l.stableIntervalMicros = stableIntervalMicros
	l.mode.doSetRate(l, permitsPerSecond, stableIntervalMicros)
}

func (l *smoothLimiter) reserve(permits int) int64 {
	checkPermits(permits)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserveAndGetWaitLength(permits, l.stopwatch.ReadMicros())
}

func (l *smoothLimiter) reserveAndGetWaitLength(permits int, nowMicros int64) int64 {
	momentAvailable := l.reserveEarliestAvailable(permits, nowMicros)
	wait := momentAvailable - nowMicros
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (l *smoothLimiter) canAcquire(nowMicros, timeoutMicros int64) bool {
	return l.queryEarliestAvailable(nowMicros)-timeoutMicros <= nowMicros
}

func (l *smoothLimiter) queryEarliestAvailable(nowMicros int64) int64 {
	return l.nextFreeTicketMicros
}

// reserveEarliestAvailable is the core of the reservation flow. It returns
// the pre-advance next-free-ticket moment, charging the cost of this
// request forward to the next caller.
func (l *smoothLimiter) reserveEarliestAvailable(requiredPermits int, nowMicros int64) int64 {
	l.resync(nowMicros)
	returnValue := l.nextFreeTicketMicros
	storedPermitsToSpend := math.Min(float64(requiredPermits), l.storedPermits)
	freshPermits := float64(requiredPermits) - storedPermitsToSpend
	waitMicros := l.mode.storedPermitsToWaitTime(l, l.storedPermits, storedPermitsToSpend) +
		int64(freshPermits*l.stableIntervalMicros)
	l.nextFreeTicketMicros = saturatedAdd(l.nextFreeTicketMicros, waitMicros)
	l.storedPermits -= storedPermitsToSpend
	return returnValue
}

// resync banks the permits earned since the last reservation. It only ever
// moves nextFreeTicketMicros forward.
func (l *smoothLimiter) resync(nowMicros int64) {
	if nowMicros > l.nextFreeTicketMicros {
		newPermits := float64(nowMicros-l.nextFreeTicketMicros) / l.mode.coolDownIntervalMicros(l)
		l.storedPermits = math.Min(l.maxPermits, l.storedPermits+newPermits)
		l.nextFreeTicketMicros = nowMicros
	}
}

// saturatedAdd clamps to the int64 extremes instead of overflowing.
func saturatedAdd(a, b int64) int64 {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return math.MaxInt64
	}
	if a < 0 && b < 0 && sum >= 0 {
		return math.MinInt64
	}
	return sum
}
