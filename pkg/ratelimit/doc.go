/*
Package ratelimit provides rate limiting primitives for Go applications.

The smooth subpackage implements a token-bucket limiter that models the
future as a single next-free-ticket moment, in two modes:

Bursty mode banks idle capacity and serves bursts at no extra cost, ideal
for interactive traffic:

	limiter, _ := smooth.New(10) // 10 permits/sec, 1s burst window
	waited := limiter.Acquire()

Warming-up mode serves slower after idle periods and ramps back to the
stable rate as the bucket drains, ideal when the guarded resource itself
needs warm-up:

	limiter, _ := smooth.NewWarmingUp(10, 2*time.Second, 3, nil)

Both modes support:
  - Blocking acquisition of one or more permits (Acquire/AcquireN)
  - Non-blocking attempts with a wait budget (TryAcquire/TryAcquireN)
  - Dynamic rate changes that preserve accumulated debt (SetRate)
  - State inspection (Rate, StoredPermits)

All limiters are safe for concurrent use. Prometheus instrumentation is
available through NewWithMetrics and WrapWithMetrics.
*/
package ratelimit
