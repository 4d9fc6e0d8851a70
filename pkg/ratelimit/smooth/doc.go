/*
Package smooth provides a rate limiter that hands out permits at a stable
configured rate while modelling the future as a single monotonically
advancing next-free-ticket moment.

Two modes are available:

  - Bursty: idle time banks permits (up to a burst window) that can be
    spent later at no cost, so traffic after a quiet period is served
    immediately while long-run throughput stays at the stable rate.

	limiter, _ := smooth.New(10) // 10 permits/sec, 1s burst window
	waited := limiter.Acquire()

  - Warming up: idle time makes the limiter cold. Permits get cheaper as
    the bucket drains, ramping from coldFactor times the stable interval
    down to the stable interval across the warm-up period. Useful when the
    guarded resource itself needs to warm caches or connection pools.

	limiter, _ := smooth.NewWarmingUp(10, 2*time.Second, 3, nil)

Both modes share the same reservation flow: a request is granted
immediately whenever permits are available, and its cost is charged
forward by advancing the next-free-ticket moment, so it is the following
caller that pays. TryAcquireN never blocks beyond its timeout and leaves
the limiter untouched on refusal.

All limiters are safe for concurrent use. Sleeps run to completion; the
only cancellation-aware call is TryAcquireN.
*/
package smooth
