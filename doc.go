/*
Package gopulse provides concurrency primitives for Go applications: a
smooth rate limiter, a publish/subscribe event bus, and a
builder-configured in-memory cache.

Rate Limiting (pkg/ratelimit):
  - smooth: Token-bucket limiter with burst and warm-up modes

Eventing (pkg/eventbus):
  - eventbus: Type-aware pub/sub with dead-event fallback
  - dispatch: Delivery strategies and executors

Caching (pkg/cache):
  - cache: Striped LRU cache with expiry, refresh, and statistics

Example usage:

	import (
		"github.com/vnykmshr/gopulse/pkg/cache"
		"github.com/vnykmshr/gopulse/pkg/eventbus"
		"github.com/vnykmshr/gopulse/pkg/ratelimit/smooth"
	)

	limiter, _ := smooth.New(10) // 10 permits/sec
	bus := eventbus.New("app")
	sessions, _ := cache.NewBuilder[string, Session]().MaximumSize(1000).Build()

	limiter.Acquire()
	bus.Post(LoginEvent{User: "alice"})
*/
package gopulse
