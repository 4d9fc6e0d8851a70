/*
Package dispatch provides the delivery strategies and executors used by the
event bus.

Three dispatchers are available:

  - Queued: the synchronous default. Events posted from inside a
    subscriber are queued per posting goroutine and delivered breadth-first
    once the current event has reached every subscriber.
  - LegacyAsync: a single shared queue of (event, subscriber) pairs,
    drained by every poster. Kept for backward compatibility with the
    asynchronous bus.
  - Immediate: inline, depth-first delivery with no queueing.

Executors decouple handler invocation from the posting goroutine. Direct
runs handlers inline, Goroutine spawns one goroutine per delivery, and
Pool bounds concurrency with a fixed worker set and a blocking queue.
*/
package dispatch
