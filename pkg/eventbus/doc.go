/*
Package eventbus provides in-process publish/subscribe with a
type-hierarchy-aware subscriber registry.

Listeners declare handlers as exported methods named with the Handle
prefix taking a single event parameter:

	type AuditLog struct{ ... }

	func (a *AuditLog) HandleOrderPlaced(e OrderPlaced) { ... }
	func (a *AuditLog) HandleAnyOrder(e OrderEvent) error { ... }

	bus := eventbus.New("orders")
	bus.Register(auditLog)
	bus.Post(OrderPlaced{ID: 42})

An event is delivered to every subscriber whose declared parameter type it
is assignable to: handlers of the event's own type and handlers of any
interface it implements. Posting an event nobody subscribes to posts a
DeadEvent wrapping it, so misses can be observed by subscribing to
DeadEvent.

Handler methods are serialised per subscriber by default. A listener that
implements ConcurrentListener names the methods safe to run in parallel:

	func (a *AuditLog) ConcurrentEvents() []string {
		return []string{"HandleOrderPlaced"}
	}

Handlers may optionally return an error; errors and panics are forwarded
to the bus's exception handler with full context, and never fail the post:
the remaining subscribers of the event still run.

The synchronous bus (New) runs handlers inline with the queued
dispatcher's ordering guarantee: an event posted from inside a handler is
delivered only after the current event has reached every one of its
subscribers. The asynchronous bus (NewAsync) hands invocations to an
executor such as dispatch.NewPool and uses the legacy shared-queue
dispatcher.
*/
package eventbus
