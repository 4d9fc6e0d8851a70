package eventbus

import "fmt"

// DeadEvent wraps an event that was posted but had no subscribers.
// Registering a handler for DeadEvent is how otherwise-silent misses are
// observed; a DeadEvent that itself has no subscribers is dropped rather
// than re-wrapped.
type DeadEvent struct {
	// Source is the bus the original event was posted on.
	Source any

	// Event is the original event.
	Event any
}

func (d DeadEvent) String() string {
	return fmt.Sprintf("DeadEvent{source=%v, event=%v}", d.Source, d.Event)
}
