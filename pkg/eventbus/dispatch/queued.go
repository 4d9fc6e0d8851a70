package dispatch

import (
	"sync"

	"github.com/vnykmshr/gopulse/internal/goroutine"
)

// Queued returns the dispatcher used by the synchronous bus. Each posting
// goroutine owns a FIFO of pending events and a dispatching flag: a post
// made from inside a subscriber is queued behind the event being
// delivered, so event A reaches every one of its subscribers before a
// re-entrantly posted event B reaches any of its own. This keeps deep
// subscriber chains breadth-first and bounds stack growth.
func Queued() Dispatcher {
	return &queuedDispatcher{states: make(map[uint64]*dispatchState)}
}

type queuedDispatcher struct {
	mu     sync.Mutex
	states map[uint64]*dispatchState
}

type dispatchState struct {
	queue       []queuedEvent
	dispatching bool
}

type queuedEvent struct {
	event       any
	subscribers Iterator
}

func (d *queuedDispatcher) Dispatch(event any, subscribers Iterator) {
	gid := goroutine.ID()

	d.mu.Lock()
	st, ok := d.states[gid]
	if !ok {
		st = &dispatchState{}
		d.states[gid] = st
	}
	st.queue = append(st.queue, queuedEvent{event: event, subscribers: subscribers})
	if st.dispatching {
		// Re-entrant post inside a subscriber: the outer loop on this
		// goroutine picks it up once the current event is fully delivered.
		d.mu.Unlock()
		return
	}
	st.dispatching = true
	d.mu.Unlock()

	for {
		d.mu.Lock()
		if len(st.queue) == 0 {
			delete(d.states, gid)
			d.mu.Unlock()
			return
		}
		next := st.queue[0]
		st.queue = st.queue[1:]
		d.mu.Unlock()

		for {
			s, ok := next.subscribers.Next()
			if !ok {
				break
			}
			s.DispatchEvent(next.event)
		}
	}
}
