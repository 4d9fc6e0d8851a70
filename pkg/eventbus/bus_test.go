package eventbus

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/gopulse/internal/testutil"
	gperrors "github.com/vnykmshr/gopulse/pkg/common/errors"
	"github.com/vnykmshr/gopulse/pkg/eventbus/dispatch"
)

type stringEvent struct {
	Value string
}

type otherEvent struct {
	N int
}

// recorder collects delivered events in order.
type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) record(e any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.events))
	copy(out, r.events)
	return out
}

type stringListener struct {
	rec *recorder
}

func (l *stringListener) HandleString(e stringEvent) {
	l.rec.record(e)
}

type deadEventListener struct {
	rec *recorder
}

func (l *deadEventListener) HandleDead(e DeadEvent) {
	l.rec.record(e)
}

func TestRegisterAndPost(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	listener := &stringListener{rec: rec}

	testutil.AssertNoError(t, bus.Register(listener))
	bus.Post(stringEvent{Value: "hello"})

	events := rec.all()
	testutil.AssertEqual(t, len(events), 1)
	testutil.AssertEqual(t, events[0].(stringEvent).Value, "hello")
}

func TestPostDeliversToEveryListenerExactlyOnce(t *testing.T) {
	bus := New("test")
	recA, recB := &recorder{}, &recorder{}
	testutil.AssertNoError(t, bus.Register(&stringListener{rec: recA}))
	testutil.AssertNoError(t, bus.Register(&stringListener{rec: recB}))

	bus.Post(stringEvent{Value: "x"})

	testutil.AssertEqual(t, len(recA.all()), 1)
	testutil.AssertEqual(t, len(recB.all()), 1)
}

func TestRegisterSameListenerTwiceDeliversOnce(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	listener := &stringListener{rec: rec}

	testutil.AssertNoError(t, bus.Register(listener))
	testutil.AssertNoError(t, bus.Register(listener))
	bus.Post(stringEvent{Value: "once"})

	testutil.AssertEqual(t, len(rec.all()), 1)
}

func TestDeadEvent(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	testutil.AssertNoError(t, bus.Register(&deadEventListener{rec: rec}))

	bus.Post(stringEvent{Value: "nobody home"})

	events := rec.all()
	testutil.AssertEqual(t, len(events), 1)
	dead := events[0].(DeadEvent)
	if dead.Source != bus {
		t.Error("dead event source should be the posting bus")
	}
	testutil.AssertEqual(t, dead.Event.(stringEvent).Value, "nobody home")
}

func TestDeadEventDoesNotRecurse(t *testing.T) {
	bus := New("test")
	// No subscribers at all: the miss wraps once and stops.
	bus.Post(stringEvent{Value: "void"})
}

func TestUnregister(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	listener := &stringListener{rec: rec}

	testutil.AssertNoError(t, bus.Register(listener))
	testutil.AssertNoError(t, bus.Unregister(listener))
	bus.Post(stringEvent{Value: "gone"})
	testutil.AssertEqual(t, len(rec.all()), 0)

	// Registering again restores delivery.
	testutil.AssertNoError(t, bus.Register(listener))
	bus.Post(stringEvent{Value: "back"})
	testutil.AssertEqual(t, len(rec.all()), 1)
}

func TestUnregisterNeverRegistered(t *testing.T) {
	bus := New("test")
	err := bus.Unregister(&stringListener{rec: &recorder{}})
	testutil.AssertError(t, err)
	if !stderrors.Is(err, gperrors.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestUnregisterDifferentInstanceFails(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	testutil.AssertNoError(t, bus.Register(&stringListener{rec: rec}))

	err := bus.Unregister(&stringListener{rec: rec})
	testutil.AssertError(t, err)
}

// animal / dog model the supertype scenario: a handler declared on an
// interface type receives every implementation posted.
type animal interface {
	Name() string
}

type dog struct{}

func (dog) Name() string { return "dog" }

type cat struct{}

func (cat) Name() string { return "cat" }

type hierarchyListener struct {
	rec *recorder
}

func (l *hierarchyListener) HandleAnimal(a animal) {
	l.rec.record("animal:" + a.Name())
}

func (l *hierarchyListener) HandleDog(d dog) {
	l.rec.record("dog")
}

func TestInterfaceHierarchyDelivery(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	testutil.AssertNoError(t, bus.Register(&hierarchyListener{rec: rec}))

	// A dog is both a dog and an animal: both handlers fire.
	bus.Post(dog{})
	events := rec.all()
	testutil.AssertEqual(t, len(events), 2)

	seen := map[any]bool{}
	for _, e := range events {
		seen[e] = true
	}
	if !seen["animal:dog"] || !seen["dog"] {
		t.Errorf("expected both handlers to fire, got %v", events)
	}

	// A cat only matches the interface handler.
	bus.Post(cat{})
	events = rec.all()
	testutil.AssertEqual(t, len(events), 3)
	testutil.AssertEqual(t, events[2].(string), "animal:cat")
}

// base carries a promoted handler; embedding it is the Go analogue of
// inheriting a subscriber method from a supertype.
type base struct {
	rec *recorder
}

func (b *base) HandleString(e stringEvent) {
	b.rec.record(e)
}

type derived struct {
	*base
}

func TestPromotedHandlerFromEmbeddedType(t *testing.T) {
	bus := New("test")
	rec := &recorder{}
	listener := &derived{base: &base{rec: rec}}

	testutil.AssertNoError(t, bus.Register(listener))
	bus.Post(stringEvent{Value: "promoted"})
	testutil.AssertEqual(t, len(rec.all()), 1)
}

type badArityListener struct{}

func (badArityListener) HandleTwo(a stringEvent, b stringEvent) {}

type primitiveListener struct{}

func (primitiveListener) HandleInt(n int) {}

type badReturnListener struct{}

func (badReturnListener) HandleString(e stringEvent) string { return "" }

func TestRegisterValidation(t *testing.T) {
	bus := New("test")

	tests := []struct {
		name     string
		listener any
	}{
		{"wrong arity", badArityListener{}},
		{"primitive parameter", primitiveListener{}},
		{"non-error return", badReturnListener{}},
		{"nil listener", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bus.Register(tt.listener)
			testutil.AssertError(t, err)
			if !stderrors.Is(err, gperrors.ErrInvalidConfiguration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

// reentrantListener posts a follow-up event from inside its handler.
type reentrantListener struct {
	bus *Bus
	rec *recorder
}

func (l *reentrantListener) HandleString(e stringEvent) {
	l.rec.record("first:" + e.Value)
	l.bus.Post(otherEvent{N: 1})
}

type tailListener struct {
	rec *recorder
}

func (l *tailListener) HandleString(e stringEvent) {
	l.rec.record("second:" + e.Value)
}

type otherListener struct {
	rec *recorder
}

func (l *otherListener) HandleOther(e otherEvent) {
	l.rec.record("other")
}

// TestQueuedDispatchOrdering checks the breadth-first guarantee: a
// re-entrantly posted event is delivered only after the current event has
// reached every one of its subscribers.
func TestQueuedDispatchOrdering(t *testing.T) {
	bus := New("test")
	rec := &recorder{}

	testutil.AssertNoError(t, bus.Register(&reentrantListener{bus: bus, rec: rec}))
	testutil.AssertNoError(t, bus.Register(&tailListener{rec: rec}))
	testutil.AssertNoError(t, bus.Register(&otherListener{rec: rec}))

	bus.Post(stringEvent{Value: "x"})

	events := rec.all()
	testutil.AssertEqual(t, len(events), 3)
	testutil.AssertEqual(t, events[0].(string), "first:x")
	testutil.AssertEqual(t, events[1].(string), "second:x")
	testutil.AssertEqual(t, events[2].(string), "other")
}

// TestImmediateDispatchNesting checks the contrast: with the immediate
// dispatcher, the re-entrant post is delivered depth-first, before the
// outer event finishes.
func TestImmediateDispatchNesting(t *testing.T) {
	bus := NewWithConfig(Config{
		Identifier: "test",
		Dispatcher: dispatch.Immediate(),
	})
	rec := &recorder{}

	testutil.AssertNoError(t, bus.Register(&reentrantListener{bus: bus, rec: rec}))
	testutil.AssertNoError(t, bus.Register(&tailListener{rec: rec}))
	testutil.AssertNoError(t, bus.Register(&otherListener{rec: rec}))

	bus.Post(stringEvent{Value: "x"})

	events := rec.all()
	testutil.AssertEqual(t, len(events), 3)
	testutil.AssertEqual(t, events[0].(string), "first:x")
	testutil.AssertEqual(t, events[1].(string), "other")
	testutil.AssertEqual(t, events[2].(string), "second:x")
}

type failingListener struct{}

func (failingListener) HandleString(e stringEvent) error {
	return stderrors.New("handler refused")
}

type panickyListener struct{}

func (panickyListener) HandleString(e stringEvent) {
	panic("handler exploded")
}

func TestSubscriberErrorForwardedToHandler(t *testing.T) {
	var captured []ExceptionContext
	var capturedErrs []error
	bus := NewWithConfig(Config{
		Identifier: "test",
		ExceptionHandler: ExceptionHandlerFunc(func(err error, ctx ExceptionContext) {
			capturedErrs = append(capturedErrs, err)
			captured = append(captured, ctx)
		}),
	})

	rec := &recorder{}
	testutil.AssertNoError(t, bus.Register(failingListener{}))
	testutil.AssertNoError(t, bus.Register(panickyListener{}))
	testutil.AssertNoError(t, bus.Register(&stringListener{rec: rec}))

	bus.Post(stringEvent{Value: "x"})

	// The failures did not stop delivery to the healthy subscriber.
	testutil.AssertEqual(t, len(rec.all()), 1)
	testutil.AssertEqual(t, len(captured), 2)
	for _, ctx := range captured {
		if ctx.Bus != bus {
			t.Error("context should carry the bus")
		}
		testutil.AssertEqual(t, ctx.MethodName, "HandleString")
	}
	for _, err := range capturedErrs {
		testutil.AssertError(t, err)
	}
}

func TestPanickingExceptionHandlerIsSwallowed(t *testing.T) {
	bus := NewWithConfig(Config{
		Identifier: "test",
		ExceptionHandler: ExceptionHandlerFunc(func(err error, ctx ExceptionContext) {
			panic("handler of handlers down")
		}),
	})
	rec := &recorder{}
	testutil.AssertNoError(t, bus.Register(failingListener{}))
	testutil.AssertNoError(t, bus.Register(&stringListener{rec: rec}))

	// Must not panic, and the healthy subscriber still runs.
	bus.Post(stringEvent{Value: "x"})
	testutil.AssertEqual(t, len(rec.all()), 1)
}

// serializedListener checks the no-overlap guarantee for unmarked handlers.
type serializedListener struct {
	inFlight   atomic.Int32
	violations atomic.Int32
	calls      atomic.Int32
}

func (l *serializedListener) HandleString(e stringEvent) {
	if l.inFlight.Add(1) > 1 {
		l.violations.Add(1)
	}
	time.Sleep(time.Millisecond)
	l.inFlight.Add(-1)
	l.calls.Add(1)
}

func TestUnmarkedHandlerNeverOverlaps(t *testing.T) {
	bus := NewWithConfig(Config{
		Identifier: "test",
		Executor:   dispatch.Goroutine(),
	})
	listener := &serializedListener{}
	testutil.AssertNoError(t, bus.Register(listener))

	const n = 16
	for i := 0; i < n; i++ {
		bus.Post(stringEvent{Value: "x"})
	}

	testutil.Eventually(t, testutil.TestTimeout, func() bool {
		return listener.calls.Load() == n
	})
	testutil.AssertEqual(t, listener.violations.Load(), int32(0))
}

// concurrentMarkedListener opts its handler into parallel invocation.
type concurrentMarkedListener struct {
	calls atomic.Int32
}

func (l *concurrentMarkedListener) HandleString(e stringEvent) {
	l.calls.Add(1)
}

func (l *concurrentMarkedListener) ConcurrentEvents() []string {
	return []string{"HandleString"}
}

func TestConcurrentMarkedHandlerDeliversAll(t *testing.T) {
	bus := NewWithConfig(Config{
		Identifier: "test",
		Executor:   dispatch.Goroutine(),
	})
	listener := &concurrentMarkedListener{}
	testutil.AssertNoError(t, bus.Register(listener))

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Post(stringEvent{Value: "x"})
		}()
	}
	wg.Wait()

	testutil.Eventually(t, testutil.TestTimeout, func() bool {
		return listener.calls.Load() == n
	})
}

// TestIterationDuringUnregister posts concurrently with churn of an
// unrelated listener of the same event type. Iteration must not panic, and
// the stable listener must receive exactly one delivery per post.
func TestIterationDuringUnregister(t *testing.T) {
	bus := New("test")
	stable := &recorder{}
	testutil.AssertNoError(t, bus.Register(&stringListener{rec: stable}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			churn := &stringListener{rec: &recorder{}}
			if err := bus.Register(churn); err != nil {
				t.Error(err)
				return
			}
			if err := bus.Unregister(churn); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	posts := 0
	for {
		select {
		case <-done:
			bus.Post(stringEvent{Value: "last"})
			posts++
			testutil.AssertEqual(t, len(stable.all()), posts)
			return
		default:
			bus.Post(stringEvent{Value: "churn"})
			posts++
		}
	}
}

func TestAsyncBusDeliversViaPool(t *testing.T) {
	pool, err := dispatch.NewPool(4, 16)
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	bus := NewAsync("async", pool)
	listener := &concurrentMarkedListener{}
	testutil.AssertNoError(t, bus.Register(listener))

	const n = 20
	for i := 0; i < n; i++ {
		bus.Post(stringEvent{Value: "x"})
	}

	testutil.Eventually(t, testutil.TestTimeout, func() bool {
		return listener.calls.Load() == n
	})
}

func TestPostNilPanics(t *testing.T) {
	bus := New("test")
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil event")
		}
	}()
	bus.Post(nil)
}

func TestIdentifier(t *testing.T) {
	testutil.AssertEqual(t, New("orders").Identifier(), "orders")
	testutil.AssertEqual(t, NewWithConfig(Config{}).Identifier(), "default")
	testutil.AssertEqual(t, New("orders").String(), "EventBus{orders}")
}
