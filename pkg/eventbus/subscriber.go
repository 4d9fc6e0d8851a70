package eventbus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vnykmshr/gopulse/pkg/eventbus/dispatch"
)

// subscriber binds a listener method to its bus and executor. It is
// immutable after creation; the mutex only serialises handler invocation
// for methods not declared safe for concurrent events.
type subscriber struct {
	bus        *Bus
	target     any
	methodName string
	handler    reflect.Value
	eventType  reflect.Type
	executor   dispatch.Executor

	serialize bool
	mu        sync.Mutex
}

func newSubscriber(bus *Bus, listener any, m subscriberMethod, concurrentSafe bool) *subscriber {
	return &subscriber{
		bus:        bus,
		target:     listener,
		methodName: m.name,
		handler:    reflect.ValueOf(listener).Method(m.index),
		eventType:  m.eventType,
		executor:   bus.executor,
		serialize:  !concurrentSafe,
	}
}

// DispatchEvent submits the handler invocation to the subscriber's
// executor. Failures raised by the handler are forwarded to the bus's
// exception handler; the posting path itself never fails.
func (s *subscriber) DispatchEvent(event any) {
	s.executor.Execute(func() {
		err := s.invoke(event)
		if s.bus.metricsEnabled() {
			s.bus.metrics.EventsDelivered.WithLabelValues(s.bus.identifier).Inc()
		}
		if err != nil {
			s.bus.handleSubscriberError(err, ExceptionContext{
				Bus:        s.bus,
				Event:      event,
				Listener:   s.target,
				MethodName: s.methodName,
			})
		}
	})
}

func (s *subscriber) invoke(event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %s panicked: %v", s.methodName, r)
		}
	}()

	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	out := s.handler.Call([]reflect.Value{reflect.ValueOf(event)})
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// equalSubscriber reports whether two subscribers bind the same listener
// and the same method. This is the identity used for unregistration.
func equalSubscriber(a, b *subscriber) bool {
	return a.methodName == b.methodName && sameListener(a.target, b.target)
}

// sameListener compares listener identity. Pointer listeners compare by
// address; comparable value listeners compare by value.
func sameListener(x, y any) bool {
	tx, ty := reflect.TypeOf(x), reflect.TypeOf(y)
	if tx != ty {
		return false
	}
	if tx.Comparable() {
		return x == y
	}
	return false
}
