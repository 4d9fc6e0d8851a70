package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/gopulse/pkg/common/errors"
	"github.com/vnykmshr/gopulse/pkg/common/validation"
	"github.com/vnykmshr/gopulse/pkg/eventbus/dispatch"
)

// registry indexes subscribers by their declared event type. The index is
// a concurrent map of copy-on-write sets, so registration never blocks a
// concurrent Post and iteration observed by Post is a weakly consistent
// snapshot.
type registry struct {
	bus         *Bus
	subscribers sync.Map // reflect.Type -> *subscriberSet
	keyGen      atomic.Uint64
	hierarchy   *hierarchyCache
}

func newRegistry(bus *Bus) *registry {
	return &registry{bus: bus, hierarchy: newHierarchyCache()}
}

// register discovers the listener's handler methods and inserts one
// subscriber per method into the set for that method's event type.
func (r *registry) register(listener any) error {
	byType, err := r.findAllSubscribers(listener)
	if err != nil {
		return err
	}

	for eventType, subs := range byType {
		setAny, loaded := r.subscribers.LoadOrStore(eventType, &subscriberSet{})
		if !loaded {
			// A new subscription type invalidates cached hierarchies.
			r.keyGen.Add(1)
		}
		setAny.(*subscriberSet).add(subs)

		if r.bus.metricsEnabled() {
			r.bus.metrics.Subscribers.WithLabelValues(r.bus.identifier).Add(float64(len(subs)))
		}
	}
	return nil
}

// unregister removes the listener's subscribers. It fails when any
// expected subscriber is absent; removals already made are not rolled
// back, so a listener must be unregistered with the same object it was
// registered with.
func (r *registry) unregister(listener any) error {
	byType, err := r.findAllSubscribers(listener)
	if err != nil {
		return err
	}

	for eventType, subs := range byType {
		setAny, ok := r.subscribers.Load(eventType)
		if !ok || !setAny.(*subscriberSet).removeAll(subs) {
			return errors.NewOperationError("eventbus", "Unregister", errors.ErrNotRegistered).
				WithContext(fmt.Sprintf("listener %T for event type %s", listener, eventType))
		}
		if r.bus.metricsEnabled() {
			r.bus.metrics.Subscribers.WithLabelValues(r.bus.identifier).Sub(float64(len(subs)))
		}
	}
	return nil
}

// findAllSubscribers groups the listener's handler methods by event type.
func (r *registry) findAllSubscribers(listener any) (map[reflect.Type][]*subscriber, error) {
	if err := validation.ValidateNotNil("eventbus", "listener", listener); err != nil {
		return nil, err
	}

	methods, err := listenerMethods(reflect.TypeOf(listener))
	if err != nil {
		return nil, err
	}

	concurrent := concurrentMethodNames(listener)
	byType := make(map[reflect.Type][]*subscriber, len(methods))
	for _, m := range methods {
		sub := newSubscriber(r.bus, listener, m, concurrent[m.name])
		byType[m.eventType] = append(byType[m.eventType], sub)
	}
	return byType, nil
}

func concurrentMethodNames(listener any) map[string]bool {
	cl, ok := listener.(ConcurrentListener)
	if !ok {
		return nil
	}
	names := make(map[string]bool)
	for _, name := range cl.ConcurrentEvents() {
		names[name] = true
	}
	return names
}

// iterator returns a lazy iterator over the subscribers of every
// registered type the event is assignable to. Each per-type set is
// snapshotted when the iteration reaches it.
func (r *registry) iterator(event any) dispatch.Iterator {
	return &subscriberIterator{
		reg:   r,
		types: r.hierarchy.flatten(reflect.TypeOf(event), r),
	}
}

// subscribersForType returns the current snapshot for one event type.
func (r *registry) subscribersForType(eventType reflect.Type) []*subscriber {
	if setAny, ok := r.subscribers.Load(eventType); ok {
		return setAny.(*subscriberSet).get()
	}
	return nil
}

// subscriberSet is an insertion-ordered copy-on-write set. Readers load
// one immutable snapshot; writers swap a fresh slice under the mutex.
type subscriberSet struct {
	mu       sync.Mutex
	snapshot atomic.Value // []*subscriber
}

func (s *subscriberSet) get() []*subscriber {
	subs, _ := s.snapshot.Load().([]*subscriber)
	return subs
}

func (s *subscriberSet) add(subs []*subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.get()
	next := make([]*subscriber, len(cur), len(cur)+len(subs))
	copy(next, cur)
	for _, sub := range subs {
		if !containsSubscriber(next, sub) {
			next = append(next, sub)
		}
	}
	s.snapshot.Store(next)
}

// removeAll removes every subscriber equal to one of subs. It returns
// false if any of them was absent; removals are kept either way.
func (s *subscriberSet) removeAll(subs []*subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.get()
	next := make([]*subscriber, 0, len(cur))
	removed := 0
	for _, existing := range cur {
		if matchesAny(existing, subs) {
			removed++
			continue
		}
		next = append(next, existing)
	}
	s.snapshot.Store(next)
	return removed == len(subs)
}

func containsSubscriber(set []*subscriber, sub *subscriber) bool {
	for _, existing := range set {
		if equalSubscriber(existing, sub) {
			return true
		}
	}
	return false
}

func matchesAny(sub *subscriber, subs []*subscriber) bool {
	for _, candidate := range subs {
		if equalSubscriber(sub, candidate) {
			return true
		}
	}
	return false
}

// subscriberIterator walks the per-type sets lazily, snapshotting each set
// as the iteration reaches it.
type subscriberIterator struct {
	reg     *registry
	types   []reflect.Type
	ti      int
	current []*subscriber
	pos     int
}

func (it *subscriberIterator) Next() (dispatch.Subscriber, bool) {
	for {
		if it.pos < len(it.current) {
			s := it.current[it.pos]
			it.pos++
			return s, true
		}
		if it.ti >= len(it.types) {
			return nil, false
		}
		it.current = it.reg.subscribersForType(it.types[it.ti])
		it.pos = 0
		it.ti++
	}
}
