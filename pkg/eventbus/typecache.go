package eventbus

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/vnykmshr/gopulse/pkg/common/errors"
)

// subscriberMethod describes one handler method of a listener type.
type subscriberMethod struct {
	name      string
	index     int
	eventType reflect.Type
}

// methodsCache is the process-wide cache of listener type to handler
// methods. Types are never unloaded, so entries live for the process.
// The per-entry once guarantees at most one discovery per type while
// letting distinct types discover concurrently.
type methodsCache struct {
	mu      sync.Mutex
	entries map[reflect.Type]*methodsEntry
}

type methodsEntry struct {
	once    sync.Once
	methods []subscriberMethod
	err     error
}

var methodCache = &methodsCache{entries: make(map[reflect.Type]*methodsEntry)}

// listenerMethods returns the handler methods of the given listener type,
// discovering and caching them on first use.
func listenerMethods(t reflect.Type) ([]subscriberMethod, error) {
	methodCache.mu.Lock()
	e, ok := methodCache.entries[t]
	if !ok {
		e = &methodsEntry{}
		methodCache.entries[t] = e
	}
	methodCache.mu.Unlock()

	e.once.Do(func() {
		e.methods, e.err = discoverMethods(t)
	})
	return e.methods, e.err
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// discoverMethods scans the exported method set of t for handler methods:
// name prefixed "Handle", exactly one non-primitive parameter, at most an
// error result. Methods promoted from embedded types are part of t's
// method set already, with the outermost declaration winning, so embedding
// behaves like subclass method inheritance.
func discoverMethods(t reflect.Type) ([]subscriberMethod, error) {
	var out []subscriberMethod
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, "Handle") {
			continue
		}
		mt := m.Type
		if mt.NumIn() != 2 {
			return nil, errors.NewValidationError("eventbus", "listener", t.String(),
				fmt.Sprintf("method %s has %d parameters, handler methods must have exactly 1", m.Name, mt.NumIn()-1)).
				WithHint("give the method a single event parameter")
		}
		param := mt.In(1)
		if isPrimitive(param) {
			return nil, errors.NewValidationError("eventbus", "listener", t.String(),
				fmt.Sprintf("method %s accepts primitive type %s", m.Name, param)).
				WithHint("wrap the value in an event struct")
		}
		if mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != errorType) {
			return nil, errors.NewValidationError("eventbus", "listener", t.String(),
				fmt.Sprintf("method %s may return nothing or a single error", m.Name))
		}
		out = append(out, subscriberMethod{name: m.Name, index: m.Index, eventType: param})
	}
	return out, nil
}

// isPrimitive reports whether t is of a bare scalar kind, which cannot carry
// an event.
func isPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String,
		reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// hierarchyCache maps a concrete event type to the registered subscription
// types it is assignable to: the type itself plus every registered
// interface it implements. Entries are recomputed when the registry's key
// set grows; the per-entry mutex keeps loads to at most one per key while
// distinct keys load concurrently.
type hierarchyCache struct {
	mu      sync.Mutex
	entries map[reflect.Type]*hierarchyEntry
}

type hierarchyEntry struct {
	mu    sync.Mutex
	valid bool
	gen   uint64
	types []reflect.Type
}

func newHierarchyCache() *hierarchyCache {
	return &hierarchyCache{entries: make(map[reflect.Type]*hierarchyEntry)}
}

func (hc *hierarchyCache) flatten(t reflect.Type, r *registry) []reflect.Type {
	hc.mu.Lock()
	e, ok := hc.entries[t]
	if !ok {
		e = &hierarchyEntry{}
		hc.entries[t] = e
	}
	hc.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	gen := r.keyGen.Load()
	if !e.valid || e.gen != gen {
		e.types = computeFlattened(t, r)
		e.gen = gen
		e.valid = true
	}
	return e.types
}

func computeFlattened(t reflect.Type, r *registry) []reflect.Type {
	var types []reflect.Type
	r.subscribers.Range(func(key, _ any) bool {
		kt := key.(reflect.Type)
		if t.AssignableTo(kt) {
			types = append(types, kt)
		}
		return true
	})
	// Stable order for a given hierarchy; ordering across types is
	// otherwise unspecified.
	sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
	return types
}
