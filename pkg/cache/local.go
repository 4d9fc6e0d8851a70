package cache

import (
	"container/list"
	"fmt"
	"hash/maphash"
	"log/slog"
	"sync"
	"time"

	"github.com/vnykmshr/gopulse/pkg/common/errors"
)

// localCache is the striped in-memory engine behind Build and
// BuildLoading. Keys hash onto concurrencyLevel independent stripes, each
// guarded by its own mutex, so writers on different stripes never contend.
type localCache[K comparable, V any] struct {
	stripes []*stripe[K, V]
	loader  LoaderFunc[K, V]

	expireAfterWrite  time.Duration
	expireAfterAccess time.Duration
	refreshAfterWrite time.Duration

	weigher  WeigherFunc[K, V]
	listener RemovalListenerFunc[K, V]
	ticker   Ticker
	stats    StatsCounter

	seed maphash.Seed
}

// stripe is one lock's worth of the cache: a map plus a recency list
// ordered least-recently-used first.
type stripe[K comparable, V any] struct {
	maxWeight int64 // negative means unbounded

	mu          sync.Mutex
	entries     map[K]*entry[K, V]
	order       *list.List
	totalWeight int64
	loads       map[K]*loadWaiter[V]
	refreshing  map[K]bool
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	weight     int64
	writeTime  int64
	accessTime int64
	elem       *list.Element
}

// loadWaiter lets concurrent getters of one key share a single load.
type loadWaiter[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func newLocalCache[K comparable, V any](b *Builder[K, V], loader LoaderFunc[K, V]) *localCache[K, V] {
	c := &localCache[K, V]{
		loader:            loader,
		expireAfterWrite:  b.expireAfterWrite,
		expireAfterAccess: b.expireAfterAccess,
		refreshAfterWrite: b.refreshAfterWrite,
		weigher:           b.weigher,
		listener:          b.removalListener,
		ticker:            b.ticker,
		stats:             b.statsCounter,
		seed:              maphash.MakeSeed(),
	}
	if c.ticker == nil {
		c.ticker = NewTicker()
	}
	if c.stats == nil {
		c.stats = nopStatsCounter{}
	}

	// Size-based eviction is weight-based eviction with a unit weigher.
	maxTotal := int64(unset)
	if b.maximumSize != unset {
		maxTotal = b.maximumSize
		c.weigher = func(K, V) int64 { return 1 }
	} else if b.maximumWeight != unset {
		maxTotal = b.maximumWeight
	}

	level := b.getConcurrencyLevel()
	capacity := b.getInitialCapacity()/level + 1
	c.stripes = make([]*stripe[K, V], level)
	for i := range c.stripes {
		s := &stripe[K, V]{
			maxWeight:  unset,
			entries:    make(map[K]*entry[K, V], capacity),
			order:      list.New(),
			loads:      make(map[K]*loadWaiter[V]),
			refreshing: make(map[K]bool),
		}
		if maxTotal != unset {
			// Spread the budget across stripes, front-loading the remainder.
			s.maxWeight = maxTotal / int64(level)
			if int64(i) < maxTotal%int64(level) {
				s.maxWeight++
			}
		}
		c.stripes[i] = s
	}
	return c
}

func (c *localCache[K, V]) stripeFor(key K) *stripe[K, V] {
	if len(c.stripes) == 1 {
		return c.stripes[0]
	}
	h := maphash.String(c.seed, fmt.Sprint(key))
	return c.stripes[h%uint64(len(c.stripes))]
}

func (c *localCache[K, V]) isExpired(e *entry[K, V], now int64) bool {
	if c.expireAfterWrite >= 0 && now-e.writeTime >= c.expireAfterWrite.Nanoseconds() {
		return true
	}
	if c.expireAfterAccess >= 0 && now-e.accessTime >= c.expireAfterAccess.Nanoseconds() {
		return true
	}
	return false
}

func (c *localCache[K, V]) shouldRefresh(e *entry[K, V], now int64) bool {
	return c.refreshAfterWrite > 0 && c.loader != nil &&
		now-e.writeTime >= c.refreshAfterWrite.Nanoseconds()
}

// GetIfPresent returns the live value for key, if any.
func (c *localCache[K, V]) GetIfPresent(key K) (V, bool) {
	s := c.stripeFor(key)
	now := c.ticker.Read()

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.stats.RecordMisses(1)
		var zero V
		return zero, false
	}
	if c.isExpired(e, now) {
		note := s.removeLocked(e, RemovalExpired)
		s.mu.Unlock()
		c.stats.RecordMisses(1)
		c.deliver([]RemovalNotification[K, V]{note})
		var zero V
		return zero, false
	}
	e.accessTime = now
	s.order.MoveToBack(e.elem)
	value := e.value
	refresh := c.shouldRefresh(e, now) && !s.refreshing[key]
	if refresh {
		s.refreshing[key] = true
	}
	s.mu.Unlock()

	c.stats.RecordHits(1)
	if refresh {
		go c.refreshKey(key)
	}
	return value, true
}

// Get returns the value for key, loading on a miss. Concurrent callers of
// one key share a single load.
func (c *localCache[K, V]) Get(key K, loader func() (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, errors.NewValidationError("cache", "loader", nil, "cannot be nil")
	}

	if value, ok := c.GetIfPresent(key); ok {
		return value, nil
	}

	s := c.stripeFor(key)
	s.mu.Lock()
	// Someone may have loaded or put the value since the miss.
	if e, ok := s.entries[key]; ok && !c.isExpired(e, c.ticker.Read()) {
		value := e.value
		s.mu.Unlock()
		return value, nil
	}
	if w, ok := s.loads[key]; ok {
		s.mu.Unlock()
		<-w.done
		return w.value, w.err
	}
	w := &loadWaiter[V]{done: make(chan struct{})}
	s.loads[key] = w
	s.mu.Unlock()

	start := time.Now()
	value, err := loader()
	elapsed := time.Since(start)

	var notes []RemovalNotification[K, V]
	s.mu.Lock()
	delete(s.loads, key)
	if err == nil {
		notes = c.putLocked(s, key, value)
	}
	s.mu.Unlock()

	if err != nil {
		c.stats.RecordLoadException(elapsed)
		w.err = errors.NewOperationError("cache", "load", err).
			WithContext(fmt.Sprintf("key %v", key))
		close(w.done)
		return zero, w.err
	}
	c.stats.RecordLoadSuccess(elapsed)
	w.value = value
	close(w.done)
	c.deliver(notes)
	return value, nil
}

// Put associates value with key.
func (c *localCache[K, V]) Put(key K, value V) {
	s := c.stripeFor(key)
	s.mu.Lock()
	notes := c.putLocked(s, key, value)
	s.mu.Unlock()
	c.deliver(notes)
}

// PutAll copies every entry of m into the cache.
func (c *localCache[K, V]) PutAll(m map[K]V) {
	for key, value := range m {
		c.Put(key, value)
	}
}

// putLocked inserts or replaces the entry and evicts until the stripe is
// back under budget. The caller holds s.mu.
func (c *localCache[K, V]) putLocked(s *stripe[K, V], key K, value V) []RemovalNotification[K, V] {
	now := c.ticker.Read()
	weight := int64(1)
	if c.weigher != nil {
		weight = c.weigher(key, value)
	}

	var notes []RemovalNotification[K, V]
	if e, ok := s.entries[key]; ok {
		notes = append(notes, RemovalNotification[K, V]{Key: key, Value: e.value, Cause: RemovalReplaced})
		s.totalWeight += weight - e.weight
		e.value = value
		e.weight = weight
		e.writeTime = now
		e.accessTime = now
		s.order.MoveToBack(e.elem)
	} else {
		e := &entry[K, V]{key: key, value: value, weight: weight, writeTime: now, accessTime: now}
		e.elem = s.order.PushBack(e)
		s.entries[key] = e
		s.totalWeight += weight
	}

	return append(notes, s.evictLocked()...)
}

// evictLocked pops least-recently-used entries until the stripe weight is
// within budget. The caller holds s.mu.
func (s *stripe[K, V]) evictLocked() []RemovalNotification[K, V] {
	if s.maxWeight < 0 {
		return nil
	}
	var notes []RemovalNotification[K, V]
	for s.totalWeight > s.maxWeight && s.order.Len() > 0 {
		oldest := s.order.Front().Value.(*entry[K, V])
		notes = append(notes, s.removeLocked(oldest, RemovalSize))
	}
	return notes
}

// removeLocked detaches the entry from the stripe. The caller holds s.mu.
func (s *stripe[K, V]) removeLocked(e *entry[K, V], cause RemovalCause) RemovalNotification[K, V] {
	delete(s.entries, e.key)
	s.order.Remove(e.elem)
	s.totalWeight -= e.weight
	return RemovalNotification[K, V]{Key: e.key, Value: e.value, Cause: cause}
}

// Invalidate discards the entry for key, if any.
func (c *localCache[K, V]) Invalidate(key K) {
	s := c.stripeFor(key)
	s.mu.Lock()
	var notes []RemovalNotification[K, V]
	if e, ok := s.entries[key]; ok {
		notes = append(notes, s.removeLocked(e, RemovalExplicit))
	}
	s.mu.Unlock()
	c.deliver(notes)
}

// InvalidateKeys discards the entries for the given keys.
func (c *localCache[K, V]) InvalidateKeys(keys []K) {
	for _, key := range keys {
		c.Invalidate(key)
	}
}

// InvalidateAll discards every entry.
func (c *localCache[K, V]) InvalidateAll() {
	for _, s := range c.stripes {
		s.mu.Lock()
		var notes []RemovalNotification[K, V]
		for _, e := range s.entries {
			notes = append(notes, s.removeLocked(e, RemovalExplicit))
		}
		s.mu.Unlock()
		c.deliver(notes)
	}
}

// Size returns the approximate number of entries.
func (c *localCache[K, V]) Size() int64 {
	var n int64
	for _, s := range c.stripes {
		s.mu.Lock()
		n += int64(len(s.entries))
		s.mu.Unlock()
	}
	return n
}

// Stats returns a snapshot of the activity counters.
func (c *localCache[K, V]) Stats() CacheStats {
	return c.stats.Snapshot()
}

// CleanUp removes every expired entry now.
func (c *localCache[K, V]) CleanUp() {
	now := c.ticker.Read()
	for _, s := range c.stripes {
		s.mu.Lock()
		var notes []RemovalNotification[K, V]
		for _, e := range s.entries {
			if c.isExpired(e, now) {
				notes = append(notes, s.removeLocked(e, RemovalExpired))
			}
		}
		s.mu.Unlock()
		c.deliver(notes)
	}
}

// AsMap returns a copy of the live entries.
func (c *localCache[K, V]) AsMap() map[K]V {
	now := c.ticker.Read()
	out := make(map[K]V)
	for _, s := range c.stripes {
		s.mu.Lock()
		for key, e := range s.entries {
			if !c.isExpired(e, now) {
				out[key] = e.value
			}
		}
		s.mu.Unlock()
	}
	return out
}

// GetLoaded returns the value for key via the bound loader.
func (c *localCache[K, V]) GetLoaded(key K) (V, error) {
	return c.Get(key, func() (V, error) { return c.loader(key) })
}

// GetAll returns the values for every key, stopping at the first load
// failure. The entries loaded so far are returned alongside the error.
func (c *localCache[K, V]) GetAll(keys []K) (map[K]V, error) {
	out := make(map[K]V, len(keys))
	for _, key := range keys {
		value, err := c.GetLoaded(key)
		if err != nil {
			return out, err
		}
		out[key] = value
	}
	return out, nil
}

// Refresh reloads the value for key asynchronously.
func (c *localCache[K, V]) Refresh(key K) {
	s := c.stripeFor(key)
	s.mu.Lock()
	already := s.refreshing[key]
	if !already {
		s.refreshing[key] = true
	}
	s.mu.Unlock()
	if !already {
		go c.refreshKey(key)
	}
}

// refreshKey runs one reload. A failed reload keeps the stale value; a
// successful one replaces it with a new write time.
func (c *localCache[K, V]) refreshKey(key K) {
	start := time.Now()
	value, err := c.loader(key)
	elapsed := time.Since(start)

	s := c.stripeFor(key)
	var notes []RemovalNotification[K, V]
	s.mu.Lock()
	delete(s.refreshing, key)
	if err == nil {
		notes = c.putLocked(s, key, value)
	}
	s.mu.Unlock()

	if err != nil {
		c.stats.RecordLoadException(elapsed)
		return
	}
	c.stats.RecordLoadSuccess(elapsed)
	c.deliver(notes)
}

// deliver records evictions and hands notifications to the removal
// listener, shielding the cache from listener panics.
func (c *localCache[K, V]) deliver(notes []RemovalNotification[K, V]) {
	for _, note := range notes {
		if note.Cause.WasEvicted() {
			c.stats.RecordEviction()
		}
		if c.listener != nil {
			c.notify(note)
		}
	}
}

func (c *localCache[K, V]) notify(note RemovalNotification[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cache: removal listener panicked",
				"key", fmt.Sprint(note.Key),
				"cause", note.Cause.String(),
				"panic", r)
		}
	}()
	c.listener(note)
}
