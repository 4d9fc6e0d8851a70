package cache

import (
	"fmt"
	"time"

	"github.com/vnykmshr/gopulse/pkg/common/errors"
)

const (
	defaultInitialCapacity  = 16
	defaultConcurrencyLevel = 4

	unset = -1
)

// Builder assembles a cache configuration. Each option may be set once;
// setting an option twice or with an out-of-range argument is a
// programming error and panics. Cross-option requirements (a weigher
// needs a maximum weight, refreshing needs a loader) are validated by
// Build and BuildLoading.
//
// Reference-strength options (weak keys, weak or soft values) and custom
// key equivalence do not exist here: the runtime exposes no reference
// objects, and map keys fix equivalence to ==.
type Builder[K comparable, V any] struct {
	initialCapacity  int
	concurrencyLevel int
	maximumSize      int64
	maximumWeight    int64
	weigher          WeigherFunc[K, V]

	expireAfterWrite  time.Duration
	expireAfterAccess time.Duration
	refreshAfterWrite time.Duration

	removalListener RemovalListenerFunc[K, V]
	ticker          Ticker
	statsCounter    StatsCounter
}

// NewBuilder starts a configuration with default sizing and no eviction
// of any kind.
func NewBuilder[K comparable, V any]() *Builder[K, V] {
	return &Builder[K, V]{
		initialCapacity:   unset,
		concurrencyLevel:  unset,
		maximumSize:       unset,
		maximumWeight:     unset,
		expireAfterWrite:  unset,
		expireAfterAccess: unset,
		refreshAfterWrite: unset,
	}
}

// InitialCapacity sets the per-stripe map pre-sizing hint.
func (b *Builder[K, V]) InitialCapacity(capacity int) *Builder[K, V] {
	checkState(b.initialCapacity == unset, "initial capacity was already set to %d", b.initialCapacity)
	checkArg(capacity >= 0, "initial capacity must not be negative: %d", capacity)
	b.initialCapacity = capacity
	return b
}

// ConcurrencyLevel sets the number of independent lock stripes.
func (b *Builder[K, V]) ConcurrencyLevel(level int) *Builder[K, V] {
	checkState(b.concurrencyLevel == unset, "concurrency level was already set to %d", b.concurrencyLevel)
	checkArg(level > 0, "concurrency level must be positive: %d", level)
	b.concurrencyLevel = level
	return b
}

// MaximumSize bounds the number of entries. Least-recently-used entries
// are evicted once the bound is exceeded. Mutually exclusive with
// MaximumWeight and Weigher.
func (b *Builder[K, V]) MaximumSize(size int64) *Builder[K, V] {
	checkState(b.maximumSize == unset, "maximum size was already set to %d", b.maximumSize)
	checkState(b.maximumWeight == unset, "maximum weight was already set to %d", b.maximumWeight)
	checkState(b.weigher == nil, "maximum size can not be combined with weigher")
	checkArg(size >= 0, "maximum size must not be negative: %d", size)
	b.maximumSize = size
	return b
}

// MaximumWeight bounds the total weight of entries as measured by the
// weigher. Mutually exclusive with MaximumSize; requires Weigher.
func (b *Builder[K, V]) MaximumWeight(weight int64) *Builder[K, V] {
	checkState(b.maximumWeight == unset, "maximum weight was already set to %d", b.maximumWeight)
	checkState(b.maximumSize == unset, "maximum size was already set to %d", b.maximumSize)
	checkArg(weight >= 0, "maximum weight must not be negative: %d", weight)
	b.maximumWeight = weight
	return b
}

// Weigher sets the entry weigher used by weight-based eviction.
func (b *Builder[K, V]) Weigher(weigher WeigherFunc[K, V]) *Builder[K, V] {
	checkState(b.weigher == nil, "weigher was already set")
	checkState(b.maximumSize == unset, "weigher can not be combined with maximum size (%d provided)", b.maximumSize)
	checkArg(weigher != nil, "weigher must not be nil")
	b.weigher = weigher
	return b
}

// ExpireAfterWrite expires entries the given duration after the last
// write.
func (b *Builder[K, V]) ExpireAfterWrite(d time.Duration) *Builder[K, V] {
	checkState(b.expireAfterWrite == unset, "expireAfterWrite was already set to %v", b.expireAfterWrite)
	checkArg(d >= 0, "duration cannot be negative: %v", d)
	b.expireAfterWrite = d
	return b
}

// ExpireAfterAccess expires entries the given duration after the last
// read or write.
func (b *Builder[K, V]) ExpireAfterAccess(d time.Duration) *Builder[K, V] {
	checkState(b.expireAfterAccess == unset, "expireAfterAccess was already set to %v", b.expireAfterAccess)
	checkArg(d >= 0, "duration cannot be negative: %v", d)
	b.expireAfterAccess = d
	return b
}

// RefreshAfterWrite makes entries eligible for an asynchronous reload the
// given duration after the last write. Only loading caches can refresh.
func (b *Builder[K, V]) RefreshAfterWrite(d time.Duration) *Builder[K, V] {
	checkState(b.refreshAfterWrite == unset, "refreshAfterWrite was already set to %v", b.refreshAfterWrite)
	checkArg(d > 0, "duration must be positive: %v", d)
	b.refreshAfterWrite = d
	return b
}

// RemovalListener registers a callback invoked for every removal with its
// cause.
func (b *Builder[K, V]) RemovalListener(listener RemovalListenerFunc[K, V]) *Builder[K, V] {
	checkState(b.removalListener == nil, "removal listener was already set")
	checkArg(listener != nil, "removal listener must not be nil")
	b.removalListener = listener
	return b
}

// Ticker sets a custom time source for the expiration logic.
func (b *Builder[K, V]) Ticker(ticker Ticker) *Builder[K, V] {
	checkState(b.ticker == nil, "ticker was already set")
	checkArg(ticker != nil, "ticker must not be nil")
	b.ticker = ticker
	return b
}

// RecordStats installs a counting statistics collector.
func (b *Builder[K, V]) RecordStats() *Builder[K, V] {
	checkState(b.statsCounter == nil, "stats recording was already configured")
	b.statsCounter = NewSimpleStatsCounter()
	return b
}

// RecordStatsWith installs a custom statistics collector.
func (b *Builder[K, V]) RecordStatsWith(counter StatsCounter) *Builder[K, V] {
	checkState(b.statsCounter == nil, "stats recording was already configured")
	checkArg(counter != nil, "stats counter must not be nil")
	b.statsCounter = counter
	return b
}

// Build returns a manual cache. It fails when the configuration requires
// a loader (RefreshAfterWrite) or pairs a weigher and maximum weight
// inconsistently.
func (b *Builder[K, V]) Build() (Cache[K, V], error) {
	if b.refreshAfterWrite != unset {
		return nil, errors.NewValidationError("cache", "refreshAfterWrite", b.refreshAfterWrite,
			"requires a loader").
			WithHint("use BuildLoading to supply one")
	}
	if err := b.checkWeightWithWeigher(); err != nil {
		return nil, err
	}
	return newLocalCache(b, nil), nil
}

// BuildLoading returns a loading cache bound to loader.
func (b *Builder[K, V]) BuildLoading(loader LoaderFunc[K, V]) (LoadingCache[K, V], error) {
	if loader == nil {
		return nil, errors.NewValidationError("cache", "loader", nil, "cannot be nil")
	}
	if err := b.checkWeightWithWeigher(); err != nil {
		return nil, err
	}
	return newLocalCache(b, loader), nil
}

func (b *Builder[K, V]) checkWeightWithWeigher() error {
	if b.weigher == nil {
		if b.maximumWeight != unset {
			return errors.NewValidationError("cache", "maximumWeight", b.maximumWeight, "requires a weigher")
		}
	} else if b.maximumWeight == unset {
		return errors.NewValidationError("cache", "weigher", "set", "requires a maximum weight")
	}
	return nil
}

func (b *Builder[K, V]) getInitialCapacity() int {
	if b.initialCapacity == unset {
		return defaultInitialCapacity
	}
	return b.initialCapacity
}

func (b *Builder[K, V]) getConcurrencyLevel() int {
	if b.concurrencyLevel == unset {
		return defaultConcurrencyLevel
	}
	return b.concurrencyLevel
}

func checkState(ok bool, format string, args ...any) {
	if !ok {
		panic("cache: " + fmt.Sprintf(format, args...))
	}
}

func checkArg(ok bool, format string, args ...any) {
	if !ok {
		panic("cache: " + fmt.Sprintf(format, args...))
	}
}
