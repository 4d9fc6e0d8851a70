package cache

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/vnykmshr/gopulse/internal/testutil"
	gperrors "github.com/vnykmshr/gopulse/pkg/common/errors"
)

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	fn()
}

func TestBuilderDefaults(t *testing.T) {
	c, err := NewBuilder[string, int]().Build()
	testutil.AssertNoError(t, err)

	lc := c.(*localCache[string, int])
	testutil.AssertEqual(t, len(lc.stripes), defaultConcurrencyLevel)
	for _, s := range lc.stripes {
		testutil.AssertEqual(t, s.maxWeight, int64(unset))
	}
}

func TestBuilderDuplicateOptionPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"initial capacity", func() { NewBuilder[string, int]().InitialCapacity(1).InitialCapacity(2) }},
		{"concurrency level", func() { NewBuilder[string, int]().ConcurrencyLevel(1).ConcurrencyLevel(2) }},
		{"maximum size", func() { NewBuilder[string, int]().MaximumSize(1).MaximumSize(2) }},
		{"maximum weight", func() { NewBuilder[string, int]().MaximumWeight(1).MaximumWeight(2) }},
		{"expire after write", func() {
			NewBuilder[string, int]().ExpireAfterWrite(time.Second).ExpireAfterWrite(time.Second)
		}},
		{"expire after access", func() {
			NewBuilder[string, int]().ExpireAfterAccess(time.Second).ExpireAfterAccess(time.Second)
		}},
		{"refresh after write", func() {
			NewBuilder[string, int]().RefreshAfterWrite(time.Second).RefreshAfterWrite(time.Second)
		}},
		{"removal listener", func() {
			l := func(RemovalNotification[string, int]) {}
			NewBuilder[string, int]().RemovalListener(l).RemovalListener(l)
		}},
		{"ticker", func() { NewBuilder[string, int]().Ticker(NewTicker()).Ticker(NewTicker()) }},
		{"record stats", func() { NewBuilder[string, int]().RecordStats().RecordStats() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertPanics(t, tt.fn)
		})
	}
}

func TestBuilderRangePanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"negative initial capacity", func() { NewBuilder[string, int]().InitialCapacity(-1) }},
		{"zero concurrency level", func() { NewBuilder[string, int]().ConcurrencyLevel(0) }},
		{"negative maximum size", func() { NewBuilder[string, int]().MaximumSize(-1) }},
		{"negative maximum weight", func() { NewBuilder[string, int]().MaximumWeight(-1) }},
		{"negative expire after write", func() { NewBuilder[string, int]().ExpireAfterWrite(-time.Second) }},
		{"zero refresh after write", func() { NewBuilder[string, int]().RefreshAfterWrite(0) }},
		{"nil weigher", func() { NewBuilder[string, int]().Weigher(nil) }},
		{"nil removal listener", func() { NewBuilder[string, int]().RemovalListener(nil) }},
		{"nil ticker", func() { NewBuilder[string, int]().Ticker(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertPanics(t, tt.fn)
		})
	}
}

func TestBuilderSizeAndWeighingExclusive(t *testing.T) {
	assertPanics(t, func() {
		NewBuilder[string, int]().MaximumSize(10).MaximumWeight(10)
	})
	assertPanics(t, func() {
		NewBuilder[string, int]().MaximumSize(10).Weigher(func(string, int) int64 { return 1 })
	})
	assertPanics(t, func() {
		NewBuilder[string, int]().Weigher(func(string, int) int64 { return 1 }).MaximumSize(10)
	})
}

func TestBuildRefusesRefreshWithoutLoader(t *testing.T) {
	_, err := NewBuilder[string, int]().RefreshAfterWrite(time.Second).Build()
	testutil.AssertError(t, err)
	if !stderrors.Is(err, gperrors.ErrInvalidConfiguration) {
		t.Errorf("expected a configuration error, got %v", err)
	}

	// The same configuration builds fine with a loader.
	_, err = NewBuilder[string, int]().RefreshAfterWrite(time.Second).
		BuildLoading(func(string) (int, error) { return 0, nil })
	testutil.AssertNoError(t, err)
}

func TestBuildValidatesWeightPairing(t *testing.T) {
	_, err := NewBuilder[string, int]().MaximumWeight(10).Build()
	testutil.AssertError(t, err)

	_, err = NewBuilder[string, int]().Weigher(func(string, int) int64 { return 1 }).Build()
	testutil.AssertError(t, err)

	_, err = NewBuilder[string, int]().
		MaximumWeight(10).
		Weigher(func(string, int) int64 { return 1 }).
		Build()
	testutil.AssertNoError(t, err)
}

func TestBuildLoadingRequiresLoader(t *testing.T) {
	_, err := NewBuilder[string, int]().BuildLoading(nil)
	testutil.AssertError(t, err)
}
