package testutil

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected context with deadline")
	}
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline too far in the future: %v", deadline)
	}
}

func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	AssertError(t, errors.New("boom"))
}

func TestAssertEqual(t *testing.T) {
	AssertEqual(t, 42, 42)
	AssertEqual(t, "a", "a")
}

func TestEventually(t *testing.T) {
	var flag atomic.Bool
	go func() {
		time.Sleep(5 * time.Millisecond)
		flag.Store(true)
	}()
	Eventually(t, time.Second, flag.Load)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	AssertEqual(t, clock.Now(), start)

	clock.Advance(time.Minute)
	AssertEqual(t, clock.Now(), start.Add(time.Minute))

	later := start.Add(time.Hour)
	clock.Set(later)
	AssertEqual(t, clock.Now(), later)
}

func TestFakeStopwatch(t *testing.T) {
	sw := NewFakeStopwatch()
	AssertEqual(t, sw.ReadMicros(), int64(0))

	sw.AdvanceMicros(1000)
	AssertEqual(t, sw.ReadMicros(), int64(1000))

	sw.SleepMicros(500)
	AssertEqual(t, sw.ReadMicros(), int64(1500))
	AssertEqual(t, sw.LastSleep(), int64(500))

	sw.SleepMicros(-10)
	AssertEqual(t, sw.ReadMicros(), int64(1500))

	sleeps := sw.Sleeps()
	AssertEqual(t, len(sleeps), 2)
	AssertEqual(t, sleeps[0], int64(500))
	AssertEqual(t, sleeps[1], int64(0))

	sw.Advance(2 * time.Millisecond)
	AssertEqual(t, sw.ReadMicros(), int64(3500))
}
