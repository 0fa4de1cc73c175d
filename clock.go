package tlfu

import (
	"sync/atomic"
	"time"
)

// Clock supplies the monotonic time the engine stamps entries with. Ticks
// are an arbitrary monotonic unit (nanoseconds for the real clock); only
// relative comparisons against a TTL/TTI duration matter.
type Clock interface {
	NowTicks() uint64
}

// realClock wraps time.Now in monotonic nanoseconds.
type realClock struct{ start time.Time }

func newRealClock() *realClock {
	return &realClock{start: time.Now()}
}

func (c *realClock) NowTicks() uint64 {
	return uint64(time.Since(c.start).Nanoseconds())
}

// mockClock lets tests advance time deterministically without sleeping.
// Grounded on quanta::Clock::mock() in original_source/src/sync/cache.rs.
type mockClock struct {
	ticks atomic.Uint64
}

func newMockClock() *mockClock {
	return &mockClock{}
}

func (c *mockClock) NowTicks() uint64 {
	return c.ticks.Load()
}

// Advance moves the mock clock forward by d. Intended for tests only.
func (c *mockClock) Advance(d time.Duration) {
	c.ticks.Add(uint64(d.Nanoseconds()))
}

// clockBox holds the active clock behind a single atomic pointer so the hot
// path (sync pass, get) pays for one atomic load.
type clockBox struct {
	clock atomic.Pointer[Clock]
}

func newClockBox(c Clock) *clockBox {
	b := &clockBox{}
	b.clock.Store(&c)
	return b
}

func (b *clockBox) now() uint64 {
	return (*b.clock.Load()).NowTicks()
}
