package tlfu

import (
	"fmt"
	"hash/maphash"
	"time"
)

// Hasher computes the hash a cache uses for admission decisions: the hash
// carried by read/write ops and counted by the frequency sketch. Table
// lookups do not use it; the table hashes keys with its own hash function.
type Hasher[K comparable] func(key K) uint64

// Builder configures a Cache before construction, mirroring moka's
// sync::Builder (time_to_live/time_to_idle) layered on a functional-options
// idiom for the remaining knobs.
type Builder[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	tti      time.Duration
	hasher   Hasher[K]
	clock    Clock

	withoutHousekeeper bool // test-only, see Builder.disableHousekeeper
}

// NewBuilder starts a Builder for a cache holding up to capacity entries.
func NewBuilder[K comparable, V any](capacity int) *Builder[K, V] {
	return &Builder[K, V]{capacity: capacity}
}

// TimeToLive sets a fixed lifetime from insertion/update, after which an
// entry is treated as expired.
func (b *Builder[K, V]) TimeToLive(d time.Duration) *Builder[K, V] {
	b.ttl = d
	return b
}

// TimeToIdle sets a lifetime from last access, after which an entry is
// treated as expired.
func (b *Builder[K, V]) TimeToIdle(d time.Duration) *Builder[K, V] {
	b.tti = d
	return b
}

// WithHasher supplies a custom key hasher. The default uses hash/maphash
// seeded once per cache instance.
func (b *Builder[K, V]) WithHasher(h Hasher[K]) *Builder[K, V] {
	b.hasher = h
	return b
}

// WithClock injects a Clock, promoting moka's test-only
// set_expiration_clock/Clock::mock() escape hatch to a public builder knob
// so external test suites of this module can use a mock clock too.
func (b *Builder[K, V]) WithClock(c Clock) *Builder[K, V] {
	b.clock = c
	return b
}

// disableHousekeeper stops the periodic background sync goroutine so tests
// can call Sync() deterministically, mirroring moka's
// reconfigure_for_testing. Unexported: only this module's own tests use it.
func (b *Builder[K, V]) disableHousekeeper() *Builder[K, V] {
	b.withoutHousekeeper = true
	return b
}

// Build constructs the Cache.
func (b *Builder[K, V]) Build() (*Cache[K, V], error) {
	if b.capacity < 0 {
		return nil, fmt.Errorf("tlfu: capacity must be >= 0, got %d", b.capacity)
	}
	if b.ttl < 0 || b.tti < 0 {
		return nil, fmt.Errorf("tlfu: time_to_live/time_to_idle must be >= 0")
	}

	hasher := b.hasher
	if hasher == nil {
		hasher = defaultHasher[K]()
	}

	clock := b.clock
	if clock == nil {
		clock = newRealClock()
	}

	in := newInner[K, V](b.capacity, b.ttl, b.tti, clock)
	c := &Cache[K, V]{inner: in, hasher: hasher, init: newInitializer[K, V]()}

	if !b.withoutHousekeeper {
		hk := newHousekeeper[K, V](in)
		in.housekeeper = hk
		c.housekeeper = hk
		hk.start()
	}

	return c, nil
}

// New builds a Cache with default hashing and no expiration, the common
// case.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	return NewBuilder[K, V](capacity).Build()
}

// WithHasher builds a Cache with a custom hasher and no expiration.
func WithHasher[K comparable, V any](capacity int, hasher Hasher[K]) (*Cache[K, V], error) {
	return NewBuilder[K, V](capacity).WithHasher(hasher).Build()
}

// defaultHasher returns a maphash-backed Hasher seeded once per cache
// instance, used when no hasher is supplied. Strings get maphash's native
// WriteString fast path; other key types fall back to fmt.Fprint. This
// skips the unsafe-pointer string/byte-slice tricks some hand-rolled
// per-key-type hashers use, trading a little throughput for portability
// (see DESIGN.md).
func defaultHasher[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		var h maphash.Hash
		h.SetSeed(seed)
		if s, ok := any(key).(string); ok {
			h.WriteString(s)
			return h.Sum64()
		}
		fmt.Fprint(&h, key)
		return h.Sum64()
	}
}
