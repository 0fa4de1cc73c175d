package tlfu

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// waiterKind is the state of one in-flight coalesced init call.
type waiterKind uint8

const (
	waiterComputing waiterKind = iota
	waiterReady
	waiterPanicked
	waiterAborted
)

// waiter holds the outcome of one coalesced init call. The leader goroutine
// holds mu for writing while it runs init; followers call RLock, which
// blocks until the leader's Unlock, then read the final state.
type waiter[V any] struct {
	mu    sync.RWMutex
	kind  waiterKind
	value V
	err   error
}

func newWaiter[V any]() *waiter[V] {
	w := &waiter[V]{kind: waiterComputing}
	w.mu.Lock()
	return w
}

// maxInitRetries bounds how many times a follower will retry after
// observing a panicked or aborted leader before giving up and panicking
// itself, mirroring ValueInitializer's MAX_RETRIES.
const maxInitRetries = 200

// initializer coalesces concurrent cache misses for the same key into a
// single call to the caller's init function, so that under contention only
// one goroutine ever runs init and everyone else reuses its result. Ported
// from ValueInitializer in value_initializer.rs, adapted from its
// async_lock/Future-based waiter map to Go's blocking goroutines: a
// follower simply blocks on an RWMutex instead of polling a shared Future,
// and init runs synchronously rather than being driven to completion by an
// executor.
//
// Where the original keys its waiter map by (key, TypeId-of-E) to support
// an arbitrary per-call error type E, this port fixes the error type to the
// standard error interface and exposes the three call shapes
// (infallible, fallible, optional) as separate Cache methods instead of a
// generic try_init_or_read[E] — Go methods cannot add their own type
// parameters — so the waiter map only needs to be keyed by K.
type initializer[K comparable, V any] struct {
	waiters *xsync.Map[K, *waiter[V]]
}

func newInitializer[K comparable, V any]() *initializer[K, V] {
	return &initializer[K, V]{waiters: xsync.NewMap[K, *waiter[V]]()}
}

// run executes init for key if no other goroutine is already computing a
// value for it, and calls insert with the result. If another goroutine is
// already computing it, run blocks until that goroutine finishes and
// reuses its outcome. get is consulted first, under the claimed waiter, to
// catch the case where some other goroutine already inserted a value for
// key between the caller's own cache miss and its call to run.
func (ini *initializer[K, V]) run(key K, get func() (V, bool), init func() (V, error), insert func(V)) (V, error) {
	retries := 0

	for {
		w := newWaiter[V]()
		actual, loaded := ini.waiters.LoadOrStore(key, w)
		if !loaded {
			return ini.lead(key, w, get, init, insert)
		}

		actual.mu.RLock()
		kind, value, err := actual.kind, actual.value, actual.err
		actual.mu.RUnlock()

		switch kind {
		case waiterReady:
			return value, err
		case waiterPanicked:
			retries++
			panicIfInitRetriesExhausted(retries, "the init function kept panicking")
		case waiterAborted:
			retries++
			panicIfInitRetriesExhausted(retries, "the goroutine computing init kept exiting without finishing")
		default:
			panic("tlfu: waiter left in Computing state after its owner finished")
		}
	}
}

// lead runs as the single goroutine that claimed w. If it returns without
// having finalized w's state for any reason other than init's own tracked
// panic — init() never called, get()/insert() panicking, a runtime.Goexit
// partway through — the deferred guard marks w aborted so waiters retry
// rather than block forever.
func (ini *initializer[K, V]) lead(key K, w *waiter[V], get func() (V, bool), init func() (V, error), insert func(V)) (V, error) {
	committed := false
	defer func() {
		if !committed {
			w.kind = waiterAborted
			w.mu.Unlock()
			ini.waiters.Delete(key)
		}
	}()

	if v, ok := get(); ok {
		w.kind, w.value, committed = waiterReady, v, true
		w.mu.Unlock()
		ini.waiters.Delete(key)
		return v, nil
	}

	value, err := ini.runInit(key, w, init, &committed)
	if err != nil {
		w.kind, w.err, committed = waiterReady, err, true
		w.mu.Unlock()
		ini.waiters.Delete(key)
		var zero V
		return zero, err
	}

	insert(value)
	w.kind, w.value, committed = waiterReady, value, true
	w.mu.Unlock()
	ini.waiters.Delete(key)
	return value, nil
}

// runInit calls init, catching a panic so it can be recorded as
// waiterPanicked (distinct from waiterAborted) before being re-raised to
// the leader's own caller, mirroring catch_unwind/resume_unwind around the
// init future.
func (ini *initializer[K, V]) runInit(key K, w *waiter[V], init func() (V, error), committed *bool) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.kind = waiterPanicked
			*committed = true
			w.mu.Unlock()
			ini.waiters.Delete(key)
			panic(r)
		}
	}()
	return init()
}

func panicIfInitRetriesExhausted(retries int, reason string) {
	if retries >= maxInitRetries {
		panic("tlfu: too many retries reading another goroutine's init result: " + reason)
	}
}

// errNoValue is the sentinel error threaded through run's error channel to
// represent init's "no value" outcome for GetWithInitOptional, mirroring
// moka's OptionallyNone error-object stand-in for Option<V>'s None case.
type errNoValue struct{}

func (errNoValue) Error() string { return "tlfu: init function returned no value" }

// GetWithInit returns the value for key, computing it via init on a miss.
// Concurrent misses for the same key coalesce into a single call to init;
// everyone else blocks and reuses its result. If init returns an error, the
// error is not cached and is returned to every waiter that observed it.
func (c *Cache[K, V]) GetWithInit(key K, init func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	return c.init.run(key,
		func() (V, bool) { return c.Get(key) },
		init,
		func(v V) { c.Insert(key, v) },
	)
}

// GetWithInitInfallible is GetWithInit for an init function that cannot
// fail.
func (c *Cache[K, V]) GetWithInitInfallible(key K, init func() V) V {
	v, _ := c.GetWithInit(key, func() (V, error) { return init(), nil })
	return v
}

// GetWithInitOptional is GetWithInit for an init function that may decline
// to produce a value. ok is false when init returned false and nothing was
// inserted.
func (c *Cache[K, V]) GetWithInitOptional(key K, init func() (V, bool)) (V, bool) {
	v, err := c.GetWithInit(key, func() (V, error) {
		value, ok := init()
		if !ok {
			var zero V
			return zero, errNoValue{}
		}
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, false
	}
	return v, true
}
