package tlfu

import "github.com/puzpuzpuz/xsync/v4"

// table is the segmented, optimistically-locked hash table collaborator
// this cache is built around: a pre-existing concurrent map rather than a
// hand-rolled shard-and-lock table. It is backed by xsync.Map, a lock-free
// CLHT-based concurrent map: reads never block, and Compute's valueFn may
// run more than once under CAS contention, which is exactly the "closures
// may run more than once" contract the insert path builds around.
type table[K comparable, V any] struct {
	m *xsync.Map[K, *entry[K, V]]
}

func newTable[K comparable, V any](sizeHint int) *table[K, V] {
	return &table[K, V]{m: xsync.NewMap[K, *entry[K, V]](xsync.WithPresize(sizeHint))}
}

func (t *table[K, V]) get(key K) (*entry[K, V], bool) {
	return t.m.Load(key)
}

func (t *table[K, V]) remove(key K) (*entry[K, V], bool) {
	return t.m.LoadAndDelete(key)
}

func (t *table[K, V]) len() int { return t.m.Size() }

// insertOrModify runs onInsert or onModify depending on whether key is
// already present, and returns the entry actually stored. Either closure
// may be invoked more than once if Compute retries under contention; both
// must be idempotent-safe.
func (t *table[K, V]) insertOrModify(key K, onInsert func() *entry[K, V], onModify func(old *entry[K, V]) *entry[K, V]) *entry[K, V] {
	actual, _ := t.m.Compute(key, func(oldValue *entry[K, V], loaded bool) (*entry[K, V], xsync.ComputeOp) {
		if loaded {
			return onModify(oldValue), xsync.UpdateOp
		}
		return onInsert(), xsync.UpdateOp
	})
	return actual
}
