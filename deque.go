package tlfu

// aoDeque and woDeque are intrusive doubly-linked lists over *entry[K, V],
// following the same pushBack/remove shape as an intrusive entryList,
// generalized to the access-order/write-order split and the
// three-region segmented LRU structure. MRU/most-recently-written
// end is the back; LRU/oldest end is the front.
type aoDeque[K comparable, V any] struct {
	head, tail *entry[K, V]
	len        int
}

func (d *aoDeque[K, V]) pushBack(e *entry[K, V], r region) {
	e.aoRegion = r
	e.aoPrev = d.tail
	e.aoNext = nil
	if d.tail != nil {
		d.tail.aoNext = e
	} else {
		d.head = e
	}
	d.tail = e
	d.len++
	e.inAO = true
}

func (d *aoDeque[K, V]) remove(e *entry[K, V]) {
	if !e.inAO {
		return
	}
	if e.aoPrev != nil {
		e.aoPrev.aoNext = e.aoNext
	} else {
		d.head = e.aoNext
	}
	if e.aoNext != nil {
		e.aoNext.aoPrev = e.aoPrev
	} else {
		d.tail = e.aoPrev
	}
	e.aoPrev, e.aoNext = nil, nil
	d.len--
	e.inAO = false
}

func (d *aoDeque[K, V]) peekFront() *entry[K, V] {
	return d.head
}

func (d *aoDeque[K, V]) popFront() {
	if d.head != nil {
		d.remove(d.head)
	}
}

type woDeque[K comparable, V any] struct {
	head, tail *entry[K, V]
	len        int
}

func (d *woDeque[K, V]) pushBack(e *entry[K, V]) {
	e.woPrev = d.tail
	e.woNext = nil
	if d.tail != nil {
		d.tail.woNext = e
	} else {
		d.head = e
	}
	d.tail = e
	d.len++
	e.inWO = true
}

func (d *woDeque[K, V]) remove(e *entry[K, V]) {
	if !e.inWO {
		return
	}
	if e.woPrev != nil {
		e.woPrev.woNext = e.woNext
	} else {
		d.head = e.woNext
	}
	if e.woNext != nil {
		e.woNext.woPrev = e.woPrev
	} else {
		d.tail = e.woPrev
	}
	e.woPrev, e.woNext = nil, nil
	d.len--
	e.inWO = false
}

func (d *woDeque[K, V]) peekFront() *entry[K, V] {
	return d.head
}

func (d *woDeque[K, V]) popFront() {
	if d.head != nil {
		d.remove(d.head)
	}
}

// deques bundles the three access-order regions and the single write-order
// list under one mutex (held by the sync pass only).
type deques[K comparable, V any] struct {
	window    aoDeque[K, V]
	probation aoDeque[K, V]
	protected aoDeque[K, V]
	writeOrd  woDeque[K, V]
}

func (d *deques[K, V]) aoFor(r region) *aoDeque[K, V] {
	switch r {
	case regionWindow:
		return &d.window
	case regionMainProtected:
		return &d.protected
	default:
		return &d.probation
	}
}

func (d *deques[K, V]) pushBackAO(r region, e *entry[K, V]) {
	d.aoFor(r).pushBack(e, r)
}

func (d *deques[K, V]) pushBackWO(e *entry[K, V]) {
	d.writeOrd.pushBack(e)
}

// moveToBackAO moves e to the back of whichever AO region it is currently
// in, without changing its region.
func (d *deques[K, V]) moveToBackAO(e *entry[K, V]) {
	if !e.inAO {
		return
	}
	r := e.aoRegion
	d.aoFor(r).remove(e)
	d.aoFor(r).pushBack(e, r)
}

func (d *deques[K, V]) moveToBackWO(e *entry[K, V]) {
	if e.inWO {
		d.writeOrd.remove(e)
	}
	d.writeOrd.pushBack(e)
}

func (d *deques[K, V]) unlinkAO(e *entry[K, V]) {
	d.aoFor(e.aoRegion).remove(e)
}

func (d *deques[K, V]) unlinkWO(e *entry[K, V]) {
	d.writeOrd.remove(e)
}

// unlinkNodeAO removes a node from its AO region when the entry itself has
// already been removed from the table by someone else: the caller's own
// table removal found nothing, so it falls back to unlinking the victim
// node directly.
func (d *deques[K, V]) unlinkNodeAO(e *entry[K, V]) {
	d.aoFor(e.aoRegion).remove(e)
}
