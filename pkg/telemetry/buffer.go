package telemetry

import "github.com/emirpasic/gods/queues/circularbuffer"

// ring is a fixed-capacity FIFO: inserting past capacity evicts the
// single oldest entry. Thin wrapper over gods' circular buffer; callers
// hold the collector lock.
type ring struct {
	q *circularbuffer.Queue
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{q: circularbuffer.New(capacity)}
}

func (r *ring) add(v interface{}) {
	r.q.Enqueue(v)
}

// values returns the buffered entries oldest first.
func (r *ring) values() []interface{} {
	return r.q.Values()
}

func (r *ring) clear() {
	r.q.Clear()
}
