package wsqueue

// minCapacity is the smallest ring a Queue allocates. It must be a power of two.
const minCapacity = 16

// Queue is a double-ended work-stealing queue backed by a growable ring buffer.
//
// The owner of a Queue pushes and pops at the bottom end, so Pop returns the most
// recently pushed element (LIFO). Thieves remove from the top end with Steal, which
// returns the oldest element (FIFO). All operations are O(1); Push is amortized O(1)
// because the ring doubles in size when it fills up.
//
// Queue performs no synchronization of its own. Callers that share a Queue between
// goroutines must guard every call with an external lock.
type Queue[T any] struct {

	// ring holds the elements. Its length is always a power of two.
	ring []T

	// mask is len(ring)-1 and maps a logical position onto a ring index.
	mask int

	// top is the logical position of the oldest element (the steal end).
	top int

	// length is the number of elements currently held.
	length int
}

//region Implementation

// Push inserts item at the bottom (owner) end of the queue. It always succeeds.
func (q *Queue[T]) Push(item T) {
	if q.length == len(q.ring) {
		q.grow()
	}
	q.ring[(q.top+q.length)&q.mask] = item
	q.length++
}

// Pop removes and returns the element at the bottom (owner) end, i.e. the most
// recently pushed one. The boolean is false if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.length == 0 {
		return zero, false
	}

	q.length--
	idx := (q.top + q.length) & q.mask
	item := q.ring[idx]
	q.ring[idx] = zero

	return item, true
}

// Steal removes and returns the element at the top (thief) end, i.e. the oldest
// one. The boolean is false if the queue is empty.
func (q *Queue[T]) Steal() (T, bool) {
	var zero T
	if q.length == 0 {
		return zero, false
	}

	idx := q.top & q.mask
	item := q.ring[idx]
	q.ring[idx] = zero
	q.top = (q.top + 1) & q.mask
	q.length--

	return item, true
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	return q.length
}

// Cap returns the number of elements the queue can hold before it grows.
func (q *Queue[T]) Cap() int {
	return len(q.ring)
}

//endregion

//region Helpers

// grow doubles the ring and unwraps the elements so that top is at index 0.
func (q *Queue[T]) grow() {
	size := len(q.ring) << 1
	if size < minCapacity {
		size = minCapacity
	}

	ring := make([]T, size)
	for i := 0; i < q.length; i++ {
		ring[i] = q.ring[(q.top+i)&q.mask]
	}

	q.ring = ring
	q.mask = size - 1
	q.top = 0
}

//endregion

//region Constructor

// New returns an empty Queue. The ring is allocated on the first Push.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// NewWithCapacity returns an empty Queue whose ring can hold at least capacity
// elements before growing. The capacity is rounded up to a power of two.
func NewWithCapacity[T any](capacity int) *Queue[T] {
	size := minCapacity
	for size < capacity {
		size <<= 1
	}

	return &Queue[T]{
		ring: make([]T, size),
		mask: size - 1,
	}
}

//endregion
