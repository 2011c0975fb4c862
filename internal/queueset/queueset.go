package queueset

import (
	"sync"

	"github.com/pgvanniekerk/ezsteal/internal/wsqueue"
	"golang.org/x/sys/cpu"
)

// Set is an append-only registry of work-stealing queues shared by a pool and
// all of its workers.
//
// Two levels of locking are used. The structural lock guards the slice of slots:
// any number of readers may index and iterate it at once, while Append takes it
// exclusively. Each slot then carries its own content lock, so contention on one
// queue never blocks operations on another. A goroutine must never hold more than
// one content lock at a time.
type Set[T any] struct {

	// mu is the structural lock over slots.
	mu rwLocker

	// slots holds one entry per queue. Entries are never removed or replaced.
	slots []*Slot[T]
}

// Slot is a single queue together with the mutex that guards its contents.
// Slots are padded to their own cache lines because every worker touches its
// own slot on each loop iteration.
type Slot[T any] struct {
	_     cpu.CacheLinePad
	mu    sync.Mutex
	queue *wsqueue.Queue[T]
	_     cpu.CacheLinePad
}

// View is a read-only window onto the slots of a Set. It is only valid inside the
// callback passed to Set.Read.
type View[T any] struct {
	slots []*Slot[T]
}

//region Set

// Read runs fn while holding shared structural access to the set. fn must not
// call Append, and should not block for long: a pending Append waits for every
// reader to leave.
func (s *Set[T]) Read(fn func(v View[T])) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn(View[T]{slots: s.slots})
}

// Len returns the number of slots in the set.
func (s *Set[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.slots)
}

// Append takes exclusive structural access and, if allow reports true for the
// current number of slots, appends a new empty slot and calls created with its
// index before releasing the lock. It returns the new index and whether a slot was
// appended. Either callback may be nil.
//
// Running created under the lock lets callers register whatever is bound to the
// new index (a worker) before any reader can observe the slot.
func (s *Set[T]) Append(allow func(n int) bool, created func(index int)) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.slots)
	if allow != nil && !allow(n) {
		return n - 1, false
	}

	s.slots = append(s.slots, newSlot[T]())
	if created != nil {
		created(n)
	}

	return n, true
}

//endregion

//region View

// Len returns the number of slots visible through v.
func (v View[T]) Len() int {
	return len(v.slots)
}

// At returns the slot with the given index. It panics if i is out of range.
func (v View[T]) At(i int) *Slot[T] {
	return v.slots[i]
}

//endregion

//region Slot

// Push appends item to the owner end of the slot's queue, waiting for the
// content lock if necessary.
func (sl *Slot[T]) Push(item T) {
	sl.mu.Lock()
	sl.queue.Push(item)
	sl.mu.Unlock()
}

// Pop removes the newest item from the slot's queue, waiting for the content
// lock if necessary.
func (sl *Slot[T]) Pop() (T, bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.queue.Pop()
}

// TrySteal attempts to take the content lock without waiting and, if it gets it,
// removes the oldest item. acquired is false when the lock was held elsewhere; ok
// is false when no item was removed.
func (sl *Slot[T]) TrySteal() (item T, ok bool, acquired bool) {
	if !sl.mu.TryLock() {
		return item, false, false
	}
	defer sl.mu.Unlock()

	item, ok = sl.queue.Steal()
	return item, ok, true
}

// TryLen returns the queue length if the content lock could be taken without
// waiting. acquired is false when the lock was held elsewhere.
func (sl *Slot[T]) TryLen() (n int, acquired bool) {
	if !sl.mu.TryLock() {
		return 0, false
	}
	defer sl.mu.Unlock()

	return sl.queue.Len(), true
}

// Len returns the queue length, waiting for the content lock if necessary.
func (sl *Slot[T]) Len() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.queue.Len()
}

// Drain empties the slot's queue and returns the removed items in steal order.
func (sl *Slot[T]) Drain() []T {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	items := make([]T, 0, sl.queue.Len())
	for {
		item, ok := sl.queue.Steal()
		if !ok {
			return items
		}
		items = append(items, item)
	}
}

//endregion

//region Constructor

// New returns a Set holding n empty slots.
func New[T any](n int, opts ...Option) *Set[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Set[T]{mu: newLocker(o), slots: make([]*Slot[T], 0, n)}
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, newSlot[T]())
	}
	return s
}

func newSlot[T any]() *Slot[T] {
	return &Slot[T]{queue: wsqueue.New[T]()}
}

//endregion
