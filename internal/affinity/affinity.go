// Package affinity controls the OS thread a worker is locked to: which CPUs it
// may run on and how to recognise it.
package affinity

import (
	"errors"
)

// ErrNotSupported is returned by Pin on platforms without thread affinity.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

// Pin binds the calling OS thread to a single CPU taken from the set it may
// currently run on, the one at position index modulo the size of that set. It
// returns the chosen CPU and a function that puts the previous mask back.
//
// The caller must have called runtime.LockOSThread, otherwise the goroutine may
// move to another thread and the binding is lost. restore must run on the same
// thread, before the thread is unlocked.
func Pin(index int) (cpu int, restore func() error, err error) {
	if index < 0 {
		index = -index
	}
	return pinPlatform(index)
}

// ThreadID returns the kernel id of the calling OS thread, or 0 where it is not
// available.
func ThreadID() int {
	return threadID()
}
