package queueset

import (
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// rwLocker is the structural lock of a Set. It is a plain sync.RWMutex unless
// deadlock detection was requested.
type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// Option configures a Set created by New.
type Option func(*options)

type options struct {
	detect     bool
	timeout    time.Duration
	onDeadlock func()
}

// optsMu serialises writes to go-deadlock's package-level options.
var optsMu sync.Mutex

// WithDeadlockDetection makes the structural lock a go-deadlock RWMutex. A lock
// held or awaited for longer than timeout is reported to onDeadlock instead of
// exiting the process. A zero timeout or nil onDeadlock keeps go-deadlock's
// current setting for that field.
//
// go-deadlock's options are process-wide, so this only ever switches detection
// on and only touches them when a Set is created with this option.
func WithDeadlockDetection(timeout time.Duration, onDeadlock func()) Option {
	return func(o *options) {
		o.detect = true
		o.timeout = timeout
		o.onDeadlock = onDeadlock
	}
}

func newLocker(o options) rwLocker {
	if !o.detect {
		return &sync.RWMutex{}
	}

	optsMu.Lock()
	deadlock.Opts.Disable = false
	deadlock.Opts.DisableLockOrderDetection = true
	if o.timeout > 0 {
		deadlock.Opts.DeadlockTimeout = o.timeout
	}
	if o.onDeadlock != nil {
		deadlock.Opts.OnPotentialDeadlock = o.onDeadlock
	}
	optsMu.Unlock()

	return &deadlock.RWMutex{}
}
