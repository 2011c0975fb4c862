package worker

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/affinity"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/queueset"
	"github.com/pgvanniekerk/ezsteal/internal/task"
)

// DefaultBackoff is how long a worker sleeps after a scan of every queue found
// nothing to do.
const DefaultBackoff = time.Second

// Queues is the queue set type every worker of a pool shares.
type Queues = queueset.Set[task.Task]

// State is the lifecycle state of a Worker.
type State int32

const (
	// StateRunning means the loop is servicing queues.
	StateRunning State = iota

	// StateStopping means the stop signal is set but the goroutine has not yet
	// left its current loop iteration.
	StateStopping

	// StateStopped means the goroutine has exited.
	StateStopped
)

// String returns the upper-case name of s.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Hooks are optional callbacks invoked from the worker goroutine. They must be
// safe for concurrent use because every worker of a pool calls the same hooks.
type Hooks struct {

	// OnExecute is called after every job with its run time and whether it panicked.
	OnExecute func(worker int, elapsed time.Duration, panicked bool)

	// OnSteal is called when the worker takes a task from another worker's queue.
	OnSteal func(worker, victim int)
}

// Config holds the settings a Worker is created with.
type Config struct {

	// Backoff is the sleep after a scan that found no task. Zero uses DefaultBackoff.
	Backoff time.Duration

	// Logger receives the worker's events. Nil discards them.
	Logger logging.Logger

	// PanicHandler, if set, receives the value recovered from a panicking job.
	PanicHandler func(worker int, recovered any)

	// PinCPU binds the worker's OS thread to one CPU of its allowed set, chosen
	// by index modulo the size of that set. The previous mask is restored before
	// the thread is released.
	PinCPU bool

	// Hooks are invoked for executed jobs and successful steals.
	Hooks Hooks
}

// Stats is a point-in-time snapshot of a worker's counters.
type Stats struct {
	Index    int    `json:"index"`
	Executed uint64 `json:"executed"`
	Stolen   uint64 `json:"stolen"`
	Panicked uint64 `json:"panicked"`
	State    string `json:"state"`
}

// Worker is a goroutine bound to a single index of a queue set. It pops from its
// own queue, steals from the other queues when its own is empty, and backs off
// when there is nothing to do anywhere.
type Worker struct {

	// index is the worker's own slot in queues. It never changes.
	index int

	// queues is shared with the pool and every other worker.
	queues *Queues

	cfg Config
	log logging.Logger

	state atomic.Int32

	// tid is the id of the OS thread the goroutine is locked to, or 0 when it
	// is not running or the platform has no thread ids.
	tid atomic.Int64

	// stopCh is closed by Stop; doneCh is closed when the goroutine exits.
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	executed atomic.Uint64
	stolen   atomic.Uint64
	panicked atomic.Uint64
}

//region Implementation

// Index returns the queue index the worker is bound to.
func (w *Worker) Index() int {
	return w.index
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Stop sets the stop signal. The goroutine exits after its current iteration;
// a job that is running is allowed to finish. Stop is idempotent and does not
// wait; use Join for that.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		close(w.stopCh)
	})
}

// Join blocks until the worker goroutine has exited or ctx is done.
func (w *Worker) Join(ctx context.Context) error {
	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current reports whether the caller is the worker's own goroutine, for
// example a job it is running. It always reports false where thread ids are
// unavailable.
func (w *Worker) Current() bool {
	id := int64(affinity.ThreadID())
	return id != 0 && id == w.tid.Load()
}

// Done returns a channel that is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the worker's counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Index:    w.index,
		Executed: w.executed.Load(),
		Stolen:   w.stolen.Load(),
		Panicked: w.panicked.Load(),
		State:    w.State().String(),
	}
}

//endregion

//region Helpers

// run is the worker loop.
func (w *Worker) run() {
	defer close(w.doneCh)

	// One OS thread per worker. A thread whose mask could not be restored stays
	// locked, so the runtime terminates it when the goroutine exits.
	runtime.LockOSThread()
	unlock := true
	defer func() {
		w.tid.Store(0)
		if unlock {
			runtime.UnlockOSThread()
		}
	}()
	w.tid.Store(int64(affinity.ThreadID()))

	if w.cfg.PinCPU {
		cpu, restore, err := affinity.Pin(w.index)
		if err != nil {
			w.log.Warn("cpu pinning failed", logging.Fields{"error": err.Error()})
		} else {
			w.log.Debug("cpu pinned", logging.Fields{"cpu": cpu})
			defer func() {
				if err := restore(); err != nil {
					w.log.Warn("cpu mask not restored", logging.Fields{"error": err.Error()})
					unlock = false
				}
			}()
		}
	}

	w.log.Info("worker started", nil)
	defer func() {
		w.state.Store(int32(StateStopped))
		w.log.Info("worker stopped", logging.Fields{"executed": w.executed.Load()})
	}()

	for !w.stopping() {
		t, found := w.findTask()
		if !found {
			w.backoff()
			continue
		}

		if t.Kind() == task.KindTerminate {
			w.log.Info("terminate received", nil)
			w.Stop()
			return
		}

		w.execute(t.Job())
	}
}

// findTask holds shared access to the queue set for one pass: first the worker's
// own queue, then one non-blocking attempt on every other queue in index order.
// Structural access is released before the caller executes or sleeps.
func (w *Worker) findTask() (found task.Task, ok bool) {
	w.queues.Read(func(v queueset.View[task.Task]) {
		if v.Len() <= w.index {
			return
		}

		if found, ok = v.At(w.index).Pop(); ok {
			return
		}
		w.log.Debug("own queue empty", nil)

		contended := 0
		for i := 0; i < v.Len(); i++ {
			if i == w.index {
				continue
			}

			t, got, acquired := v.At(i).TrySteal()
			if !acquired {
				contended++
				continue
			}
			if got {
				found, ok = t, true
				w.stolen.Add(1)
				w.log.Debug("steal succeeded", logging.Fields{"victim": i})
				if hook := w.cfg.Hooks.OnSteal; hook != nil {
					hook(w.index, i)
				}
				return
			}
		}

		w.log.Debug("steal failed", logging.Fields{"queues": v.Len(), "contended": contended})
	})

	return found, ok
}

// execute runs job on the worker goroutine. A panic is recovered, logged and
// counted so the worker keeps serving its queue.
func (w *Worker) execute(job task.Job) {
	start := time.Now()

	defer func() {
		r := recover()
		elapsed := time.Since(start)

		if r != nil {
			w.panicked.Add(1)
			w.log.Error("job panicked", logging.Fields{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			if h := w.cfg.PanicHandler; h != nil {
				h(w.index, r)
			}
		}

		w.executed.Add(1)
		if hook := w.cfg.Hooks.OnExecute; hook != nil {
			hook(w.index, elapsed, r != nil)
		}
	}()

	job()
}

// backoff sleeps for the configured interval, waking early if the worker is
// stopped.
func (w *Worker) backoff() {
	timer := time.NewTimer(w.cfg.Backoff)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.stopCh:
	}
}

func (w *Worker) stopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

//endregion

//region Constructor

// New creates the worker bound to index of queues and starts its goroutine.
// There is no separate start call. The caller owns the worker and must Stop and
// Join it, otherwise the goroutine runs for the life of the process.
func New(index int, queues *Queues, cfg Config) *Worker {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	w := &Worker{
		index:  index,
		queues: queues,
		cfg:    cfg,
		log:    logging.With(logger, logging.Fields{"worker": index}),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.state.Store(int32(StateRunning))

	go w.run()

	return w
}

//endregion
