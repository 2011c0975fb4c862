package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pgvanniekerk/ezsteal/internal/concurrency"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/metrics"
	"github.com/pgvanniekerk/ezsteal/internal/queueset"
	"github.com/pgvanniekerk/ezsteal/internal/task"
	"github.com/pgvanniekerk/ezsteal/internal/worker"
	"golang.org/x/sync/errgroup"
)

// ThreadPool runs submitted jobs on a growing set of workers. Every submission
// lands on queue 0; idle workers steal from busier queues; when the estimated
// backlog exceeds maxPendingTasks a submission adds one more queue and worker,
// up to maxWorkers. Workers are never removed while the pool is running.
//
// A ThreadPool has no finalizer. A pool that is dropped without Shutdown or Stop
// keeps its worker goroutines for the life of the process.
type ThreadPool struct {

	// id identifies the pool in log events and stats.
	id string

	// queues is shared with every worker. Index i is owned by roster[i].
	queues *worker.Queues

	// roster holds one worker per queue. It is only appended to inside
	// queues.Append, so any structural reader sees len(roster) == queue count.
	roster []*worker.Worker

	// workerCount mirrors len(roster) for readers that do not take the
	// structural lock.
	workerCount atomic.Int32

	// maxWorkers is the ceiling on len(roster), fixed at construction.
	maxWorkers int

	// maxPendingTasks is the backlog estimate above which a submission tries
	// to scale up.
	maxPendingTasks int

	// scaleUp admits one scale-up attempt at a time. Submissions that cannot
	// acquire it skip scaling for that call.
	scaleUp *concurrency.Limiter

	workerCfg worker.Config
	log       logging.Logger
	metrics   *metrics.Metrics

	// lifecycle is held shared by Submit and exclusively when closing, so no
	// submission can slip in after the pool is marked closed.
	lifecycle sync.RWMutex
	closed    bool

	// idleMu guards pending and idle. idle is closed whenever pending is 0.
	idleMu  sync.Mutex
	pending int64
	idle    chan struct{}

	terminateOnce sync.Once
	stopOnce      sync.Once

	submitted atomic.Uint64
	rejected  atomic.Uint64
	executed  atomic.Uint64
	panicked  atomic.Uint64
	stolen    atomic.Uint64
	discarded atomic.Uint64
	scaleUps  atomic.Uint64
}

//region Implementation

// Execute submits job and returns immediately. A nil job or a closed pool is
// logged and otherwise ignored.
func (p *ThreadPool) Execute(job func()) {
	if err := p.Submit(job); err != nil {
		p.log.Warn("job not accepted", logging.Fields{"error": err.Error()})
	}
}

// Submit queues job for execution. The backlog is estimated first and, when it
// exceeds the threshold and the ceiling allows, one worker is added before the
// job is pushed onto queue 0. Submit returns ErrNilJob or ErrPoolClosed and no
// other error.
func (p *ThreadPool) Submit(job func()) error {
	if job == nil {
		p.reject()
		return ErrNilJob
	}

	p.lifecycle.RLock()
	defer p.lifecycle.RUnlock()

	if p.closed {
		p.reject()
		return ErrPoolClosed
	}

	t := task.NewJob(job)

	p.maybeScaleUp()

	p.track(1)
	p.submitted.Add(1)
	p.metrics.Submitted()

	p.queues.Read(func(v queueset.View[task.Task]) {
		v.At(0).Push(t)
	})

	return nil
}

// Wait blocks until every accepted job has finished or been discarded, or until
// ctx is done. Called from one of the pool's own jobs, Wait returns
// ErrCalledFromJob at once.
func (p *ThreadPool) Wait(ctx context.Context) error {
	if p.inJob() {
		return ErrCalledFromJob
	}

	p.idleMu.Lock()
	idle := p.idle
	p.idleMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs, waits for every accepted job to run, then sends
// one terminate task per queue and waits for all workers to exit. If ctx ends
// first, Shutdown returns an error matching both ErrShutdownTimeout and the
// context error; the workers keep going and Shutdown may be called again.
//
// Called from one of the pool's own jobs, Shutdown closes the pool and returns
// ErrCalledFromJob without waiting. Detecting that caller needs kernel thread
// ids; elsewhere such a call blocks until ctx is done.
func (p *ThreadPool) Shutdown(ctx context.Context) error {
	if p.close() {
		p.log.Info("pool shutting down", logging.Fields{"pending": p.Pending()})
	}

	if p.inJob() {
		p.log.Warn("shutdown called from a job", nil)
		return ErrCalledFromJob
	}

	if err := p.Wait(ctx); err != nil {
		p.log.Warn("shutdown interrupted", logging.Fields{"pending": p.Pending(), "error": err.Error()})
		return shutdownTimeout(err)
	}

	p.terminateOnce.Do(func() {
		p.queues.Read(func(v queueset.View[task.Task]) {
			for i := 0; i < v.Len(); i++ {
				v.At(i).Push(task.Terminate())
			}
		})
	})

	if err := p.join(ctx); err != nil {
		p.log.Warn("shutdown interrupted", logging.Fields{"error": err.Error()})
		return shutdownTimeout(err)
	}

	p.log.Info("pool shut down", logging.Fields{"executed": p.executed.Load()})
	return nil
}

// Stop stops accepting jobs, signals every worker to exit after its current job,
// and waits for them. Jobs still queued are discarded; their number is logged and
// counted in Stats.
//
// Called from one of the pool's own jobs, Stop signals every worker and returns.
// Waiting and discarding then finish in the background once that job returns.
// Detecting that caller needs kernel thread ids; elsewhere such a call never
// returns.
func (p *ThreadPool) Stop() {
	p.close()

	if p.inJob() {
		for _, w := range p.workers() {
			w.Stop()
		}
		p.log.Warn("stop called from a job, finishing in the background", nil)
		go p.stop()
		return
	}

	p.stop()
}

func (p *ThreadPool) stop() {
	p.stopOnce.Do(func() {
		for _, w := range p.workers() {
			w.Stop()
		}
		_ = p.join(context.Background())

		dropped := 0
		p.queues.Read(func(v queueset.View[task.Task]) {
			for i := 0; i < v.Len(); i++ {
				for _, t := range v.At(i).Drain() {
					if t.Kind() == task.KindJob {
						dropped++
					}
				}
			}
		})

		p.discarded.Add(uint64(dropped))
		p.metrics.Discarded(dropped)
		p.track(-int64(dropped))

		p.log.Info("pool stopped", logging.Fields{"discarded": dropped, "executed": p.executed.Load()})
	})
}

// ID returns the pool's unique identifier.
func (p *ThreadPool) ID() string {
	return p.id
}

// NumWorkers returns the current number of workers.
func (p *ThreadPool) NumWorkers() int {
	return int(p.workerCount.Load())
}

// NumQueues returns the current number of queues. It always equals NumWorkers.
func (p *ThreadPool) NumQueues() int {
	return p.queues.Len()
}

// MaxWorkers returns the worker ceiling given at construction.
func (p *ThreadPool) MaxWorkers() int {
	return p.maxWorkers
}

// MaxPendingTasks returns the backlog threshold for scale-up.
func (p *ThreadPool) MaxPendingTasks() int {
	return p.maxPendingTasks
}

// Pending returns the number of accepted jobs that have not yet finished.
func (p *ThreadPool) Pending() int64 {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()

	return p.pending
}

// Closed reports whether Shutdown or Stop has been called.
func (p *ThreadPool) Closed() bool {
	p.lifecycle.RLock()
	defer p.lifecycle.RUnlock()

	return p.closed
}

// Stats returns a snapshot of the pool's counters and of every worker.
func (p *ThreadPool) Stats() Stats {
	workers := p.workers()

	ws := make([]worker.Stats, 0, len(workers))
	for _, w := range workers {
		ws = append(ws, w.Stats())
	}

	return Stats{
		ID:              p.id,
		Workers:         len(workers),
		Queues:          p.queues.Len(),
		MaxWorkers:      p.maxWorkers,
		MaxPendingTasks: p.maxPendingTasks,
		Submitted:       p.submitted.Load(),
		Rejected:        p.rejected.Load(),
		Executed:        p.executed.Load(),
		Panicked:        p.panicked.Load(),
		Stolen:          p.stolen.Load(),
		Discarded:       p.discarded.Load(),
		ScaleUps:        p.scaleUps.Load(),
		Pending:         p.Pending(),
		Backlog:         p.backlog(),
		Closed:          p.Closed(),
		WorkerStats:     ws,
	}
}

//endregion

//region Helpers

// backlog sums the lengths of every queue whose lock could be taken without
// waiting. Contended queues are left out, so the result is a lower bound.
func (p *ThreadPool) backlog() int {
	n := 0
	p.queues.Read(func(v queueset.View[task.Task]) {
		for i := 0; i < v.Len(); i++ {
			if l, ok := v.At(i).TryLen(); ok {
				n += l
			}
		}
	})
	return n
}

// maybeScaleUp adds one queue and its worker when the backlog estimate is over
// the threshold and the ceiling has not been reached. Only one caller at a time
// gets to try; the others return straight away. The worker count is checked
// again under exclusive structural access before anything is appended.
func (p *ThreadPool) maybeScaleUp() {
	backlog := p.backlog()
	if backlog <= p.maxPendingTasks || int(p.workerCount.Load()) >= p.maxWorkers {
		return
	}

	if !p.scaleUp.TryAcquire() {
		p.log.Debug("scale-up skipped", logging.Fields{"backlog": backlog})
		return
	}
	defer p.scaleUp.Release()

	index, added := p.queues.Append(
		func(n int) bool { return len(p.roster) < p.maxWorkers },
		p.addWorker,
	)
	if !added {
		return
	}

	p.scaleUps.Add(1)
	p.metrics.ScaledUp(index + 1)
	p.log.Info("scaled up", logging.Fields{"backlog": backlog, "workers": index + 1})
}

// addWorker starts the worker for a queue that was just appended at index. It
// runs inside queues.Append.
func (p *ThreadPool) addWorker(index int) {
	p.roster = append(p.roster, worker.New(index, p.queues, p.workerCfg))
	p.workerCount.Add(1)
}

// inJob reports whether the caller is running on one of the pool's workers.
func (p *ThreadPool) inJob() bool {
	found := false
	p.queues.Read(func(queueset.View[task.Task]) {
		for _, w := range p.roster {
			if w.Current() {
				found = true
				return
			}
		}
	})
	return found
}

// workers returns a copy of the roster taken under shared structural access.
func (p *ThreadPool) workers() []*worker.Worker {
	var out []*worker.Worker
	p.queues.Read(func(queueset.View[task.Task]) {
		out = make([]*worker.Worker, len(p.roster))
		copy(out, p.roster)
	})
	return out
}

// join waits for every worker to exit, concurrently, until ctx is done.
func (p *ThreadPool) join(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers() {
		w := w // per-iteration copy (Go 1.22 loop semantics)
		g.Go(func() error {
			return w.Join(gctx)
		})
	}
	return g.Wait()
}

// close marks the pool closed and reports whether this call did so.
func (p *ThreadPool) close() bool {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.closed {
		return false
	}
	p.closed = true
	return true
}

// track adds delta to the pending count, opening or closing the idle channel
// when the count leaves or reaches zero.
func (p *ThreadPool) track(delta int64) {
	if delta == 0 {
		return
	}

	p.idleMu.Lock()
	defer p.idleMu.Unlock()

	before := p.pending
	p.pending += delta

	switch {
	case before == 0 && p.pending > 0:
		p.idle = make(chan struct{})
	case before > 0 && p.pending <= 0:
		p.pending = 0
		close(p.idle)
	}
}

func (p *ThreadPool) reject() {
	p.rejected.Add(1)
	p.metrics.Rejected()
}

func (p *ThreadPool) onExecute(_ int, elapsed time.Duration, panicked bool) {
	p.executed.Add(1)
	if panicked {
		p.panicked.Add(1)
	}
	p.metrics.Executed(elapsed, panicked)
	p.track(-1)
}

func (p *ThreadPool) onSteal(int, int) {
	p.stolen.Add(1)
	p.metrics.Stolen()
}

//endregion

//region Constructor

// New creates a pool that may grow to size workers. It starts with one queue and
// one worker. New panics if size is 0.
func New(size uint16, opts ...Option) *ThreadPool {
	if size == 0 {
		panic("cannot create a ThreadPool with 0 workers")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()

	idle := make(chan struct{})
	close(idle)

	p := &ThreadPool{
		id:              id,
		maxWorkers:      int(size),
		maxPendingTasks: o.maxPendingTasks,
		scaleUp:         concurrency.NewLimiter(o.scaleUpInterval),
		log:             logging.With(o.logger, logging.Fields{"pool_id": id}),
		metrics:         o.metrics,
		idle:            idle,
	}

	var setOpts []queueset.Option
	if o.detectDeadlock {
		setOpts = append(setOpts, queueset.WithDeadlockDetection(o.deadlockTimeout, func() {
			p.log.Error("potential deadlock on queue set lock", logging.Fields{"timeout": o.deadlockTimeout.String()})
		}))
	}
	p.queues = queueset.New[task.Task](0, setOpts...)

	p.workerCfg = worker.Config{
		Backoff:      o.backoff,
		Logger:       p.log,
		PanicHandler: o.panicHandler,
		PinCPU:       o.pinWorkers,
		Hooks: worker.Hooks{
			OnExecute: p.onExecute,
			OnSteal:   p.onSteal,
		},
	}

	p.queues.Append(nil, p.addWorker)

	p.metrics.SetWorkers(1)
	p.log.Info("pool created", logging.Fields{
		"max_workers":       p.maxWorkers,
		"max_pending_tasks": p.maxPendingTasks,
	})

	return p
}

//endregion
