package pool

import (
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/metrics"
	"github.com/pgvanniekerk/ezsteal/internal/worker"
)

// DefaultMaxPendingTasks is the backlog estimate above which a submission tries
// to add a worker.
const DefaultMaxPendingTasks = 10

// Option configures a ThreadPool at construction.
type Option func(*options)

type options struct {
	maxPendingTasks int
	backoff         time.Duration
	logger          logging.Logger
	metrics         *metrics.Metrics
	panicHandler    func(worker int, recovered any)
	pinWorkers      bool
	scaleUpInterval time.Duration
	deadlockTimeout time.Duration
	detectDeadlock  bool
}

// WithMaxPendingTasks sets the backlog threshold for scale-up. Values below zero
// are ignored.
func WithMaxPendingTasks(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPendingTasks = n
		}
	}
}

// WithBackoff sets how long an idle worker sleeps between scans. Values of zero
// or less are ignored.
func WithBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.backoff = d
		}
	}
}

// WithLogger sets the sink for pool and worker events.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors to the pool.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPanicHandler sets a callback that receives the value recovered from a
// panicking job, together with the index of the worker that ran it.
func WithPanicHandler(h func(worker int, recovered any)) Option {
	return func(o *options) {
		o.panicHandler = h
	}
}

// WithPinWorkers binds every worker's OS thread to a CPU, chosen by worker
// index modulo the size of the thread's allowed CPU set. The previous mask is
// restored when the worker exits. Pinning failures are logged and ignored.
func WithPinWorkers(pin bool) Option {
	return func(o *options) {
		o.pinWorkers = pin
	}
}

// WithScaleUpInterval spaces consecutive scale-ups at least d apart. Zero means
// scale-ups are only limited by the backlog threshold and the worker ceiling.
func WithScaleUpInterval(d time.Duration) Option {
	return func(o *options) {
		o.scaleUpInterval = d
	}
}

// WithDeadlockDetection guards the pool's queue set with go-deadlock. A
// structural lock held or awaited for longer than timeout is logged as an error
// and the process keeps running. A zero timeout keeps go-deadlock's default.
func WithDeadlockDetection(timeout time.Duration) Option {
	return func(o *options) {
		o.detectDeadlock = true
		o.deadlockTimeout = timeout
	}
}

func defaultOptions() options {
	return options{
		maxPendingTasks: DefaultMaxPendingTasks,
		backoff:         worker.DefaultBackoff,
		logger:          logging.Nop(),
	}
}
