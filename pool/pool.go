package pool

import (
	"context"

	"github.com/pgvanniekerk/ezsteal/internal/pool"
)

// Stats is a snapshot of a pool's counters.
type Stats = pool.Stats

// Pool defines the interface of a self-scaling, work-stealing worker pool.
// Jobs are zero-argument functions. The pool starts with one worker and adds
// workers, up to a fixed ceiling, while submissions find a backlog. Workers are
// only removed by Shutdown or Stop.
// Implementations of this interface must be safe for concurrent use.
type Pool interface {

	// Execute submits a job and returns immediately. A job that cannot be
	// accepted is logged and dropped.
	Execute(job func())

	// Submit submits a job. It only fails when the job is nil or the pool has
	// been closed.
	Submit(job func()) error

	// Wait blocks until every accepted job has finished or ctx is done. A job
	// of the pool that calls Wait gets an error instead of waiting on itself.
	Wait(ctx context.Context) error

	// Shutdown stops accepting jobs, runs every accepted job, and then stops
	// all workers. It returns early with an error if ctx is done first. A job
	// of the pool that calls Shutdown closes the pool and gets an error.
	Shutdown(ctx context.Context) error

	// Stop stops accepting jobs and stops all workers after their current job.
	// Jobs still queued are discarded. A job of the pool that calls Stop does
	// not wait; the workers finish stopping once it returns. Jobs are only
	// recognised where the platform exposes thread ids (Linux), and anywhere
	// else these calls from a job block.
	Stop()

	// NumWorkers returns the current number of workers.
	NumWorkers() int

	// NumQueues returns the current number of queues, always equal to NumWorkers.
	NumQueues() int

	// MaxWorkers returns the worker ceiling.
	MaxWorkers() int

	// MaxPendingTasks returns the backlog above which a submission adds a worker.
	MaxPendingTasks() int

	// ID returns the pool's unique identifier.
	ID() string

	// Stats returns a snapshot of the pool's counters.
	Stats() Stats
}
