package ezsteal

import (
	"github.com/pgvanniekerk/ezsteal/internal/pool"
)

// PoolError is the type of every error returned by a pool.
type PoolError = pool.PoolError

var (
	// ErrPoolClosed is returned by Submit once Shutdown or Stop has been called.
	//
	// Example:
	//
	//	if err := p.Submit(job); errors.Is(err, ezsteal.ErrPoolClosed) {
	//	    log.Println("pool is closed, job not run")
	//	}
	ErrPoolClosed = pool.ErrPoolClosed

	// ErrNilJob is returned by Submit when the job is nil.
	ErrNilJob = pool.ErrNilJob

	// ErrShutdownTimeout is matched by the error Shutdown returns when its
	// context ends before the pool has drained and every worker has exited.
	// The error also matches the context error.
	//
	// Example:
	//
	//	err := p.Shutdown(ctx)
	//	if errors.Is(err, ezsteal.ErrShutdownTimeout) {
	//	    p.Stop()
	//	}
	ErrShutdownTimeout = pool.ErrShutdownTimeout

	// ErrCalledFromJob is returned by Wait and Shutdown when a job calls them on
	// its own pool.
	ErrCalledFromJob = pool.ErrCalledFromJob
)
