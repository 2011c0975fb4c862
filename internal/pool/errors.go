package pool

import "fmt"

var (
	// ErrPoolClosed is returned by Submit once Shutdown or Stop has been called.
	ErrPoolClosed = &PoolError{msg: "pool is closed"}

	// ErrNilJob is returned by Submit when the job is nil.
	ErrNilJob = &PoolError{msg: "job is nil"}

	// ErrShutdownTimeout is returned by Shutdown when ctx ends before every job
	// has run and every worker has exited. The context error is wrapped alongside.
	ErrShutdownTimeout = &PoolError{msg: "shutdown did not complete"}

	// ErrCalledFromJob is returned by Wait and Shutdown when they are called from
	// a job running on the same pool, which can never see that job finish.
	ErrCalledFromJob = &PoolError{msg: "called from a job of this pool"}
)

// PoolError is the error type returned by the pool. It supports errors.Is and
// errors.As through Unwrap.
type PoolError struct {
	msg string
	err error
}

// Error returns the message, followed by the wrapped error if there is one.
func (e *PoolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("ezsteal: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("ezsteal: %s", e.msg)
}

// Unwrap returns the wrapped error.
func (e *PoolError) Unwrap() error {
	return e.err
}

// Is reports whether target is a PoolError with the same message, so a wrapped
// ErrShutdownTimeout still matches the sentinel.
func (e *PoolError) Is(target error) bool {
	t, ok := target.(*PoolError)
	if !ok {
		return false
	}
	return t.msg == e.msg && t.err == nil
}

// shutdownTimeout wraps the context error that cut a shutdown short.
func shutdownTimeout(err error) error {
	return &PoolError{msg: ErrShutdownTimeout.msg, err: err}
}
