package concurrency

import (
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter admits at most one holder at a time and, optionally, no more than one
// admission per interval. It never blocks: a caller that cannot be admitted is
// told so and moves on.
type Limiter struct {

	// slot is the single admission slot. Holding it grants the right to perform
	// the guarded operation.
	slot *semaphore.Weighted

	// spacing throttles successful admissions. rate.Inf admits every request.
	spacing *rate.Limiter
}

//region Implementation

// TryAcquire attempts to take the admission slot without blocking. It returns
// false when another caller holds the slot or when the interval since the
// previous admission has not yet elapsed. A true result must be paired with
// Release.
func (l *Limiter) TryAcquire() bool {
	if !l.slot.TryAcquire(1) {
		return false
	}

	if !l.spacing.Allow() {
		l.slot.Release(1)
		return false
	}

	return true
}

// Release gives the admission slot back. It must only be called after a
// successful TryAcquire.
func (l *Limiter) Release() {
	l.slot.Release(1)
}

//endregion

//region Constructor

// NewLimiter returns a Limiter with a single admission slot. A positive interval
// additionally spaces admissions at least that far apart; zero or less imposes
// no spacing.
func NewLimiter(interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Limiter{
		slot:    semaphore.NewWeighted(1),
		spacing: rate.NewLimiter(limit, 1),
	}
}

//endregion
