package pool

import (
	"github.com/pgvanniekerk/ezsteal/internal/pool"
)

// Option configures a pool at construction.
type Option = pool.Option

// NewPool creates a pool that may grow to size workers. It panics if size is 0.
func NewPool(size uint16, opts ...Option) Pool {
	return pool.New(size, opts...)
}
