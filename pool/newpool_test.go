package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/pool"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	p := NewPool(3, pool.WithBackoff(time.Millisecond))

	require.Equal(t, 1, p.NumWorkers())
	require.Equal(t, 1, p.NumQueues())
	require.Equal(t, 3, p.MaxWorkers())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		p.Execute(func() { ran.Add(1) })
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	require.Equal(t, int32(10), ran.Load())
	require.Equal(t, uint64(10), p.Stats().Executed)
}

func TestNewPool_PanicsOnZero(t *testing.T) {
	require.Panics(t, func() { NewPool(0) })
}
