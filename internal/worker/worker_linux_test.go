//go:build linux

package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/affinity"
	"github.com/pgvanniekerk/ezsteal/internal/queueset"
	"github.com/pgvanniekerk/ezsteal/internal/task"
	"golang.org/x/sys/unix"
)

// TestWorker_PinnedThreadIsRestored runs a job on a pinned worker, checks the job
// saw a single-CPU mask, and checks the thread gets its old mask back once the
// worker has exited.
func (s *Worker_TestSuite) TestWorker_PinnedThreadIsRestored() {
	var before unix.CPUSet
	s.Require().NoError(unix.SchedGetaffinity(0, &before))

	queues := queueset.New[task.Task](1)
	w := s.start(0, queues, Config{PinCPU: true})

	var (
		cpus    atomic.Int32
		tid     atomic.Int64
		current atomic.Bool
	)
	push(queues, 0, task.NewJob(func() {
		var set unix.CPUSet
		if unix.SchedGetaffinity(0, &set) == nil {
			cpus.Store(int32(set.Count()))
		}
		tid.Store(int64(affinity.ThreadID()))
		current.Store(w.Current())
	}))

	s.Require().Eventually(func() bool { return w.Stats().Executed == 1 }, 2*time.Second, time.Millisecond)
	s.Require().Equal(int32(1), cpus.Load())
	s.Require().True(current.Load())
	s.Require().False(w.Current())
	s.Require().Equal(1, s.rec.Count("cpu pinned"))
	s.Require().Zero(s.rec.Count("cpu pinning failed"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Stop()
	s.Require().NoError(w.Join(ctx))
	s.Require().Zero(s.rec.Count("cpu mask not restored"))
	s.Require().False(w.Current())

	// The thread is back with the scheduler; if it is still alive its mask must
	// match the rest of the process again.
	var after unix.CPUSet
	if err := unix.SchedGetaffinity(int(tid.Load()), &after); err == nil {
		s.Require().Equal(before, after)
	}
}

// TestWorker_CurrentOnlyInsideJobs checks Current is true for a job's goroutine
// and false for goroutines the job starts.
func (s *Worker_TestSuite) TestWorker_CurrentOnlyInsideJobs() {
	queues := queueset.New[task.Task](1)
	w := s.start(0, queues, Config{})

	var inside, spawned atomic.Bool
	spawned.Store(true)
	push(queues, 0, task.NewJob(func() {
		inside.Store(w.Current())
		done := make(chan struct{})
		go func() {
			spawned.Store(w.Current())
			close(done)
		}()
		<-done
	}))

	s.Require().Eventually(func() bool { return w.Stats().Executed == 1 }, 2*time.Second, time.Millisecond)
	s.Require().True(inside.Load())
	s.Require().False(spawned.Load())
	s.Require().False(w.Current())
}
