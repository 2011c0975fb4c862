//go:build linux

package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/worker"
)

// TestThreadPool_StopFromJob checks that a job can stop its own pool: the call
// returns, the queued jobs are discarded and every worker exits.
func (s *ThreadPool_TestSuite) TestThreadPool_StopFromJob() {
	p := s.newPool(1)

	var (
		started  = make(chan struct{})
		release  = make(chan struct{})
		returned = make(chan struct{})
		ran      atomic.Int32
	)
	p.Execute(func() {
		close(started)
		<-release
		p.Stop()
		close(returned)
	})
	<-started

	for i := 0; i < 3; i++ {
		p.Execute(func() { ran.Add(1) })
	}
	close(release)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		s.FailNow("Stop called from a job did not return")
	}

	p.Stop()

	stats := p.Stats()
	s.Require().True(stats.Closed)
	s.Require().Equal(int32(0), ran.Load())
	s.Require().Equal(uint64(3), stats.Discarded)
	s.Require().Equal(int64(0), stats.Pending)
	for _, ws := range stats.WorkerStats {
		s.Require().Equal(worker.StateStopped.String(), ws.State)
	}
	s.Require().Equal(1, s.rec.Count("stop called from a job, finishing in the background"))
	s.Require().Equal(1, s.rec.Count("pool stopped"))
}

// TestThreadPool_ShutdownFromJob checks that Shutdown called by a job closes the
// pool and reports the call instead of waiting on itself.
func (s *ThreadPool_TestSuite) TestThreadPool_ShutdownFromJob() {
	p := s.newPool(2)

	errs := make(chan error, 1)
	p.Execute(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs <- p.Shutdown(ctx)
	})

	select {
	case err := <-errs:
		s.Require().ErrorIs(err, ErrCalledFromJob)
	case <-time.After(2 * time.Second):
		s.FailNow("Shutdown called from a job did not return")
	}

	s.Require().True(p.Closed())
	s.Require().ErrorIs(p.Submit(func() {}), ErrPoolClosed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(p.Shutdown(ctx))
}

// TestThreadPool_WaitFromJob checks that Wait refuses to wait for the job it is
// called from.
func (s *ThreadPool_TestSuite) TestThreadPool_WaitFromJob() {
	p := s.newPool(1)

	errs := make(chan error, 1)
	p.Execute(func() { errs <- p.Wait(context.Background()) })

	select {
	case err := <-errs:
		s.Require().ErrorIs(err, ErrCalledFromJob)
	case <-time.After(2 * time.Second):
		s.FailNow("Wait called from a job did not return")
	}
	s.wait(p)
}
