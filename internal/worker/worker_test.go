package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/queueset"
	"github.com/pgvanniekerk/ezsteal/internal/task"
	"github.com/stretchr/testify/suite"
)

// TestWorker_TestSuite executes the test suite for the Worker type.
func TestWorker_TestSuite(t *testing.T) {
	suite.Run(t, new(Worker_TestSuite))
}

// Worker_TestSuite tests the scan-and-steal loop of Worker.
type Worker_TestSuite struct {
	suite.Suite

	rec     *logging.Recorder
	workers []*Worker
}

// SetupTest creates a fresh recorder for every test.
func (s *Worker_TestSuite) SetupTest() {
	s.rec = logging.NewRecorder(4096, nil)
	s.workers = nil
}

// TearDownTest stops and joins every worker a test started.
func (s *Worker_TestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, w := range s.workers {
		w.Stop()
		s.Require().NoError(w.Join(ctx))
		s.Require().Equal(StateStopped, w.State())
	}
}

func (s *Worker_TestSuite) start(index int, queues *Queues, cfg Config) *Worker {
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = s.rec
	}
	w := New(index, queues, cfg)
	s.workers = append(s.workers, w)
	return w
}

func push(queues *Queues, index int, tasks ...task.Task) {
	queues.Read(func(v queueset.View[task.Task]) {
		for _, t := range tasks {
			v.At(index).Push(t)
		}
	})
}

func pending(queues *Queues) int {
	n := 0
	queues.Read(func(v queueset.View[task.Task]) {
		for i := 0; i < v.Len(); i++ {
			n += v.At(i).Len()
		}
	})
	return n
}

// TestWorker_DrainsEveryQueue binds a single worker to queue 0 of a four-queue
// set and checks it empties all of them.
func (s *Worker_TestSuite) TestWorker_DrainsEveryQueue() {
	queues := queueset.New[task.Task](4)

	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		push(queues, i, task.NewJob(func() { ran.Add(1) }))
	}

	w := s.start(0, queues, Config{})

	s.Require().Eventually(func() bool { return w.Stats().Executed == 4 }, 2*time.Second, time.Millisecond)
	s.Require().Equal(int32(4), ran.Load())
	s.Require().Equal(0, pending(queues))
	s.Require().Equal(uint64(3), w.Stats().Stolen)
	s.Require().Equal(3, s.rec.Count("steal succeeded"))
}

// TestWorker_OwnQueueBeforeStealing checks that a worker exhausts its own queue
// newest first and only then steals from a peer oldest first.
func (s *Worker_TestSuite) TestWorker_OwnQueueBeforeStealing() {
	queues := queueset.New[task.Task](2)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) task.Task {
		return task.NewJob(func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		})
	}

	push(queues, 0, record("a"), record("b"), record("c"))
	push(queues, 1, record("x"), record("y"), record("z"))

	s.start(1, queues, Config{})

	s.Require().Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 6
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	s.Require().Equal([]string{"z", "y", "x", "a", "b", "c"}, order)
}

// TestWorker_TerminateStopsLoop checks that a worker exits on a terminate task and
// leaves the tasks behind it untouched.
func (s *Worker_TestSuite) TestWorker_TerminateStopsLoop() {
	queues := queueset.New[task.Task](1)

	var ran atomic.Bool
	// Pop is LIFO, so the terminate pushed last is seen first.
	push(queues, 0, task.NewJob(func() { ran.Store(true) }), task.Terminate())

	w := s.start(0, queues, Config{})

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		s.FailNow("worker did not exit after terminate")
	}

	s.Require().False(ran.Load())
	s.Require().Equal(1, pending(queues))
	s.Require().Equal(StateStopped, w.State())
	s.Require().Equal(1, s.rec.Count("terminate received"))
}

// TestWorker_RecoversPanics checks that a panicking job is reported and the worker
// goes on to run the next job.
func (s *Worker_TestSuite) TestWorker_RecoversPanics() {
	queues := queueset.New[task.Task](1)

	var (
		handled  atomic.Value
		executed atomic.Int32
		ran      atomic.Bool
	)
	cfg := Config{
		PanicHandler: func(worker int, recovered any) { handled.Store(recovered) },
		Hooks: Hooks{
			OnExecute: func(worker int, elapsed time.Duration, panicked bool) { executed.Add(1) },
		},
	}

	push(queues, 0, task.NewJob(func() { ran.Store(true) }), task.NewJob(func() { panic("boom") }))

	w := s.start(0, queues, cfg)

	s.Require().Eventually(func() bool { return executed.Load() == 2 }, 2*time.Second, time.Millisecond)
	s.Require().True(ran.Load())
	s.Require().Equal("boom", handled.Load())
	s.Require().Equal(uint64(1), w.Stats().Panicked)
	s.Require().Equal(StateRunning, w.State())
	s.Require().Equal(1, s.rec.Count("job panicked"))
}

// TestWorker_StopInterruptsBackoff checks that Stop wakes a worker sleeping in its
// backoff instead of waiting for the interval to pass.
func (s *Worker_TestSuite) TestWorker_StopInterruptsBackoff() {
	queues := queueset.New[task.Task](1)
	w := New(0, queues, Config{Backoff: time.Hour, Logger: s.rec})

	s.Require().Eventually(func() bool { return s.rec.Count("steal failed") > 0 }, 2*time.Second, time.Millisecond)

	w.Stop()
	s.Require().Contains([]State{StateStopping, StateStopped}, w.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(w.Join(ctx))
	s.Require().Equal(StateStopped, w.State())

	// Stop is idempotent.
	w.Stop()
}

// TestWorker_JoinHonoursContext checks that Join gives up when ctx expires.
func (s *Worker_TestSuite) TestWorker_JoinHonoursContext() {
	queues := queueset.New[task.Task](1)

	release := make(chan struct{})
	push(queues, 0, task.NewJob(func() { <-release }))
	w := s.start(0, queues, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.Require().ErrorIs(w.Join(ctx), context.DeadlineExceeded)

	close(release)
}

// TestWorker_IndexBeyondSetIdles checks that a worker whose index is not yet in
// the set keeps scanning without touching other queues.
func (s *Worker_TestSuite) TestWorker_IndexBeyondSetIdles() {
	queues := queueset.New[task.Task](1)
	push(queues, 0, task.NewJob(func() {}))

	s.start(3, queues, Config{})
	time.Sleep(20 * time.Millisecond)

	s.Require().Equal(1, pending(queues))
}
