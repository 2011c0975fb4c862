// Package ezsteal provides a self-scaling, work-stealing worker pool for
// zero-argument jobs.
//
// A pool starts with a single worker bound to a single queue. Every job is pushed
// onto queue 0. Each worker takes work from its own queue first, newest job
// first, and when that is empty it tries every other queue in index order and
// takes the oldest job it finds. A worker that finds nothing sleeps for a short
// backoff interval before scanning again.
//
// When a submission finds more than MaxPendingTasks jobs queued, it adds one more
// queue and worker, up to the ceiling given to New. Workers are never removed
// while the pool is running.
//
// # Overview
//
// Key features:
//   - One goroutine per worker, each locked to its own OS thread
//   - Non-blocking stealing: a queue whose lock is busy is skipped
//   - Scale-up on backlog with an optional minimum interval between scale-ups
//   - Panics in jobs are recovered, logged, counted and passed to a handler
//   - Graceful Shutdown and immediate Stop
//   - Structured logging through logrus, Prometheus metrics, file and
//     environment configuration
//
// # Usage
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"time"
//
//		"github.com/pgvanniekerk/ezsteal/pkg/ezsteal"
//	)
//
//	func main() {
//		// The pool may grow to 4 workers.
//		pool := ezsteal.New(4, ezsteal.WithBackoff(10*time.Millisecond))
//
//		for i := 0; i < 20; i++ {
//			pool.Execute(func() {
//				fmt.Println("job", i)
//			})
//		}
//
//		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//		defer cancel()
//
//		// Runs every queued job, then stops the workers.
//		if err := pool.Shutdown(ctx); err != nil {
//			log.Printf("shutdown: %v", err)
//		}
//	}
//
// # Configuration
//
// NewFromConfig builds a pool from a YAML or JSON file and EZSTEAL_* environment
// variables, optionally read from .env files:
//
//	pool, cfg, err := ezsteal.NewFromConfig("ezsteal.yaml", []string{".env"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Stop()
//
//	fmt.Println("ceiling:", cfg.Pool.MaxWorkers)
//
// # Shutdown
//
// A pool has no finalizer. Call Shutdown to let queued jobs run, or Stop to
// discard them; a pool that is simply dropped keeps its worker goroutines.
//
// # Errors
//
// Submit only fails with ErrNilJob or ErrPoolClosed. Shutdown fails with an
// error matching ErrShutdownTimeout and the context error when ctx ends first.
package ezsteal
