package ezsteal

import (
	"fmt"
	"os"

	"github.com/pgvanniekerk/ezsteal/internal/config"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/metrics"
	"github.com/pgvanniekerk/ezsteal/internal/pool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// ThreadPool is a self-scaling, work-stealing worker pool.
type ThreadPool = pool.ThreadPool

// Stats is a snapshot of a pool's counters.
type Stats = pool.Stats

// Option configures a pool at construction.
type Option = pool.Option

// Config is the file and environment configuration of a pool.
type Config = config.FileConfig

// Logger receives the events of a pool and its workers.
type Logger = logging.Logger

// Fields are the structured fields of a log event.
type Fields = logging.Fields

// Metrics holds the Prometheus collectors of a pool.
type Metrics = metrics.Metrics

// DefaultMaxPendingTasks is the default backlog threshold for scale-up.
const DefaultMaxPendingTasks = pool.DefaultMaxPendingTasks

var (
	// WithMaxPendingTasks sets the backlog threshold for scale-up.
	WithMaxPendingTasks = pool.WithMaxPendingTasks

	// WithBackoff sets how long an idle worker sleeps between scans.
	WithBackoff = pool.WithBackoff

	// WithLogger sets the sink for pool and worker events.
	WithLogger = pool.WithLogger

	// WithMetrics attaches Prometheus collectors.
	WithMetrics = pool.WithMetrics

	// WithPanicHandler sets the callback for values recovered from jobs.
	WithPanicHandler = pool.WithPanicHandler

	// WithPinWorkers pins every worker's OS thread to a CPU.
	WithPinWorkers = pool.WithPinWorkers

	// WithScaleUpInterval spaces consecutive scale-ups.
	WithScaleUpInterval = pool.WithScaleUpInterval

	// WithDeadlockDetection reports a stuck queue set lock through the logger.
	WithDeadlockDetection = pool.WithDeadlockDetection
)

// New creates a pool that may grow to size workers. It starts with one worker.
// New panics if size is 0.
//
// Example:
//
//	p := ezsteal.New(8,
//	    ezsteal.WithMaxPendingTasks(32),
//	    ezsteal.WithLogger(ezsteal.NewLogrusLogger(nil)),
//	)
//	defer p.Stop()
func New(size uint16, opts ...Option) *ThreadPool {
	return pool.New(size, opts...)
}

// NewFromConfig loads configuration from path (skipped when empty) and from
// EZSTEAL_* environment variables, after loading any envFiles, then builds a pool
// with a logrus logger writing to stderr. Extra options are applied after the
// configured ones.
func NewFromConfig(path string, envFiles []string, opts ...Option) (*ThreadPool, *Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.NewLogger(os.Stderr)

	configured, err := cfg.Options()
	if err != nil {
		return nil, nil, err
	}

	all := append([]Option{pool.WithLogger(logger)}, configured...)
	all = append(all, opts...)

	return pool.New(cfg.Size(), all...), cfg, nil
}

// NewLogrusLogger adapts l to Logger. A nil l uses the logrus standard logger.
func NewLogrusLogger(l *log.Logger) Logger {
	return logging.NewLogrus(l)
}

// NopLogger returns a Logger that discards every event.
func NopLogger() Logger {
	return logging.Nop()
}

// NewMetrics creates the pool collectors and registers them with reg, or with
// the default registerer when reg is nil.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) (*Metrics, error) {
	return metrics.New(namespace, subsystem, reg)
}
