package reporter

import (
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/pool"
)

// StatsSource is anything that can report pool stats.
type StatsSource interface {
	Stats() pool.Stats
}

// Reporter logs a pool stats summary at a fixed interval.
type Reporter struct {
	source    StatsSource
	log       logging.Logger
	interval  time.Duration
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	last    pool.Stats
	reports int
	running bool
}

//region Implementation

// Start schedules the report and returns immediately. The first report is
// written straight away.
func (r *Reporter) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	if _, err := r.scheduler.Every(r.interval).Do(r.Report); err != nil {
		return err
	}
	r.scheduler.StartAsync()
	r.running = true

	r.log.Info("stats reporter started", logging.Fields{"interval": r.interval.String()})
	return nil
}

// Stop cancels the schedule. A report that is being written is allowed to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	running := r.running
	r.running = false
	r.mu.Unlock()

	if !running {
		return
	}

	r.scheduler.Stop()
	r.scheduler.Clear()
	r.log.Info("stats reporter stopped", nil)
}

// Report takes a stats snapshot and logs it.
func (r *Reporter) Report() {
	stats := r.source.Stats()

	r.mu.Lock()
	r.last = stats
	r.reports++
	r.mu.Unlock()

	r.log.Info("pool stats", logging.Fields{
		"workers":   stats.Workers,
		"submitted": stats.Submitted,
		"executed":  stats.Executed,
		"stolen":    stats.Stolen,
		"panicked":  stats.Panicked,
		"pending":   stats.Pending,
		"backlog":   stats.Backlog,
		"scale_ups": stats.ScaleUps,
	})
}

// Last returns the most recent snapshot and how many reports have been written.
func (r *Reporter) Last() (pool.Stats, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last, r.reports
}

//endregion

//region Constructor

// New returns a Reporter for source. interval must be positive.
func New(source StatsSource, interval time.Duration, logger logging.Logger) (*Reporter, error) {
	if source == nil {
		return nil, errors.New("reporter: stats source is nil")
	}
	if interval <= 0 {
		return nil, errors.New("reporter: interval must be positive")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Reporter{
		source:    source,
		log:       logger,
		interval:  interval,
		scheduler: s,
	}, nil
}

//endregion
