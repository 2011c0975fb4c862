package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a pool. Every method is safe to
// call on a nil *Metrics, in which case it does nothing.
type Metrics struct {
	TasksSubmitted prometheus.Counter
	TasksRejected  prometheus.Counter
	TasksExecuted  prometheus.Counter
	TasksPanicked  prometheus.Counter
	TasksStolen    prometheus.Counter
	ScaleUps       prometheus.Counter
	Workers        prometheus.Gauge
	Pending        prometheus.Gauge
	TaskLatency    prometheus.Histogram
}

//region Implementation

// Submitted counts a task accepted by the pool.
func (m *Metrics) Submitted() {
	if m == nil {
		return
	}
	m.TasksSubmitted.Inc()
	m.Pending.Inc()
}

// Rejected counts a submission refused because the job was nil or the pool was
// closed.
func (m *Metrics) Rejected() {
	if m == nil {
		return
	}
	m.TasksRejected.Inc()
}

// Executed records a finished task and how long it ran.
func (m *Metrics) Executed(elapsed time.Duration, panicked bool) {
	if m == nil {
		return
	}
	m.TasksExecuted.Inc()
	m.Pending.Dec()
	m.TaskLatency.Observe(elapsed.Seconds())
	if panicked {
		m.TasksPanicked.Inc()
	}
}

// Discarded removes n abandoned tasks from the pending gauge.
func (m *Metrics) Discarded(n int) {
	if m == nil {
		return
	}
	m.Pending.Sub(float64(n))
}

// Stolen counts a task taken from another worker's queue.
func (m *Metrics) Stolen() {
	if m == nil {
		return
	}
	m.TasksStolen.Inc()
}

// ScaledUp counts a scale-up and sets the worker gauge to the new total.
func (m *Metrics) ScaledUp(workers int) {
	if m == nil {
		return
	}
	m.ScaleUps.Inc()
	m.Workers.Set(float64(workers))
}

// SetWorkers sets the worker gauge.
func (m *Metrics) SetWorkers(workers int) {
	if m == nil {
		return
	}
	m.Workers.Set(float64(workers))
}

//endregion

//region Constructor

// New creates the pool collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer. Registration fails if collectors with the same
// names are already registered with reg, in which case none of the new
// collectors stay registered.
func New(namespace, subsystem string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		TasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks submitted to the pool",
		}),
		TasksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_rejected_total",
			Help:      "Total number of submissions refused by the pool",
		}),
		TasksExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_executed_total",
			Help:      "Total number of tasks run by a worker",
		}),
		TasksPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_panicked_total",
			Help:      "Total number of tasks that panicked",
		}),
		TasksStolen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_stolen_total",
			Help:      "Total number of tasks taken from another worker's queue",
		}),
		ScaleUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scale_ups_total",
			Help:      "Total number of workers added after construction",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers",
			Help:      "Current number of workers",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_pending",
			Help:      "Tasks submitted but not yet finished",
		}),
		TaskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_latency_seconds",
			Help:      "Histogram of task execution latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.TasksSubmitted,
		m.TasksRejected,
		m.TasksExecuted,
		m.TasksPanicked,
		m.TasksStolen,
		m.ScaleUps,
		m.Workers,
		m.Pending,
		m.TaskLatency,
	}

	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			// Leave reg as it was so a later attempt can succeed.
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}

	return m, nil
}

//endregion
