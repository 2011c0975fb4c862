package pool

import "github.com/pgvanniekerk/ezsteal/internal/worker"

// Stats is a snapshot of a pool's counters. Fields are read without a common
// lock, so totals taken during heavy submission may be off by a few tasks.
type Stats struct {
	ID              string `json:"id"`
	Workers         int    `json:"workers"`
	Queues          int    `json:"queues"`
	MaxWorkers      int    `json:"max_workers"`
	MaxPendingTasks int    `json:"max_pending_tasks"`

	// Submitted counts accepted jobs; Rejected counts refused submissions.
	Submitted uint64 `json:"submitted"`
	Rejected  uint64 `json:"rejected"`

	// Executed counts finished jobs, including those that panicked.
	Executed uint64 `json:"executed"`
	Panicked uint64 `json:"panicked"`
	Stolen   uint64 `json:"stolen"`

	// Discarded counts jobs thrown away by Stop.
	Discarded uint64 `json:"discarded"`
	ScaleUps  uint64 `json:"scale_ups"`

	// Pending is submitted jobs that have not finished or been discarded.
	Pending int64 `json:"pending"`

	// Backlog is the lower-bound queue length estimate used for scale-up.
	Backlog int  `json:"backlog"`
	Closed  bool `json:"closed"`

	WorkerStats []worker.Stats `json:"worker_stats"`
}
