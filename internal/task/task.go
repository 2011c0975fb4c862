package task

// Job is a unit of work submitted to the pool. It takes no arguments, returns
// nothing, and may be invoked from any goroutine. Ownership passes to the pool on
// submission and the job is invoked at most once.
type Job func()

// Kind identifies the variant held by a Task.
type Kind uint8

const (
	// KindJob marks a Task that carries a Job to execute.
	KindJob Kind = iota

	// KindTerminate marks a Task that tells the worker receiving it to exit.
	KindTerminate
)

// String returns a lower-case name for k, used in log fields.
func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Task is the schedulable unit held by the work-stealing queues. It is either a
// job to execute or a request for the receiving worker to terminate.
type Task struct {
	kind Kind
	job  Job
}

// NewJob wraps j in a Task of kind KindJob.
func NewJob(j Job) Task {
	return Task{kind: KindJob, job: j}
}

// Terminate returns a Task of kind KindTerminate.
func Terminate() Task {
	return Task{kind: KindTerminate}
}

// Kind returns the variant held by t.
func (t Task) Kind() Kind {
	return t.kind
}

// Job returns the job carried by t, or nil for a terminate task.
func (t Task) Job() Job {
	return t.job
}
