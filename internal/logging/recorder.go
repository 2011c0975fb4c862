package logging

import (
	"maps"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// DefaultRecorderCapacity is the number of events a Recorder keeps when no
// capacity is given.
const DefaultRecorderCapacity = 256

// Event is one log event captured by a Recorder.
type Event struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Fields  Fields    `json:"fields,omitempty"`
}

// Recorder keeps the most recent log events in memory and forwards every event
// to an optional inner Logger. Once full, the oldest event is dropped for each
// new one.
type Recorder struct {
	mu       sync.Mutex
	events   *queue.Queue
	capacity int
	next     Logger
}

// NewRecorder returns a Recorder holding up to capacity events. A capacity of 0
// or less uses DefaultRecorderCapacity. next may be nil.
func NewRecorder(capacity int, next Logger) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	if next == nil {
		next = Nop()
	}
	return &Recorder{
		events:   queue.New(),
		capacity: capacity,
		next:     next,
	}
}

func (r *Recorder) Debug(msg string, fields Fields) {
	r.record(LevelDebug, msg, fields)
	r.next.Debug(msg, fields)
}

func (r *Recorder) Info(msg string, fields Fields) {
	r.record(LevelInfo, msg, fields)
	r.next.Info(msg, fields)
}

func (r *Recorder) Warn(msg string, fields Fields) {
	r.record(LevelWarn, msg, fields)
	r.next.Warn(msg, fields)
}

func (r *Recorder) Error(msg string, fields Fields) {
	r.record(LevelError, msg, fields)
	r.next.Error(msg, fields)
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0, r.events.Length())
	for i := 0; i < r.events.Length(); i++ {
		out = append(out, r.events.Get(i).(Event))
	}
	return out
}

// Count returns how many recorded events carry the given message.
func (r *Recorder) Count(msg string) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Message == msg {
			n++
		}
	}
	return n
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.events.Length()
}

func (r *Recorder) record(level Level, msg string, fields Fields) {
	ev := Event{
		Time:    time.Now(),
		Level:   level.String(),
		Message: msg,
		Fields:  maps.Clone(fields),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.events.Length() >= r.capacity {
		r.events.Remove()
	}
	r.events.Add(ev)
}
