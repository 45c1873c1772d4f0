package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() {
	if Enabled() {
		c.n.Add(1)
	}
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Reset sets the count back to zero.
func (c *Counter) Reset() { c.n.Store(0) }

var (
	UploadsCompleted = &Counter{name: "uploads_completed"}
	UploadsFailed    = &Counter{name: "uploads_failed"}
	UploadsCancelled = &Counter{name: "uploads_cancelled"}
	DragRollbacks    = &Counter{name: "drag_rollbacks"}
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{UploadsCompleted, UploadsFailed, UploadsCancelled, DragRollbacks}
}

// Snapshot is the JSON shape printed by fc --metrics.
type Snapshot struct {
	Timings  []TimingStats    `json:"timings"`
	Counters map[string]int64 `json:"counters"`
}

// Collect gathers every metric into a Snapshot.
func Collect() Snapshot {
	s := Snapshot{Timings: AllTimingStats(), Counters: make(map[string]int64)}
	for _, c := range AllCounters() {
		s.Counters[c.Name()] = c.Value()
	}
	return s
}
