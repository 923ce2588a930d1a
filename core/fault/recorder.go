package fault

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRecentCapacity bounds how many faults a Recorder keeps.
const DefaultRecentCapacity = 256

// Recorder keeps the most recent faults in memory and counts every fault it
// has seen. Older faults are evicted from the history but stay counted.
type Recorder struct {
	recent  *lru.Cache[string, Fault]
	total   atomic.Int64
	panics  atomic.Int64
	goexits atomic.Int64
	evicted atomic.Int64
}

// NewRecorder creates a Recorder holding up to capacity faults.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	r := &Recorder{}
	// NewWithEvict only fails for a non-positive size.
	r.recent, _ = lru.NewWithEvict[string, Fault](capacity, r.onEvict)
	return r
}

func (r *Recorder) onEvict(string, Fault) {
	r.evicted.Add(1)
}

func (r *Recorder) Report(f Fault) {
	r.total.Add(1)
	switch f.Kind {
	case KindPanic:
		r.panics.Add(1)
	case KindGoexit:
		r.goexits.Add(1)
	}
	r.recent.Add(r.key(f), f)
}

func (r *Recorder) key(f Fault) string {
	if f.TaskID != "" {
		return f.TaskID
	}
	// Faults from calls without an ID still need distinct slots.
	return "anon-" + f.At.Format("20060102T150405.000000000")
}

// Count returns the number of faults reported so far.
func (r *Recorder) Count() int64 {
	return r.total.Load()
}

// CountByKind returns the number of faults of the given kind.
func (r *Recorder) CountByKind(kind Kind) int64 {
	switch kind {
	case KindPanic:
		return r.panics.Load()
	case KindGoexit:
		return r.goexits.Load()
	default:
		return 0
	}
}

// Evicted returns how many faults have dropped out of the history.
func (r *Recorder) Evicted() int64 {
	return r.evicted.Load()
}

// Recent returns the retained faults, oldest first.
func (r *Recorder) Recent() []Fault {
	return r.recent.Values()
}

// ForTask returns the retained fault for a task ID.
func (r *Recorder) ForTask(taskID string) (Fault, bool) {
	return r.recent.Peek(taskID)
}

// Reset clears history and counters.
func (r *Recorder) Reset() {
	r.recent.Purge()
	r.total.Store(0)
	r.panics.Store(0)
	r.goexits.Store(0)
	r.evicted.Store(0)
}
