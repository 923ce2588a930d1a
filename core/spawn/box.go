package spawn

import (
	"sync/atomic"
)

type boxState int32

const (
	boxFilled boxState = iota
	boxClaimed
	boxReleased
)

// box is the heap copy of a Task handed from the spawning thread to the
// spawned one. It is filled once before the thread starts, claimed once by
// that thread, and released exactly once by whoever owns it last.
type box struct {
	id     string
	task   Task
	state  atomic.Int32
	ledger *Ledger
}

// claim hands the task to the spawned thread. It succeeds only once.
func (b *box) claim() (Task, bool) {
	if !b.state.CompareAndSwap(int32(boxFilled), int32(boxClaimed)) {
		return Task{}, false
	}
	return b.task, true
}

// release frees the box. Only the first call has any effect.
func (b *box) release() bool {
	for {
		s := b.state.Load()
		if boxState(s) == boxReleased {
			b.ledger.doubleRelease.Add(1)
			return false
		}
		if b.state.CompareAndSwap(s, int32(boxReleased)) {
			b.task = Task{}
			b.ledger.released.Add(1)
			return true
		}
	}
}

// Ledger counts boxes so leaks are observable. Live returns to its baseline
// once every spawned task has terminated.
type Ledger struct {
	allocated     atomic.Int64
	released      atomic.Int64
	doubleRelease atomic.Int64
}

func (l *Ledger) newBox(id string, task Task) *box {
	l.allocated.Add(1)
	b := &box{id: id, task: task, ledger: l}
	b.state.Store(int32(boxFilled))
	return b
}

// LedgerSnapshot is a point-in-time copy of a Ledger.
type LedgerSnapshot struct {
	Allocated      int64
	Released       int64
	Live           int64
	DoubleReleases int64
}

// Snapshot returns the current counts. Released is read before Allocated, so
// a concurrent Spawn can only make Live look larger, never negative.
func (l *Ledger) Snapshot() LedgerSnapshot {
	released := l.released.Load()
	allocated := l.allocated.Load()
	return LedgerSnapshot{
		Allocated:      allocated,
		Released:       released,
		Live:           allocated - released,
		DoubleReleases: l.doubleRelease.Load(),
	}
}

// Live returns the number of boxes not yet released.
func (l *Ledger) Live() int64 {
	return l.Snapshot().Live
}
