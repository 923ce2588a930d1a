package spawn

import (
	"runtime"
)

// ThreadStarter creates the thread a task runs on. Start either arranges for
// run to be called exactly once on a new thread and returns nil, or returns
// an error and never calls run.
type ThreadStarter interface {
	Start(run func()) error
}

// StarterFunc adapts a function to ThreadStarter.
type StarterFunc func(run func()) error

func (f StarterFunc) Start(run func()) error {
	return f(run)
}

// OSThreadStarter runs each task on its own OS thread. The goroutine locks
// itself to its thread and never unlocks, so the runtime terminates the
// thread when the goroutine returns. Nothing has to join it.
type OSThreadStarter struct {
	// Shared disables thread locking; tasks then run on goroutines that share
	// the runtime's thread pool.
	Shared bool
}

func (s OSThreadStarter) Start(run func()) error {
	go func() {
		if !s.Shared {
			runtime.LockOSThread()
		}
		run()
	}()
	return nil
}
