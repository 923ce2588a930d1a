// Package osthread exposes the few OS-level thread facts the launcher needs:
// the kernel ID of the calling thread and the ceiling on threads the process
// may create.
package osthread

import (
	"math"
	"runtime/debug"
	"sync"
)

// Unlimited is returned by Limit when the environment imposes no ceiling
// the process can observe.
const Unlimited int64 = 0

// Reserved is the number of threads kept back for the Go runtime itself
// (sysmon, GC workers, netpoller, threads blocked in syscalls).
const Reserved int64 = 64

// runtimeMaxMu serializes the read-and-restore in RuntimeMax so two readers
// never restore each other's probe value.
var runtimeMaxMu sync.Mutex

// RuntimeMax returns the Go runtime's thread limit (debug.SetMaxThreads).
// Exceeding it aborts the process, so it always bounds Ceiling. The limit is
// read on every call because the program may change it at any time.
func RuntimeMax() int64 {
	runtimeMaxMu.Lock()
	defer runtimeMaxMu.Unlock()
	// SetMaxThreads is the only way to read the limit. The probe value can
	// never be below the live thread count, so the call cannot abort.
	prev := debug.SetMaxThreads(math.MaxInt32)
	debug.SetMaxThreads(prev)
	return int64(prev)
}

// Ceiling returns the number of threads available to spawned tasks: the
// smaller of Limit and RuntimeMax, minus Reserved.
func Ceiling() int64 {
	ceiling := RuntimeMax()
	if limit := Limit(); limit != Unlimited && limit < ceiling {
		ceiling = limit
	}
	if ceiling <= Reserved {
		return 1
	}
	return ceiling - Reserved
}
