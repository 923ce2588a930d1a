//go:build linux

package osthread

import (
	"math"

	"golang.org/x/sys/unix"
)

// ID returns the kernel thread ID of the calling thread. The value is only
// stable while the calling goroutine is locked to its thread.
func ID() int {
	return unix.Gettid()
}

// Limit returns the soft RLIMIT_NPROC for the process. On Linux every thread
// counts against it, so it bounds how many threads can be created.
func Limit() int64 {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NPROC, &rl); err != nil {
		return Unlimited
	}
	if rl.Cur == unix.RLIM_INFINITY || rl.Cur > math.MaxInt64 {
		return Unlimited
	}
	return int64(rl.Cur)
}
