//go:build !linux

package osthread

// ID returns 0 on platforms without a cheap kernel thread ID.
func ID() int {
	return 0
}

// Limit returns Unlimited on platforms where the thread ceiling is not
// exposed through rlimits.
func Limit() int64 {
	return Unlimited
}
