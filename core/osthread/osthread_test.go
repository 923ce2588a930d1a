package osthread

import (
	"runtime"
	"runtime/debug"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCeiling_BoundedByRuntimeAndRlimit(t *testing.T) {
	ceiling := Ceiling()

	assert.GreaterOrEqual(t, ceiling, int64(1))
	assert.Less(t, ceiling, RuntimeMax())
	if limit := Limit(); limit != Unlimited {
		assert.LessOrEqual(t, ceiling, limit)
	}
}

func TestRuntimeMax_MatchesDefault(t *testing.T) {
	assert.Positive(t, RuntimeMax())
	assert.Equal(t, RuntimeMax(), RuntimeMax(), "reading the limit leaves it unchanged")
}

func TestRuntimeMax_TracksLimitChanges(t *testing.T) {
	prev := debug.SetMaxThreads(5000)
	defer debug.SetMaxThreads(prev)

	assert.Equal(t, int64(5000), RuntimeMax())
	if limit := Limit(); limit == Unlimited || limit > 5000 {
		assert.Equal(t, int64(5000)-Reserved, Ceiling())
	}

	debug.SetMaxThreads(20000)
	assert.Equal(t, int64(20000), RuntimeMax())
	assert.Equal(t, 20000, debug.SetMaxThreads(20000), "probe value must be restored")
}

// TestRuntimeMax_AboveDefaultThreadCount reads the limit while more threads
// are alive than the default limit of 10000 allows.
func TestRuntimeMax_AboveDefaultThreadCount(t *testing.T) {
	if testing.Short() {
		t.Skip("starts over 10000 OS threads")
	}
	if raceEnabled {
		t.Skip("the race detector caps live goroutines at 8128")
	}
	if limit := Limit(); limit != Unlimited && limit < 12000 {
		t.Skipf("RLIMIT_NPROC %d too low", limit)
	}
	// The limit is left raised: the parked threads exit asynchronously and
	// lowering it below the live count would abort the test binary.
	debug.SetMaxThreads(20000)

	const n = 10050
	var started sync.WaitGroup
	release := make(chan struct{})
	started.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			runtime.LockOSThread()
			started.Done()
			<-release
		}()
	}
	started.Wait()
	defer close(release)

	assert.Equal(t, int64(20000), RuntimeMax())
}

func TestID_DistinctAcrossLockedThreads(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("thread IDs are only reported on linux")
	}

	ids := make(chan int, 2)
	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			runtime.LockOSThread()
			ids <- ID()
			<-release
		}()
	}

	first, second := <-ids, <-ids
	close(release)

	assert.NotZero(t, first)
	assert.NotZero(t, second)
	assert.NotEqual(t, first, second, "locked goroutines must run on different threads")
}
