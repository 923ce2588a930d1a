package fault

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_EvictsOldestButKeepsCounting(t *testing.T) {
	rec := NewRecorder(3)

	for i := 0; i < 5; i++ {
		rec.Report(Fault{TaskID: fmt.Sprintf("t%d", i), Kind: KindPanic})
	}

	assert.Equal(t, int64(5), rec.Count())
	assert.Equal(t, int64(2), rec.Evicted())

	recent := rec.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "t2", recent[0].TaskID)
	assert.Equal(t, "t4", recent[2].TaskID)

	_, ok := rec.ForTask("t0")
	assert.False(t, ok)
}

func TestRecorder_ConcurrentReports(t *testing.T) {
	rec := NewRecorder(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := KindPanic
			if i%4 == 0 {
				kind = KindGoexit
			}
			rec.Report(Fault{TaskID: fmt.Sprintf("t%d", i), Kind: kind})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(100), rec.Count())
	assert.Equal(t, int64(25), rec.CountByKind(KindGoexit))
	assert.Equal(t, int64(75), rec.CountByKind(KindPanic))
}

func TestRecorder_Reset(t *testing.T) {
	rec := NewRecorder(2)
	rec.Report(Fault{TaskID: "a", Kind: KindPanic})
	rec.Report(Fault{TaskID: "b", Kind: KindPanic})
	rec.Report(Fault{TaskID: "c", Kind: KindPanic})

	rec.Reset()

	assert.Zero(t, rec.Count())
	assert.Zero(t, rec.Evicted())
	assert.Empty(t, rec.Recent())
}
