package profiler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_Merge(t *testing.T) {
	a := NewAggregator()

	a.Merge("parse", 300)
	a.Merge("read", 100)
	a.Merge("parse", 50)

	e, ok := a.Lookup("parse")
	require.True(t, ok)
	assert.Equal(t, Entry{Name: "parse", Count: 2, Cycles: 350}, e)

	_, ok = a.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, a.Len())
}

func TestAggregator_ZeroCycles(t *testing.T) {
	a := NewAggregator()
	a.Merge("instant", 0)

	e, ok := a.Lookup("instant")
	require.True(t, ok)
	assert.Equal(t, uint64(1), e.Count)
	assert.Equal(t, uint64(0), e.Cycles)
}

func TestAggregator_SnapshotOrderedByName(t *testing.T) {
	a := NewAggregator()
	a.Merge("zeta", 1)
	a.Merge("alpha", 2)
	a.Merge("mid", 3)

	snap := a.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "alpha", snap[0].Name)
	assert.Equal(t, "mid", snap[1].Name)
	assert.Equal(t, "zeta", snap[2].Name)

	snap[0].Cycles = 1000
	e, _ := a.Lookup("alpha")
	assert.Equal(t, uint64(2), e.Cycles, "snapshot must not alias entries")
}

func TestAggregator_ConcurrentMerge(t *testing.T) {
	a := NewAggregator()

	const workers = 8
	const merges = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < merges; i++ {
				a.Merge("shared", 2)
				a.Merge(fmt.Sprintf("worker-%d", w), 1)
			}
		}(w)
	}
	wg.Wait()

	shared, ok := a.Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, uint64(workers*merges), shared.Count)
	assert.Equal(t, uint64(2*workers*merges), shared.Cycles)
	assert.Equal(t, workers+1, a.Len())
}
