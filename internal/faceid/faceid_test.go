package faceid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorIsMonotonic(t *testing.T) {
	var a Allocator
	assert.Equal(t, int64(1), a.Next())
	assert.Equal(t, int64(2), a.Next())
	assert.Equal(t, int64(2), a.Last())

	resumed := NewAllocator(100)
	assert.Equal(t, int64(101), resumed.Next())
}

func TestAllocatorConcurrentUnique(t *testing.T) {
	var a Allocator
	const workers, perWorker = 8, 250

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := a.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestRegistryStableWhileTracked(t *testing.T) {
	r := NewRegistry(nil)
	first := r.Assign("track-a")
	assert.Equal(t, first, r.Assign("track-a"))

	id, ok := r.Lookup("track-a")
	require.True(t, ok)
	assert.Equal(t, first, id)
}

func TestRegistryNeverReusesRetiredIDs(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Assign("a")
	b := r.Assign("b")
	assert.NotEqual(t, a, b)

	assert.True(t, r.Retire("a"))
	assert.False(t, r.Retire("a"))

	again := r.Assign("a")
	assert.NotEqual(t, a, again)
	assert.Greater(t, again, b)
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(NewAllocator(10))
	r.Assign("x")
	r.Assign("y")
	r.Assign("z")

	retired := r.Sweep(map[string]struct{}{"y": {}})
	assert.Equal(t, 2, retired)
	assert.Equal(t, 1, r.Active())

	_, ok := r.Lookup("x")
	assert.False(t, ok)
}

func TestRegistryFreshIsUnbound(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Assign("a")
	f := r.Fresh()
	assert.Greater(t, f, a)
	assert.Equal(t, 1, r.Active())
	assert.Greater(t, r.Assign("b"), f)
}
