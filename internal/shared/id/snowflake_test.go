package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratorValidatesShardBounds(t *testing.T) {
	_, err := NewGenerator(16, 0)
	assert.Error(t, err)

	_, err = NewGenerator(-1, 0)
	assert.Error(t, err)

	_, err = NewGenerator(0, 4)
	assert.Error(t, err)

	gen, err := NewGenerator(15, 3)
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestNextIsStrictlyIncreasing(t *testing.T) {
	gen, err := NewGenerator(1, 1)
	require.NoError(t, err)

	var last uint64
	for i := 0; i < 1000; i++ {
		id, err := gen.Next()
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
}

func TestNextStaysWithin53Bits(t *testing.T) {
	gen, err := NewGenerator(15, 3)
	require.NoError(t, err)

	id, err := gen.Next()
	require.NoError(t, err)
	assert.Less(t, id, uint64(1)<<53)
}

func TestNextEmbedsShardIdentity(t *testing.T) {
	gen, err := NewGenerator(5, 2)
	require.NoError(t, err)

	id, err := gen.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), (id>>serverIDShift)&maxServerID)
	assert.Equal(t, uint64(2), (id>>datacenterIDShift)&maxDatacenterID)
}

func TestNextRejectsBackwardsClock(t *testing.T) {
	gen, err := NewGenerator(0, 0)
	require.NoError(t, err)

	ts := int64(1_000_000)
	gen.now = func() int64 { return ts }
	_, err = gen.Next()
	require.NoError(t, err)

	ts = 999_999
	_, err = gen.Next()
	require.Error(t, err)
	var backwards *ErrClockBackwards
	assert.ErrorAs(t, err, &backwards)
}

func TestNextWaitsOutSequenceWrap(t *testing.T) {
	gen, err := NewGenerator(0, 0)
	require.NoError(t, err)

	ts := int64(1_000_000)
	calls := 0
	gen.now = func() int64 {
		calls++
		// Advance the clock only after the wrap starts polling.
		if calls > 70 {
			ts = 1_000_001
		}
		return ts
	}

	seen := make(map[uint64]struct{})
	for i := 0; i <= sequenceMask+1; i++ {
		id, err := gen.Next()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestNextConcurrentUnique(t *testing.T) {
	gen, err := NewGenerator(0, 0)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[uint64]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := gen.Next()
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestLevelSinceIsPositive(t *testing.T) {
	assert.Positive(t, LevelSince())
}
