package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizingBelowThresholdIsSingleWorker(t *testing.T) {
	chunkSize, workers := sizing(999, Options{})
	assert.Equal(t, 999, chunkSize)
	assert.Equal(t, 1, workers)
}

func TestSizingRespectsExplicitOverrides(t *testing.T) {
	chunkSize, workers := sizing(50000, Options{ChunkSize: 500, Workers: 4})
	assert.Equal(t, 500, chunkSize)
	assert.Equal(t, 4, workers)
}

func TestSizingCapsChunkSizeAtTenThousand(t *testing.T) {
	chunkSize, _ := sizing(10_000_000, Options{})
	assert.LessOrEqual(t, chunkSize, 10000)
}

func TestMapPreservesOrder(t *testing.T) {
	items := make([]int, 5000)
	for i := range items {
		items[i] = i
	}
	out, err := Map(context.Background(), items, func(chunk []int) []int {
		doubled := make([]int, len(chunk))
		for i, v := range chunk {
			doubled[i] = v * 2
		}
		return doubled
	}, Options{})
	require.NoError(t, err)
	require.Len(t, out, len(items))
	for i, v := range out {
		assert.Equal(t, i*2, v)
	}
}

func TestReduceCombinesAllChunks(t *testing.T) {
	items := make([]int, 3000)
	for i := range items {
		items[i] = 1
	}
	partials, err := Reduce(context.Background(), items, func(chunk []int) int {
		sum := 0
		for _, v := range chunk {
			sum += v
		}
		return sum
	}, Options{ChunkSize: 500})
	require.NoError(t, err)

	total := 0
	for _, p := range partials {
		total += p
	}
	assert.Equal(t, len(items), total)
}

func TestMapHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]int, 5000)
	_, err := Map(ctx, items, func(chunk []int) []int { return chunk }, Options{})
	assert.Error(t, err)
}

func TestMapEmptyInput(t *testing.T) {
	out, err := Map(context.Background(), []int{}, func(chunk []int) []int { return chunk }, Options{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMapReportsProgress(t *testing.T) {
	items := make([]int, 4000)
	var lastDone, lastTotal int
	_, err := Map(context.Background(), items, func(chunk []int) []int { return chunk }, Options{
		ChunkSize: 1000,
		OnProgress: func(done, total int) {
			lastDone, lastTotal = done, total
		},
	})
	require.NoError(t, err)
	assert.Equal(t, len(items), lastDone)
	assert.Equal(t, len(items), lastTotal)
}
