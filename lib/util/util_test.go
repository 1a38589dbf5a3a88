package util

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	seed := GenerateSeed()
	assert.Equal(t, HashString("key", seed), HashString("key", seed))
	assert.NotEqual(t, HashString("key", seed), HashString("key2", seed))
	assert.NotEqual(t, HashString("key", 1), HashString("key", 2))
}

func TestShardIndex(t *testing.T) {
	const shards = 8
	seed := GenerateSeed()
	sizes := make([]float64, shards)

	for i := 0; i < 10_000; i++ {
		idx := ShardIndex(HashString("key-"+strconv.Itoa(i), seed), shards)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, shards)
		sizes[idx]++
	}

	dist := NewDistributionStats(sizes)
	assert.Equal(t, float64(10_000)/shards, dist.Mean)
	assert.Greater(t, dist.Quality, 0.8)
}

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{}, NewStats(nil))

	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 2.0, s.StdDeviation)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, 2.0/9.0, s.MinMaxRatio, 1e-12)
}

func TestNewDistributionStats(t *testing.T) {
	even := NewDistributionStats([]float64{10, 10, 10, 10})
	assert.Equal(t, 1.0, even.Quality)

	skewed := NewDistributionStats([]float64{40, 0, 0, 0})
	assert.Less(t, skewed.Quality, 0.5)

	empty := NewDistributionStats([]float64{0, 0})
	assert.Equal(t, 1.0, empty.MinMaxRatio)
}
