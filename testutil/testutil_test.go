package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecords(t *testing.T) {
	rng := NewRNG(4711)

	recs := Records[int32](rng, 20, 3, 9, 100)

	require.Len(t, recs, 20)
	for _, rec := range recs {
		assert.GreaterOrEqual(t, len(rec), 3)
		assert.LessOrEqual(t, len(rec), 9)
		for _, v := range rec {
			assert.GreaterOrEqual(t, v, int32(0))
			assert.Less(t, v, int32(100))
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(7)
	a := Tokens[uint16](rng, 32, 1000)
	rng.Reset()
	b := Tokens[uint16](rng, 32, 1000)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(7), rng.Seed())
}

func TestZipfTokens(t *testing.T) {
	rng := NewRNG(1)

	toks := ZipfTokens[int64](rng, 5000, 50, 1.2)

	counts := make(map[int64]int)
	for _, v := range toks {
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(50))
		counts[v]++
	}
	assert.Greater(t, counts[0], counts[49])
}

func TestNeighborRows(t *testing.T) {
	rng := NewRNG(3)

	rows := rng.NeighborRows(10, 4, 20)

	require.Len(t, rows, 10)
	for _, row := range rows {
		require.Len(t, row, 4)
		seen := make(map[int64]bool)
		for _, id := range row {
			assert.False(t, seen[id])
			seen[id] = true
			assert.Less(t, id, int64(20))
		}
	}
}

func TestArange(t *testing.T) {
	assert.Equal(t, []int64{0, 2, 4}, Arange[int64](0, 6, 2))
	assert.Empty(t, Arange[int8](5, 5, 1))
	assert.Equal(t, []int{1, 2, 9, 9}, Concat([]int{1, 2}, Repeat(9, 2)))
}
