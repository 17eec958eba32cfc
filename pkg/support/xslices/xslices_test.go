package xslices

import (
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasics(t *testing.T) {
	assert.Equal(t, 3, Last([]int{1, 2, 3}))
	assert.Equal(t, []int{3, 4}, Iota(3, 2))
	assert.Equal(t, 24, Product([]int{2, 3, 4}))
	assert.Equal(t, 1, Product[int](nil))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 0, "a": 1, "b": 2}))
}

func TestPermutations(t *testing.T) {
	var got [][]string
	for perm := range Permutations([]string{"a", "b", "c"}) {
		got = append(got, slices.Clone(perm))
	}
	require.Equal(t, [][]string{
		{"a", "b", "c"},
		{"a", "c", "b"},
		{"b", "a", "c"},
		{"b", "c", "a"},
		{"c", "a", "b"},
		{"c", "b", "a"},
	}, got)

	var count int
	for range Permutations(Iota(0, 5)) {
		count++
	}
	assert.Equal(t, 120, count)

	count = 0
	for range Permutations[int](nil) {
		count++
	}
	assert.Equal(t, 1, count)
}
