package meshindex

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixStride(t *testing.T) {
	require.Equal(t, []int{1}, PrefixStride(nil))
	require.Equal(t, []int{1, 2, 6, 24}, PrefixStride([]int{2, 3, 4}))
	require.Equal(t, []int{1, 3, 3, 6}, PrefixStride([]int{3, 1, 2}))
}

func TestSize(t *testing.T) {
	assert.Equal(t, 1, Size(nil))
	assert.Equal(t, 24, Size([]int{2, 3, 4}))
	assert.Equal(t, 2, Size([]int{1, 2, 1}))
}

func TestDecompose(t *testing.T) {
	shape := []int{2, 3, 4}
	assert.Equal(t, []int{0, 0, 0}, Decompose(0, shape, nil))
	assert.Equal(t, []int{1, 0, 0}, Decompose(1, shape, nil))
	assert.Equal(t, []int{0, 1, 0}, Decompose(2, shape, nil))
	assert.Equal(t, []int{1, 2, 3}, Decompose(23, shape, nil))

	// Decompose and InnerProduct with the same strides are inverses.
	stride := PrefixStride(shape)
	for index := range Size(shape) {
		coords := Decompose(index, shape, stride)
		require.Equal(t, index, InnerProduct(coords, stride))
	}

	// Explicit strides, e.g. taken from a larger mesh.
	assert.Equal(t, []int{1, 2}, Decompose(10, []int{2, 3}, []int{4, 8}))
}

func TestInnerProduct(t *testing.T) {
	assert.Equal(t, 0, InnerProduct(nil, nil))
	assert.Equal(t, 1*1+2*2+3*6, InnerProduct([]int{1, 2, 3}, []int{1, 2, 6, 24}))
}

func TestSplit(t *testing.T) {
	masked, unmasked := Split([]int{10, 20, 30, 40}, []bool{true, false, true})
	assert.Equal(t, []int{10, 30}, masked)
	assert.Equal(t, []int{20}, unmasked)
}

func TestMaskedGroups(t *testing.T) {
	// tp=2, cp=1, dp=2, pp=2 in "tp-cp-dp-pp" order.
	shape := []int{2, 1, 2, 2}

	t.Run("fastest axis", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{true, false, false, false})
		require.Equal(t, [][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, groups)
	})

	t.Run("slowest axis", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{false, false, false, true})
		require.Equal(t, [][]int{{0, 4}, {1, 5}, {2, 6}, {3, 7}}, groups)
	})

	t.Run("middle axis", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{false, false, true, false})
		require.Equal(t, [][]int{{0, 2}, {1, 3}, {4, 6}, {5, 7}}, groups)
	})

	t.Run("size 1 axis", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{false, true, false, false})
		require.Len(t, groups, 8)
		for i, group := range groups {
			require.Equal(t, []int{i}, group)
		}
	})

	t.Run("composite", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{true, false, false, true})
		require.Equal(t, [][]int{{0, 1, 4, 5}, {2, 3, 6, 7}}, groups)
	})

	t.Run("all axes", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{true, true, true, true})
		require.Equal(t, [][]int{{0, 1, 2, 3, 4, 5, 6, 7}}, groups)
	})

	t.Run("no axes", func(t *testing.T) {
		groups := MaskedGroupsSlice(shape, []bool{false, false, false, false})
		require.Len(t, groups, 8)
	})

	t.Run("early stop", func(t *testing.T) {
		var count int
		for groupIdx, group := range MaskedGroups(shape, []bool{true, false, false, false}) {
			require.Equal(t, count, groupIdx)
			require.Len(t, group, 2)
			count++
			if count == 2 {
				break
			}
		}
		require.Equal(t, 2, count)
	})

	t.Run("mismatched mask", func(t *testing.T) {
		require.Panics(t, func() { MaskedGroups(shape, []bool{true}) })
	})
}

func TestMaskedGroupsPartition(t *testing.T) {
	shape := []int{2, 3, 1, 4, 2}
	size := Size(shape)
	for maskBits := range 1 << len(shape) {
		mask := make([]bool, len(shape))
		groupSize := 1
		for axis := range shape {
			if maskBits&(1<<axis) != 0 {
				mask[axis] = true
				groupSize *= shape[axis]
			}
		}
		groups := MaskedGroupsSlice(shape, mask)
		require.Len(t, groups, size/groupSize, "mask=%v", mask)
		var all []int
		for _, group := range groups {
			require.Len(t, group, groupSize)
			require.True(t, slices.IsSorted(group), "members should be in increasing order, got %v", group)
			all = append(all, group...)
		}
		slices.Sort(all)
		for rank, got := range all {
			require.Equal(t, rank, got, "mask=%v: ranks are not a partition", mask)
		}
	}
}
