// Package meshindex implements mixed-radix index arithmetic over the axes of a rank mesh.
//
// A shape is an ordered list of axis sizes where the first axis varies fastest: it has stride 1.
// This is the opposite of the row-major convention used by distributed.DeviceMesh, and it is the
// convention used to describe parallelism orders such as "tp-cp-ep-dp-pp".
//
// All functions assume the axis sizes are positive; this is not checked.
package meshindex

import (
	"iter"
	"slices"
)

// PrefixStride returns the stride table of shape: it has len(shape)+1 elements, with stride[0] = 1
// and stride[i+1] = stride[i] * shape[i].
//
// stride[i] is the number of linear index units swept by one increment of axis i, and the last
// element is the total size of the shape.
func PrefixStride(shape []int) []int {
	stride := make([]int, len(shape)+1)
	stride[0] = 1
	for i, dim := range shape {
		stride[i+1] = stride[i] * dim
	}
	return stride
}

// Size returns the number of elements of the shape. The empty shape has size 1.
func Size(shape []int) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}

// Decompose maps a flat index into its per-axis coordinates: coords[i] = (index / stride[i]) % shape[i].
//
// If stride is nil, PrefixStride(shape) is used. A non-canonical stride can be given, as long as
// it has at least len(shape) elements.
func Decompose(index int, shape, stride []int) []int {
	if stride == nil {
		stride = PrefixStride(shape)
	}
	coords := make([]int, len(shape))
	decomposeInto(coords, index, shape, stride)
	return coords
}

func decomposeInto(coords []int, index int, shape, stride []int) {
	for i, dim := range shape {
		coords[i] = (index / stride[i]) % dim
	}
}

// InnerProduct returns the sum of coords[i]*strides[i].
//
// Used with the global strides of a mesh it recombines coordinates, expressed over any subset of
// the axes, into the flat offset they contribute.
func InnerProduct(coords, strides []int) int {
	var sum int
	for i, c := range coords {
		sum += c * strides[i]
	}
	return sum
}

// Split separates values into the entries where mask is true and the ones where it is false,
// preserving their relative order. Values may be longer than mask: extra values are ignored.
func Split(values []int, mask []bool) (masked, unmasked []int) {
	masked = make([]int, 0, len(mask))
	unmasked = make([]int, 0, len(mask))
	for i, m := range mask {
		if m {
			masked = append(masked, values[i])
		} else {
			unmasked = append(unmasked, values[i])
		}
	}
	return
}

// MaskedGroups iterates over the partition of the flat indices of shape into groups that share
// the same coordinates on every unmasked axis, and vary over the masked axes.
//
// It yields the group index and the flat indices of its members. Group indices enumerate the
// unmasked coordinates, with the first unmasked axis varying fastest; members are ordered the same
// way over the masked axes.
//
// The yielded slice is freshly allocated for each group and owned by the caller.
//
// It panics if len(mask) != len(shape).
func MaskedGroups(shape []int, mask []bool) iter.Seq2[int, []int] {
	if len(mask) != len(shape) {
		panic("meshindex.MaskedGroups: mask and shape must have the same length")
	}
	shape = slices.Clone(shape)
	mask = slices.Clone(mask)
	return func(yield func(int, []int) bool) {
		globalStride := PrefixStride(shape)
		maskedShape, unmaskedShape := Split(shape, mask)
		maskedStride, unmaskedStride := Split(globalStride, mask)
		groupSize := Size(maskedShape)
		numGroups := Size(unmaskedShape)

		// Strides to decompose the in-group and group indices.
		maskedLocal := PrefixStride(maskedShape)
		unmaskedLocal := PrefixStride(unmaskedShape)
		maskedCoords := make([]int, len(maskedShape))
		unmaskedCoords := make([]int, len(unmaskedShape))
		for groupIdx := range numGroups {
			decomposeInto(unmaskedCoords, groupIdx, unmaskedShape, unmaskedLocal)
			base := InnerProduct(unmaskedCoords, unmaskedStride)
			group := make([]int, groupSize)
			for posInGroup := range groupSize {
				decomposeInto(maskedCoords, posInGroup, maskedShape, maskedLocal)
				group[posInGroup] = base + InnerProduct(maskedCoords, maskedStride)
			}
			if !yield(groupIdx, group) {
				return
			}
		}
	}
}

// MaskedGroupsSlice returns all the groups yielded by MaskedGroups.
func MaskedGroupsSlice(shape []int, mask []bool) [][]int {
	seq := MaskedGroups(shape, mask)
	maskedShape, _ := Split(shape, mask)
	groups := make([][]int, 0, Size(shape)/Size(maskedShape))
	for _, group := range seq {
		groups = append(groups, group)
	}
	return groups
}
