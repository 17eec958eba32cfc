package distributed

import (
	"iter"

	"github.com/gomlx/rankmesh/pkg/core/meshindex"
	"github.com/pkg/errors"
)

// GroupsFor returns the rank groups for the axes given as a hyphen-joined list of tokens, e.g. "tp"
// or "dp-ep".
//
// See GroupsForAxes for details.
func (t *RankTopology) GroupsFor(tokens string, independentExpert bool) ([][]int, error) {
	axes, err := ParseAxes(tokens)
	if err != nil {
		return nil, asQueryError(err)
	}
	return t.GroupsForAxes(independentExpert, axes...)
}

// GroupsForAxes partitions all ranks into groups whose members have the same coordinates on every
// axis not listed, and vary over the listed axes. These are the ranks that take part in a
// collective operation over those axes, e.g. the all-reduce of a tensor-parallel layer.
//
// Every group has the product of the sizes of the listed axes as members, ordered by increasing
// rank. Groups are ordered by their coordinates on the remaining axes, the first one in the order
// varying fastest.
//
// If independentExpert is false, ep is folded into dp and can't be queried; otherwise dp refers to
// the residual dp/ep axis. An axis not present in the selected order returns an
// *UnknownDimensionError.
func (t *RankTopology) GroupsForAxes(independentExpert bool, axes ...Axis) ([][]int, error) {
	seq, numGroups, err := t.groupSeq(independentExpert, axes)
	if err != nil {
		return nil, err
	}
	groups := make([][]int, 0, numGroups)
	for _, group := range seq {
		groups = append(groups, group)
	}
	return groups, nil
}

// GroupSeq is the lazy version of GroupsForAxes: it yields the group index and its ranks, one group
// at a time. Each yielded slice is owned by the caller.
func (t *RankTopology) GroupSeq(independentExpert bool, axes ...Axis) (iter.Seq2[int, []int], error) {
	seq, _, err := t.groupSeq(independentExpert, axes)
	return seq, err
}

func (t *RankTopology) groupSeq(independentExpert bool, axes []Axis) (
	seq iter.Seq2[int, []int], numGroups int, err error) {
	mask, err := t.mask(independentExpert, axes)
	if err != nil {
		return nil, 0, err
	}
	_, sizes := t.active(independentExpert)
	groupSize := 1
	for i, m := range mask {
		if m {
			groupSize *= sizes[i]
		}
	}
	numGroups = t.worldSize / groupSize
	offset := t.rankOffset
	seq = func(yield func(int, []int) bool) {
		for groupIdx, group := range meshindex.MaskedGroups(sizes, mask) {
			if offset != 0 {
				for i := range group {
					group[i] += offset
				}
			}
			if !yield(groupIdx, group) {
				return
			}
		}
	}
	return seq, numGroups, nil
}

// mask returns which axes of the active order are selected.
func (t *RankTopology) mask(independentExpert bool, axes []Axis) ([]bool, error) {
	order, _ := t.active(independentExpert)
	if len(axes) == 0 {
		return nil, &UnknownDimensionError{Order: order.String(), Query: true}
	}
	mask := make([]bool, len(order))
	for _, axis := range axes {
		idx := order.Index(axis)
		if idx < 0 {
			return nil, &UnknownDimensionError{Token: axis.String(), Order: order.String(), Query: true}
		}
		mask[idx] = true
	}
	return mask, nil
}

// GroupIndexOf returns, for each rank, the index of its group as returned by GroupsForAxes.
//
// Entry i of the result corresponds to the global rank i+RankOffset().
func (t *RankTopology) GroupIndexOf(independentExpert bool, axes ...Axis) ([]int, error) {
	seq, _, err := t.groupSeq(independentExpert, axes)
	if err != nil {
		return nil, err
	}
	index := make([]int, t.worldSize)
	for groupIdx, group := range seq {
		for _, rank := range group {
			index[rank-t.rankOffset] = groupIdx
		}
	}
	return index, nil
}

// Coordinates returns the coordinate of the global rank on each axis of Order(independentExpert).
func (t *RankTopology) Coordinates(rank int, independentExpert bool) (map[Axis]int, error) {
	local := rank - t.rankOffset
	if local < 0 || local >= t.worldSize {
		return nil, errors.Wrapf(ErrQuery, "rank %d is out of range [%d, %d)",
			rank, t.rankOffset, t.rankOffset+t.worldSize)
	}
	order, sizes := t.active(independentExpert)
	coords := meshindex.Decompose(local, sizes, nil)
	byAxis := make(map[Axis]int, len(order))
	for i, axis := range order {
		byAxis[axis] = coords[i]
	}
	return byAxis, nil
}

// ParallelismInfo summarizes the layout of the groups of one (or more) axes.
type ParallelismInfo struct {
	// Axes queried.
	Axes []Axis

	// Size of each group.
	Size int

	// NumGroups is the number of groups: WorldSize / Size.
	NumGroups int

	// Stride between consecutive members of a group. It is 1 if groups have a single member.
	Stride int

	// GroupStride is the distance between the first ranks of the first two groups. It is 1 if groups
	// have a single member, and 0 if there is only one group.
	GroupStride int
}

// Info returns the ParallelismInfo of the groups of the given axes.
func (t *RankTopology) Info(independentExpert bool, axes ...Axis) (ParallelismInfo, error) {
	seq, numGroups, err := t.groupSeq(independentExpert, axes)
	if err != nil {
		return ParallelismInfo{}, err
	}
	info := ParallelismInfo{
		Axes:        append([]Axis(nil), axes...),
		NumGroups:   numGroups,
		Stride:      1,
		GroupStride: 1,
	}
	var first []int
	for groupIdx, group := range seq {
		if groupIdx == 0 {
			first = group
			info.Size = len(group)
			if info.Size <= 1 {
				break
			}
			info.Stride = group[1] - group[0]
			info.GroupStride = 0
			continue
		}
		info.GroupStride = group[0] - first[0]
		break
	}
	return info, nil
}

// InfoAll returns the ParallelismInfo of each axis of Order(independentExpert), in order.
func (t *RankTopology) InfoAll(independentExpert bool) []ParallelismInfo {
	order, _ := t.active(independentExpert)
	infos := make([]ParallelismInfo, 0, len(order))
	for _, axis := range order {
		info, err := t.Info(independentExpert, axis)
		if err != nil {
			// Axes of the active order are always valid.
			panic(errors.WithMessagef(err, "RankTopology.InfoAll(%v)", independentExpert))
		}
		infos = append(infos, info)
	}
	return infos
}
