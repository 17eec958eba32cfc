// Package distributed defines the following objects related to the layout of ranks of a distributed job:
//
// - RankTopology: the ranks of a training job laid out over the parallelism axes (tp, ep, dp, pp, cp),
//   and the groups of ranks that communicate over any subset of them.
// - DeviceMesh: expresses the topology of a set of devices, in terms of axis and their sizes.
// - Replica groups: the groups of a collective operation, formatted and validated for StableHLO.
package distributed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/rankmesh/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// RankTopology describes how the ranks of a distributed training job are laid out over the
// tensor, expert, data, pipeline and context parallelism axes, and answers which ranks share a
// communication group for any subset of those axes.
//
// The expert axis can be seen in two ways:
//
//   - Folded into the data axis (independentExpert == false): the mesh has the axes tp, dp, pp, cp
//     and ep is not queryable.
//   - As an independent axis (independentExpert == true): the data axis is split into ep (experts)
//     and the residual dp/ep, and both can be queried.
//
// A RankTopology is immutable once created and safe for concurrent use.
type RankTopology struct {
	sizes      Sizes
	rankOffset int
	worldSize  int

	// orderWithEp includes the ep axis, and the matching sizesWithEp has dp/ep for the dp axis.
	orderWithEp Order
	sizesWithEp []int

	// orderWithoutEp doesn't include the ep axis, and the dp axis has its full size.
	orderWithoutEp Order
	sizesWithoutEp []int
}

// Option configures optional parameters of NewRankTopology.
type Option func(*topologyOptions)

type topologyOptions struct {
	rankOffset int
}

// WithRankOffset adds offset to every rank id returned by the topology. It is used to compose
// topologies that don't start at global rank 0. It must be non-negative.
func WithRankOffset(offset int) Option {
	return func(o *topologyOptions) {
		o.rankOffset = offset
	}
}

// NewRankTopology creates a RankTopology from the size of each parallelism axis and an order.
//
// The order is a hyphen-delimited list of axes tokens ("tp", "ep", "dp", "pp", "cp"), where the
// first one varies fastest, e.g. "tp-cp-ep-dp-pp". Axes of size 1 may be omitted from the order, in
// which case they are appended to it. If ep is given, it must be adjacent to dp.
//
// All validation happens here: on error no RankTopology is returned, and the error matches
// ErrConfig (see errors.Is) as well as the sentinel of its specific type.
func NewRankTopology(sizes Sizes, order string, opts ...Option) (*RankTopology, error) {
	var options topologyOptions
	for _, opt := range opts {
		opt(&options)
	}
	if err := sizes.validatePositive(); err != nil {
		return nil, err
	}
	if options.rankOffset < 0 {
		return nil, &InvalidSizeError{Name: rankOffsetName, Value: options.rankOffset}
	}
	worldSize, err := sizes.checkedWorldSize(options.rankOffset)
	if err != nil {
		return nil, err
	}

	order = strings.ToLower(strings.TrimSpace(order))
	userOrder, err := ParseOrder(order)
	if err != nil {
		return nil, err
	}
	if err := validateExpertAdjacency(userOrder, order); err != nil {
		return nil, err
	}
	fullOrder, err := completeOrder(userOrder, sizes, order)
	if err != nil {
		return nil, err
	}
	if err := sizes.validateDivisibility(); err != nil {
		return nil, err
	}

	t := &RankTopology{
		sizes:          sizes,
		rankOffset:     options.rankOffset,
		worldSize:      worldSize,
		orderWithEp:    fullOrder,
		orderWithoutEp: fullOrder.Without(ExpertAxis),
		sizesWithEp:    make([]int, 0, len(fullOrder)),
		sizesWithoutEp: make([]int, 0, len(fullOrder)-1),
	}
	for _, axis := range fullOrder {
		switch axis {
		case DataAxis:
			t.sizesWithEp = append(t.sizesWithEp, sizes.DP/sizes.EP)
			t.sizesWithoutEp = append(t.sizesWithoutEp, sizes.DP)
		case ExpertAxis:
			t.sizesWithEp = append(t.sizesWithEp, sizes.EP)
		default:
			size := sizes.Of(axis)
			t.sizesWithEp = append(t.sizesWithEp, size)
			t.sizesWithoutEp = append(t.sizesWithoutEp, size)
		}
	}
	if klog.V(2).Enabled() {
		klog.Infof("Created %s", t)
	}
	return t, nil
}

// validateExpertAdjacency checks that if ep is in the order given by the user, it is right before
// or right after dp.
func validateExpertAdjacency(order Order, orderStr string) error {
	epIdx := order.Index(ExpertAxis)
	if epIdx < 0 {
		return nil
	}
	dpIdx := order.Index(DataAxis)
	if dpIdx < 0 || (dpIdx != epIdx-1 && dpIdx != epIdx+1) {
		return &OrderConstraintError{
			Order:  orderStr,
			Reason: "ep and dp must be adjacent in the order",
		}
	}
	return nil
}

// completeOrder appends the axes of size 1 missing from order. Missing axes of size > 1 are an error.
func completeOrder(order Order, sizes Sizes, orderStr string) (Order, error) {
	full := slices.Clone(order)
	for _, axis := range completionOrder {
		if full.Contains(axis) {
			continue
		}
		if size := sizes.Of(axis); size != 1 {
			return nil, &MissingDimensionError{Axis: axis, Size: size, Order: orderStr}
		}
		full = append(full, axis)
	}
	return full, nil
}

// Sizes returns the sizes used to create the topology.
func (t *RankTopology) Sizes() Sizes {
	return t.sizes
}

// WorldSize returns the total number of ranks: tp * dp * pp * cp.
func (t *RankTopology) WorldSize() int {
	return t.worldSize
}

// RankOffset returns the offset added to every rank id.
func (t *RankTopology) RankOffset() int {
	return t.rankOffset
}

// Order returns a copy of the completed order, with or without the ep axis.
func (t *RankTopology) Order(independentExpert bool) Order {
	order, _ := t.active(independentExpert)
	return slices.Clone(order)
}

// AxesSizes returns a copy of the sizes of each axis of Order(independentExpert).
//
// If independentExpert is true, the dp axis has size dp/ep.
func (t *RankTopology) AxesSizes(independentExpert bool) []int {
	_, sizes := t.active(independentExpert)
	return slices.Clone(sizes)
}

// AxisSize returns the size of the axis in the mesh selected by independentExpert, or 0 if the axis
// is not part of it.
func (t *RankTopology) AxisSize(axis Axis, independentExpert bool) int {
	order, sizes := t.active(independentExpert)
	idx := order.Index(axis)
	if idx < 0 {
		return 0
	}
	return sizes[idx]
}

func (t *RankTopology) active(independentExpert bool) (Order, []int) {
	if independentExpert {
		return t.orderWithEp, t.sizesWithEp
	}
	return t.orderWithoutEp, t.sizesWithoutEp
}

// String implements fmt.Stringer.
func (t *RankTopology) String() string {
	var sb strings.Builder
	sb.WriteString("RankTopology(")
	for i, axis := range t.orderWithEp {
		if i > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%s: %d", axis, t.sizes.Of(axis))
	}
	_, _ = fmt.Fprintf(&sb, "; worldSize=%d", t.worldSize)
	if t.rankOffset != 0 {
		_, _ = fmt.Fprintf(&sb, ", rankOffset=%d", t.rankOffset)
	}
	sb.WriteString(")")
	return sb.String()
}

// DeviceMesh exports the topology as a DeviceMesh, with one named mesh axis per axis of
// Order(independentExpert).
//
// DeviceMesh uses a row-major layout, where the last axis varies fastest, so the axes are listed in
// the reverse of the order. The mesh devices are numbered from 0, the rank offset is not applied.
func (t *RankTopology) DeviceMesh(independentExpert bool) (*DeviceMesh, error) {
	order, sizes := t.active(independentExpert)
	names := xslices.Map(order, Axis.String)
	sizes = slices.Clone(sizes)
	slices.Reverse(names)
	slices.Reverse(sizes)
	return NewDeviceMesh(sizes, names)
}
