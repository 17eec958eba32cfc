package distributed

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Axis is an enumeration of the parallelism dimensions of a training rank mesh.
type Axis int

const (
	// TensorAxis ("tp") splits individual layers (matrix multiplications) across ranks.
	TensorAxis Axis = iota

	// ExpertAxis ("ep") splits the experts of mixture-of-experts layers across ranks.
	// It is not an independent dimension of the mesh: it sub-divides DataAxis.
	ExpertAxis

	// DataAxis ("dp") replicates the model and splits the batch across ranks.
	DataAxis

	// PipelineAxis ("pp") splits the layers of the model into sequential stages.
	PipelineAxis

	// ContextAxis ("cp") splits the sequence (context) dimension across ranks.
	ContextAxis
)

// NumAxes is the number of parallelism axes.
const NumAxes = 5

var axisTokens = [NumAxes]string{"tp", "ep", "dp", "pp", "cp"}

// completionOrder is the order in which axes absent from a user given order are appended to it.
var completionOrder = [NumAxes]Axis{TensorAxis, PipelineAxis, DataAxis, ExpertAxis, ContextAxis}

// AllAxes returns all the axes, in the order they are declared.
func AllAxes() []Axis {
	return []Axis{TensorAxis, ExpertAxis, DataAxis, PipelineAxis, ContextAxis}
}

// String returns the axis token, e.g.: "tp".
func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisTokens[a]
}

// IsValid returns whether a is one of the declared axes.
func (a Axis) IsValid() bool {
	return a >= 0 && int(a) < NumAxes
}

// ParseAxis converts a token ("tp", "ep", "dp", "pp" or "cp", case-insensitive) to an Axis.
//
// It returns an *UnknownDimensionError for any other token.
func ParseAxis(token string) (Axis, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	for i, t := range axisTokens {
		if t == token {
			return Axis(i), nil
		}
	}
	return 0, &UnknownDimensionError{Token: token}
}

// ParseAxes parses a hyphen-joined list of tokens, e.g. "dp-ep".
//
// Repeated tokens are ignored. An empty string, or an empty token as in "tp--dp", returns an
// *UnknownDimensionError.
func ParseAxes(tokens string) ([]Axis, error) {
	if strings.TrimSpace(tokens) == "" {
		return nil, &UnknownDimensionError{}
	}
	var axes []Axis
	var seen [NumAxes]bool
	for _, token := range strings.Split(tokens, "-") {
		if strings.TrimSpace(token) == "" {
			return nil, &UnknownDimensionError{Input: tokens}
		}
		axis, err := ParseAxis(token)
		if err != nil {
			return nil, err
		}
		if seen[axis] {
			continue
		}
		seen[axis] = true
		axes = append(axes, axis)
	}
	return axes, nil
}

// Sizes holds the size of each parallelism axis.
//
// Notice EP is a sub-division of DP, so it doesn't count towards the world size.
type Sizes struct {
	TP, EP, DP, PP, CP int
}

// DefaultSizes returns tp=2, ep=1, dp=2, pp=2, cp=1.
func DefaultSizes() Sizes {
	return Sizes{TP: 2, EP: 1, DP: 2, PP: 2, CP: 1}
}

// Of returns the size of the given axis.
func (s Sizes) Of(axis Axis) int {
	switch axis {
	case TensorAxis:
		return s.TP
	case ExpertAxis:
		return s.EP
	case DataAxis:
		return s.DP
	case PipelineAxis:
		return s.PP
	case ContextAxis:
		return s.CP
	}
	return 0
}

// WorldSize returns TP * DP * PP * CP.
func (s Sizes) WorldSize() int {
	return s.TP * s.DP * s.PP * s.CP
}

// String returns the sizes as "tp=2, ep=1, dp=2, pp=2, cp=1".
func (s Sizes) String() string {
	parts := make([]string, 0, NumAxes)
	for _, axis := range AllAxes() {
		parts = append(parts, fmt.Sprintf("%s=%d", axis, s.Of(axis)))
	}
	return strings.Join(parts, ", ")
}

// Validate checks that all sizes are positive, and that DP is divisible by EP.
func (s Sizes) Validate() error {
	if err := s.validatePositive(); err != nil {
		return err
	}
	return s.validateDivisibility()
}

func (s Sizes) validatePositive() error {
	for _, axis := range AllAxes() {
		if size := s.Of(axis); size <= 0 {
			return &InvalidSizeError{Name: axis.String(), Value: size}
		}
	}
	return nil
}

// checkedWorldSize returns the world size, or an *InvalidSizeError if it, or the last rank
// shifted by rankOffset, doesn't fit in an int. Sizes must be positive.
func (s Sizes) checkedWorldSize(rankOffset int) (int, error) {
	worldSize := 1
	for _, size := range []int{s.TP, s.DP, s.PP, s.CP} {
		if size > math.MaxInt/worldSize {
			return 0, &InvalidSizeError{Name: worldSizeName, Value: rankOffset}
		}
		worldSize *= size
	}
	if rankOffset > math.MaxInt-worldSize {
		return 0, &InvalidSizeError{Name: worldSizeName, Value: rankOffset}
	}
	return worldSize, nil
}

func (s Sizes) validateDivisibility() error {
	if s.DP%s.EP != 0 {
		return &DimensionDivisibilityError{DP: s.DP, EP: s.EP}
	}
	return nil
}

// Order is a sequence of axes defining how mesh coordinates map to ranks: the first axis varies
// fastest (contiguous ranks), the last one varies slowest.
type Order []Axis

// ParseOrder parses a hyphen-delimited, case-insensitive, order string like "tp-cp-ep-dp-pp".
//
// An empty string is a valid (empty) order. Unknown tokens return an *UnknownDimensionError, and
// repeated tokens an *OrderConstraintError.
func ParseOrder(order string) (Order, error) {
	order = strings.ToLower(strings.TrimSpace(order))
	if order == "" {
		return Order{}, nil
	}
	var parsed Order
	var seen [NumAxes]bool
	for _, token := range strings.Split(order, "-") {
		if strings.TrimSpace(token) == "" {
			return nil, &UnknownDimensionError{Input: order}
		}
		axis, err := ParseAxis(token)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing order %q", order)
		}
		if seen[axis] {
			return nil, &OrderConstraintError{
				Order:  order,
				Reason: "axis " + axis.String() + " appears more than once",
			}
		}
		seen[axis] = true
		parsed = append(parsed, axis)
	}
	return parsed, nil
}

// String returns the hyphen-delimited form of the order.
func (o Order) String() string {
	tokens := make([]string, len(o))
	for i, axis := range o {
		tokens[i] = axis.String()
	}
	return strings.Join(tokens, "-")
}

// Index returns the position of axis in the order, or -1 if it is not present.
func (o Order) Index(axis Axis) int {
	for i, a := range o {
		if a == axis {
			return i
		}
	}
	return -1
}

// Contains returns whether axis is part of the order.
func (o Order) Contains(axis Axis) bool {
	return o.Index(axis) >= 0
}

// Without returns a copy of the order with the given axis removed.
func (o Order) Without(axis Axis) Order {
	without := make(Order, 0, len(o))
	for _, a := range o {
		if a != axis {
			without = append(without, a)
		}
	}
	return without
}
