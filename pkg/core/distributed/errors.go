package distributed

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error categories: every error returned by NewRankTopology matches ErrConfig with errors.Is, and
// every error returned by a group query matches ErrQuery.
var (
	ErrConfig = errors.New("invalid rank topology configuration")
	ErrQuery  = errors.New("invalid rank group query")
)

// Sentinels matched by the corresponding error types.
var (
	ErrOrderConstraint       = errors.New("order constraint violated")
	ErrMissingDimension      = errors.New("missing dimension in order")
	ErrDimensionDivisibility = errors.New("dp not divisible by ep")
	ErrUnknownDimension      = errors.New("unknown dimension")
	ErrInvalidSize           = errors.New("invalid size")
)

// OrderConstraintError is returned when the order string is malformed: ep is present but not
// adjacent to dp, or an axis is repeated.
type OrderConstraintError struct {
	Order  string
	Reason string
}

func (e *OrderConstraintError) Error() string {
	return fmt.Sprintf("invalid order %q: %s", e.Order, e.Reason)
}

func (e *OrderConstraintError) Unwrap() []error { return []error{ErrOrderConstraint, ErrConfig} }

// MissingDimensionError is returned when an axis with size > 1 is not part of the order.
type MissingDimensionError struct {
	Axis  Axis
	Size  int
	Order string
}

func (e *MissingDimensionError) Error() string {
	return fmt.Sprintf("the size of %s is %d, but it is not specified in the order %q", e.Axis, e.Size, e.Order)
}

func (e *MissingDimensionError) Unwrap() []error { return []error{ErrMissingDimension, ErrConfig} }

// DimensionDivisibilityError is returned when the data-parallel size is not a multiple of the
// expert-parallel size.
type DimensionDivisibilityError struct {
	DP, EP int
}

func (e *DimensionDivisibilityError) Error() string {
	return fmt.Sprintf("dp=%d is not divisible by ep=%d", e.DP, e.EP)
}

func (e *DimensionDivisibilityError) Unwrap() []error {
	return []error{ErrDimensionDivisibility, ErrConfig}
}

// UnknownDimensionError is returned for a token that is not a known axis, or for a query on an axis
// not present in the active order (e.g. ep when expert parallelism is folded into dp).
type UnknownDimensionError struct {
	Token string

	// Input is the hyphen-joined string being parsed, set when one of its tokens is empty.
	Input string

	// Order is the active order of a failed query. It is empty for tokens that failed parsing.
	Order string

	// Query tells whether the error happened during a query, as opposed to the construction of a
	// RankTopology.
	Query bool
}

func (e *UnknownDimensionError) Error() string {
	if e.Token == "" {
		if e.Input != "" {
			return fmt.Sprintf("empty dimension token in %q", e.Input)
		}
		return "no dimension given"
	}
	if e.Order != "" {
		return fmt.Sprintf("dimension %q not present in order %q", e.Token, e.Order)
	}
	return fmt.Sprintf("unknown dimension %q, valid dimensions are tp, ep, dp, pp and cp", e.Token)
}

func (e *UnknownDimensionError) Unwrap() []error {
	if e.Query {
		return []error{ErrUnknownDimension, ErrQuery}
	}
	return []error{ErrUnknownDimension, ErrConfig}
}

// InvalidSizeError is returned when a size (or the rank offset) is out of its valid range.
type InvalidSizeError struct {
	Name  string
	Value int
}

func (e *InvalidSizeError) Error() string {
	switch e.Name {
	case rankOffsetName:
		return fmt.Sprintf("%s must be non-negative, got %d", e.Name, e.Value)
	case worldSizeName:
		return fmt.Sprintf("%s tp*dp*pp*cp overflows int (rank offset %d)", e.Name, e.Value)
	}
	return fmt.Sprintf("size of %s must be a positive integer, got %d", e.Name, e.Value)
}

func (e *InvalidSizeError) Unwrap() []error { return []error{ErrInvalidSize, ErrConfig} }

const (
	rankOffsetName = "rank offset"
	worldSizeName  = "world size"
)

// asQueryError marks an *UnknownDimensionError produced while parsing query tokens as a query error.
func asQueryError(err error) error {
	var unknown *UnknownDimensionError
	if errors.As(err, &unknown) {
		unknown.Query = true
	}
	return err
}
