// Package sweep enumerates the orders of the parallelism axes for a fixed set of sizes and evaluates
// the resulting topologies.
package sweep

import (
	"context"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/rankmesh/internal/workerspool"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/gomlx/rankmesh/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Result of evaluating one candidate order.
type Result struct {
	// Order given to distributed.NewRankTopology: a permutation of the axes of size > 1.
	Order string

	// Topology is nil if Err is set.
	Topology *distributed.RankTopology

	// Info per axis of Topology.Order(independentExpert).
	Info []distributed.ParallelismInfo

	Err error
}

// Valid returns whether the order yielded a topology.
func (r Result) Valid() bool {
	return r.Err == nil
}

// Config of a sweep.
type Config struct {
	Sizes      distributed.Sizes
	RankOffset int

	// IndependentExpert selects which view of the topology Info describes.
	IndependentExpert bool

	// Pool evaluates candidates in parallel. If nil, a default workerspool.New() is used.
	Pool *workerspool.Pool

	// Progress, if set, is called once per evaluated candidate. It may be called concurrently.
	Progress func()
}

// Axes returns the axes included in the permutations: those with size > 1.
func Axes(sizes distributed.Sizes) []distributed.Axis {
	var axes []distributed.Axis
	for _, axis := range distributed.AllAxes() {
		if sizes.Of(axis) > 1 {
			axes = append(axes, axis)
		}
	}
	return axes
}

// NumCandidates returns the number of orders Run evaluates for the given sizes.
func NumCandidates(sizes distributed.Sizes) int {
	n := 1
	for i := range len(Axes(sizes)) {
		n *= i + 1
	}
	return n
}

// Run evaluates every permutation of Axes(cfg.Sizes), in lexicographic order of the axes.
// Orders that don't yield a valid topology are returned with Err set.
//
// It returns early with ctx.Err() if the context is cancelled.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	var orders []string
	for perm := range xslices.Permutations(Axes(cfg.Sizes)) {
		orders = append(orders, strings.Join(xslices.Map(perm, distributed.Axis.String), "-"))
	}
	pool := cfg.Pool
	if pool == nil {
		pool = workerspool.New()
	}
	results := make([]Result, len(orders))
	pool.Map(len(orders), func(i int) {
		results[i].Order = orders[i]
		if ctx.Err() != nil {
			results[i].Err = ctx.Err()
			return
		}
		results[i].Err = exceptions.TryCatch[error](func() {
			topo := must.M1(distributed.NewRankTopology(cfg.Sizes, orders[i], distributed.WithRankOffset(cfg.RankOffset)))
			results[i].Info = topo.InfoAll(cfg.IndependentExpert)
			results[i].Topology = topo
		})
		if cfg.Progress != nil {
			cfg.Progress()
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "sweep interrupted")
	}
	numValid := len(slices.DeleteFunc(slices.Clone(results), func(r Result) bool { return !r.Valid() }))
	klog.V(1).Infof("sweep of %s: %d valid orders out of %d", cfg.Sizes, numValid, len(results))
	return results, nil
}

// Stride returns the stride of the given axis in the result, or 0 if the axis is not in its order.
func (r Result) Stride(axis distributed.Axis) int {
	for _, info := range r.Info {
		if len(info.Axes) == 1 && info.Axes[0] == axis {
			return info.Stride
		}
	}
	return 0
}
