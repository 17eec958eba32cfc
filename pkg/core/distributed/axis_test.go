package distributed_test

import (
	"fmt"
	"testing"

	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxis(t *testing.T) {
	for _, axis := range distributed.AllAxes() {
		assert.True(t, axis.IsValid())
		parsed, err := distributed.ParseAxis(axis.String())
		require.NoError(t, err)
		assert.Equal(t, axis, parsed)
	}
	assert.Equal(t, "tp", distributed.TensorAxis.String())
	assert.Equal(t, "cp", distributed.ContextAxis.String())
	assert.Equal(t, "Axis(7)", distributed.Axis(7).String())
	assert.False(t, distributed.Axis(-1).IsValid())

	axis, err := distributed.ParseAxis(" EP ")
	require.NoError(t, err)
	assert.Equal(t, distributed.ExpertAxis, axis)

	_, err = distributed.ParseAxis("sp")
	var unknown *distributed.UnknownDimensionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "sp", unknown.Token)
}

func TestParseAxes(t *testing.T) {
	axes, err := distributed.ParseAxes("dp-ep")
	require.NoError(t, err)
	assert.Equal(t, []distributed.Axis{distributed.DataAxis, distributed.ExpertAxis}, axes)

	axes, err = distributed.ParseAxes("tp-tp")
	require.NoError(t, err)
	assert.Equal(t, []distributed.Axis{distributed.TensorAxis}, axes)

	_, err = distributed.ParseAxes("")
	require.ErrorIs(t, err, distributed.ErrUnknownDimension)
	assert.Equal(t, "no dimension given", err.Error())
	_, err = distributed.ParseAxes("tp-")
	require.ErrorIs(t, err, distributed.ErrUnknownDimension)
	assert.Equal(t, `empty dimension token in "tp-"`, err.Error())
	_, err = distributed.ParseAxes("tp--dp")
	require.ErrorIs(t, err, distributed.ErrUnknownDimension)
	assert.Equal(t, `empty dimension token in "tp--dp"`, err.Error())
}

func TestSizes(t *testing.T) {
	sizes := distributed.Sizes{TP: 2, EP: 2, DP: 4, PP: 3, CP: 1}
	assert.Equal(t, 24, sizes.WorldSize())
	assert.Equal(t, 2, sizes.Of(distributed.ExpertAxis))
	assert.Equal(t, 3, sizes.Of(distributed.PipelineAxis))
	assert.Equal(t, 0, sizes.Of(distributed.Axis(9)))
	require.NoError(t, sizes.Validate())
	assert.Equal(t, 8, distributed.DefaultSizes().WorldSize())
	assert.Equal(t, "tp=2, ep=2, dp=4, pp=3, cp=1", sizes.String())

	sizes.CP = 0
	var invalid *distributed.InvalidSizeError
	require.ErrorAs(t, sizes.Validate(), &invalid)
	assert.Equal(t, "cp", invalid.Name)

	sizes = distributed.Sizes{TP: 1, EP: 3, DP: 4, PP: 1, CP: 1}
	require.ErrorIs(t, sizes.Validate(), distributed.ErrDimensionDivisibility)
}

func TestParseOrder(t *testing.T) {
	order, err := distributed.ParseOrder("TP-cp-Ep-dp-pp")
	require.NoError(t, err)
	assert.Equal(t, distributed.Order{
		distributed.TensorAxis, distributed.ContextAxis, distributed.ExpertAxis,
		distributed.DataAxis, distributed.PipelineAxis}, order)
	assert.Equal(t, "tp-cp-ep-dp-pp", order.String())
	assert.Equal(t, 3, order.Index(distributed.DataAxis))
	assert.True(t, order.Contains(distributed.ExpertAxis))
	assert.Equal(t, "tp-cp-dp-pp", order.Without(distributed.ExpertAxis).String())
	assert.Equal(t, "tp-cp-ep-dp-pp", order.String(), "Without must not change the receiver")

	order, err = distributed.ParseOrder("")
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.Equal(t, -1, order.Index(distributed.TensorAxis))

	_, err = distributed.ParseOrder("tp-xp")
	require.ErrorIs(t, err, distributed.ErrUnknownDimension)
	require.ErrorIs(t, err, distributed.ErrConfig)
	assert.Contains(t, err.Error(), `parsing order "tp-xp"`)

	for _, order := range []string{"tp--dp", "tp-", "-tp"} {
		_, err = distributed.ParseOrder(order)
		require.ErrorIs(t, err, distributed.ErrUnknownDimension)
		require.ErrorIs(t, err, distributed.ErrConfig)
		assert.Equal(t, fmt.Sprintf("empty dimension token in %q", order), err.Error())
	}

	_, err = distributed.ParseOrder("tp-dp-tp")
	var constraint *distributed.OrderConstraintError
	require.True(t, errors.As(err, &constraint))
	assert.Contains(t, constraint.Reason, "tp appears more than once")
}
