// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gomlx/rankmesh/internal/sweep"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	DisableColors()
}

func createTestTopology() *distributed.RankTopology {
	return must.M1(distributed.NewRankTopology(distributed.DefaultSizes(), "tp-cp-ep-dp-pp"))
}

func TestSummary(t *testing.T) {
	out := Summary(createTestTopology())
	assert.Contains(t, out, "tp-cp-ep-dp-pp")
	assert.Contains(t, out, "tp-cp-dp-pp")
	assert.Contains(t, out, "world size")
	assert.NotContains(t, out, "rank offset")

	topo := must.M1(distributed.NewRankTopology(distributed.Sizes{TP: 8, EP: 1, DP: 256, PP: 1, CP: 1}, "tp-dp",
		distributed.WithRankOffset(4096)))
	out = Summary(topo)
	assert.Contains(t, out, "2,048")
	assert.Contains(t, out, "4,096")
}

func TestInfo(t *testing.T) {
	out := Info(createTestTopology(), false)
	for _, header := range []string{"Axis", "Size", "Groups", "Stride", "Group Stride"} {
		assert.Contains(t, out, header)
	}
	for _, axis := range []string{"TP", "CP", "DP", "PP"} {
		assert.Contains(t, out, axis)
	}
	assert.NotContains(t, out, "EP")
	assert.Contains(t, Info(createTestTopology(), true), "EP")
}

func TestGroups(t *testing.T) {
	topo := createTestTopology()
	out, err := Groups(topo, false, 0, distributed.PipelineAxis)
	require.NoError(t, err)
	assert.Contains(t, out, "Ranks (pp)")
	for _, ranks := range []string{"0, 4", "1, 5", "2, 6", "3, 7"} {
		assert.Contains(t, out, ranks)
	}

	out, err = Groups(topo, false, 1, distributed.TensorAxis)
	require.NoError(t, err)
	assert.Contains(t, out, "0, 1")
	assert.NotContains(t, out, "2, 3")
	assert.Contains(t, out, "3 more groups")

	_, err = Groups(topo, false, 0, distributed.ExpertAxis)
	require.ErrorIs(t, err, distributed.ErrQuery)
}

func TestGrid(t *testing.T) {
	topo := must.M1(distributed.NewRankTopology(distributed.DefaultSizes(), "tp-cp-ep-dp-pp",
		distributed.WithRankOffset(10)))
	out, err := Grid(topo, false, 4, distributed.TensorAxis)
	require.NoError(t, err)
	assert.Contains(t, out, "Rank 10")
	assert.Contains(t, out, "Rank 17")
	assert.Contains(t, out, "Group 3")
	assert.NotContains(t, out, "Group 4")

	_, err = Grid(topo, false, 4, distributed.ExpertAxis)
	require.Error(t, err)
}

func TestGroupColor(t *testing.T) {
	assert.NotEqual(t, GroupColor(0), GroupColor(1))
	assert.Equal(t, GroupColor(0), GroupColor(0))
	assert.True(t, strings.HasPrefix(string(GroupColor(5)), "#"))
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 10, "sweep")
	bar.Add(4)
	bar.Add(6)
	elapsed := bar.Close()
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Contains(t, buf.String(), "sweep")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "250.00ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1m2.5s", FormatDuration(62500*time.Millisecond))
	assert.Equal(t, "1h0m1.23s", FormatDuration(time.Hour+1234567*time.Microsecond))
}

func TestSweep(t *testing.T) {
	sizes := distributed.Sizes{TP: 2, EP: 2, DP: 4, PP: 1, CP: 1}
	results, err := sweep.Run(context.Background(), sweep.Config{Sizes: sizes, IndependentExpert: true})
	require.NoError(t, err)
	out := Sweep(results, sweep.Axes(sizes), true, false)
	assert.Contains(t, out, "TP Stride")
	assert.Contains(t, out, "EP Stride")
	assert.Contains(t, out, "tp-ep-dp-pp-cp")
	assert.Contains(t, out, "4 valid orders, 2 invalid orders")
	assert.NotContains(t, out, "ep-tp-dp")

	out = Sweep(results, sweep.Axes(sizes), true, true)
	assert.Contains(t, out, "ep-tp-dp")
	assert.Contains(t, out, "adjacent")
}
