// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline renders rank topologies and their groups for the terminal.
package commandline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/rankmesh/internal/sweep"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/gomlx/rankmesh/pkg/support/xslices"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)

	tableBorderColor = "#705090"
)

// DisableColors makes all rendering plain text, without ANSI escape sequences.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Title renders a section title.
func Title(title string) string {
	return titleStyle.Render(title)
}

func newPlainTable(alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = xslices.Last(alignments)
			}
			return s.Align(alignment)
		})
}

// GroupColor returns a distinct pastel color for each group index, spreading hues by the golden angle.
func GroupColor(groupIdx int) lipgloss.Color {
	hue := math.Mod(float64(groupIdx)*137.5, 360)
	return lipgloss.Color(colorful.Hsl(hue, 0.7, 0.8).Hex())
}

// Summary renders the sizes, orders and world size of the topology.
func Summary(topo *distributed.RankTopology) string {
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	sizes := topo.Sizes()
	for _, axis := range topo.Order(true) {
		table.Row(axis.String(), strconv.Itoa(sizes.Of(axis)))
	}
	table.Row("order (independent ep)", topo.Order(true).String())
	table.Row("order (ep folded in dp)", topo.Order(false).String())
	table.Row("world size", humanize.Comma(int64(topo.WorldSize())))
	if topo.RankOffset() != 0 {
		table.Row("rank offset", humanize.Comma(int64(topo.RankOffset())))
	}
	return table.Render()
}

// Info renders the size, stride and group stride of the groups of every axis.
func Info(topo *distributed.RankTopology, independentExpert bool) string {
	table := newPlainTable(lipgloss.Left, lipgloss.Right)
	table.Headers("Axis", "Size", "Groups", "Stride", "Group Stride")
	for _, info := range topo.InfoAll(independentExpert) {
		table.Row(
			strings.ToUpper(axesName(info.Axes)),
			strconv.Itoa(info.Size),
			humanize.Comma(int64(info.NumGroups)),
			strconv.Itoa(info.Stride),
			strconv.Itoa(info.GroupStride))
	}
	return table.Render()
}

// Groups renders one row per group of the given axes, listing its ranks.
//
// At most maxGroups are listed if maxGroups > 0, followed by a row with the number of omitted groups.
func Groups(topo *distributed.RankTopology, independentExpert bool, maxGroups int, axes ...distributed.Axis) (string, error) {
	seq, err := topo.GroupSeq(independentExpert, axes...)
	if err != nil {
		return "", err
	}
	info, err := topo.Info(independentExpert, axes...)
	if err != nil {
		return "", err
	}
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Headers("Group", fmt.Sprintf("Ranks (%s)", axesName(axes)))
	for groupIdx, group := range seq {
		if maxGroups > 0 && groupIdx >= maxGroups {
			table.Row("...", fmt.Sprintf("%s more groups", humanize.Comma(int64(info.NumGroups-maxGroups))))
			break
		}
		table.Row(strconv.Itoa(groupIdx), joinInts(group))
	}
	return table.Render(), nil
}

// Grid renders all ranks in a grid with the given number of columns, each cell showing the rank and
// the index of its group, with a background color per group.
func Grid(topo *distributed.RankTopology, independentExpert bool, columns int, axes ...distributed.Axis) (string, error) {
	groupOf, err := topo.GroupIndexOf(independentExpert, axes...)
	if err != nil {
		return "", err
	}
	if columns <= 0 {
		columns = 8
	}
	cellStyle := lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Center).Foreground(lipgloss.Color("#000"))
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			idx := row*columns + col
			if row < 0 || idx >= len(groupOf) {
				return cellStyle
			}
			return cellStyle.Background(GroupColor(groupOf[idx]))
		})
	offset := topo.RankOffset()
	for start := 0; start < len(groupOf); start += columns {
		end := min(start+columns, len(groupOf))
		cells := make([]string, 0, columns)
		for local := start; local < end; local++ {
			cells = append(cells, fmt.Sprintf("Rank %d\nGroup %d", local+offset, groupOf[local]))
		}
		table.Row(cells...)
	}
	return table.Render(), nil
}

// Sweep renders one row per valid order of a sweep with the stride of each of the given axes,
// followed by the number of invalid orders. If showInvalid, invalid orders are listed with their error.
func Sweep(results []sweep.Result, axes []distributed.Axis, independentExpert bool, showInvalid bool) string {
	alignments := make([]lipgloss.Position, len(axes)+1)
	for i := range alignments {
		alignments[i] = lipgloss.Right
	}
	alignments[0] = lipgloss.Left
	table := newPlainTable(alignments...)
	headers := []string{"Order"}
	for _, axis := range axes {
		headers = append(headers, strings.ToUpper(axis.String())+" Stride")
	}
	table.Headers(headers...)
	var invalid []sweep.Result
	for _, r := range results {
		if !r.Valid() {
			invalid = append(invalid, r)
			continue
		}
		row := []string{r.Topology.Order(independentExpert).String()}
		for _, axis := range axes {
			stride := r.Stride(axis)
			if stride == 0 {
				row = append(row, "-")
			} else {
				row = append(row, strconv.Itoa(stride))
			}
		}
		table.Row(row...)
	}
	var sb strings.Builder
	sb.WriteString(table.Render())
	_, _ = fmt.Fprintf(&sb, "\n%s valid orders, %s invalid orders\n",
		humanize.Comma(int64(len(results)-len(invalid))), humanize.Comma(int64(len(invalid))))
	if showInvalid && len(invalid) > 0 {
		invalidTable := newPlainTable(lipgloss.Left, lipgloss.Left)
		invalidTable.Headers("Order", "Error")
		for _, r := range invalid {
			invalidTable.Row(r.Order, r.Err.Error())
		}
		sb.WriteString(invalidTable.Render())
		sb.WriteString("\n")
	}
	return sb.String()
}

func axesName(axes []distributed.Axis) string {
	return strings.Join(xslices.Map(axes, distributed.Axis.String), "-")
}

func joinInts(values []int) string {
	return strings.Join(xslices.Map(values, strconv.Itoa), ", ")
}
