package distributed

import (
	"fmt"
	"strings"

	"github.com/gomlx/rankmesh/pkg/support/sets"
	"github.com/pkg/errors"
)

// FormatReplicaGroups converts groups into the StableHLO dense tensor literal used by the
// replica_groups attribute of collective operations.
//
// Example: [[0, 1], [2, 3]] -> "dense<[[0, 1], [2, 3]]> : tensor<2x2xi64>"
func FormatReplicaGroups(groups [][]int) string {
	if len(groups) == 0 {
		return "dense<[]> : tensor<0x0xi64>"
	}

	var sb strings.Builder
	sb.WriteString("dense<[")
	for i, group := range groups {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j, replica := range group {
			if j > 0 {
				sb.WriteString(", ")
			}
			_, _ = fmt.Fprintf(&sb, "%d", replica)
		}
		sb.WriteString("]")
	}
	sb.WriteString("]>")
	_, _ = fmt.Fprintf(&sb, " : tensor<%dx%dxi64>", len(groups), len(groups[0]))
	return sb.String()
}

// ValidateReplicaGroups checks that groups partition the devices [0, numDevices): all groups are
// non-empty and have the same size, and every device appears in exactly one group.
func ValidateReplicaGroups(groups [][]int, numDevices int) error {
	if len(groups) == 0 {
		return errors.New("replica groups cannot be empty")
	}
	groupSize := len(groups[0])
	if groupSize == 0 {
		return errors.New("replica group #0 is empty")
	}
	seen := sets.Make[int](numDevices)
	for groupIdx, group := range groups {
		if len(group) != groupSize {
			return errors.Errorf("replica group #%d has %d members, but group #0 has %d",
				groupIdx, len(group), groupSize)
		}
		for _, device := range group {
			if device < 0 || device >= numDevices {
				return errors.Errorf("replica group #%d has device %d out of range [0, %d)",
					groupIdx, device, numDevices)
			}
			if !seen.InsertNew(device) {
				return errors.Errorf("device %d appears in more than one replica group (found again in group #%d)",
					device, groupIdx)
			}
		}
	}
	if len(seen) != numDevices {
		return errors.Errorf("replica groups cover %d devices, expected %d", len(seen), numDevices)
	}
	return nil
}
