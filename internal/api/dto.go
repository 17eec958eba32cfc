package api

import (
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/gomlx/rankmesh/pkg/support/xslices"
)

// SizesDTO is the JSON form of distributed.Sizes. Missing sizes default to distributed.DefaultSizes.
type SizesDTO struct {
	TP *int `json:"tp,omitempty"`
	EP *int `json:"ep,omitempty"`
	DP *int `json:"dp,omitempty"`
	PP *int `json:"pp,omitempty"`
	CP *int `json:"cp,omitempty"`
}

func (s *SizesDTO) toSizes() distributed.Sizes {
	sizes := distributed.DefaultSizes()
	if s == nil {
		return sizes
	}
	for _, field := range []struct {
		src *int
		dst *int
	}{
		{s.TP, &sizes.TP}, {s.EP, &sizes.EP}, {s.DP, &sizes.DP}, {s.PP, &sizes.PP}, {s.CP, &sizes.CP},
	} {
		if field.src != nil {
			*field.dst = *field.src
		}
	}
	return sizes
}

// TopologyRequest is the body of POST /v1/topology.
type TopologyRequest struct {
	Sizes         *SizesDTO `json:"sizes,omitempty"`
	Order         *string   `json:"order,omitempty"`
	RankOffset    int       `json:"rank_offset,omitempty"`
	IndependentEP bool      `json:"independent_ep,omitempty"`

	// Queries lists dimensions (e.g. "tp" or "dp-ep") whose groups are included in the response.
	Queries []string `json:"queries,omitempty"`
}

// InfoDTO is the JSON form of distributed.ParallelismInfo.
type InfoDTO struct {
	Axes        string `json:"axes"`
	Size        int    `json:"size"`
	NumGroups   int    `json:"num_groups"`
	Stride      int    `json:"stride"`
	GroupStride int    `json:"group_stride"`
}

func newInfoDTO(info distributed.ParallelismInfo) InfoDTO {
	return InfoDTO{
		Axes:        distributed.Order(info.Axes).String(),
		Size:        info.Size,
		NumGroups:   info.NumGroups,
		Stride:      info.Stride,
		GroupStride: info.GroupStride,
	}
}

// TopologyResponse describes a topology and optionally the groups of some dimensions.
type TopologyResponse struct {
	RequestID      string             `json:"request_id"`
	WorldSize      int                `json:"world_size"`
	RankOffset     int                `json:"rank_offset"`
	OrderWithEP    string             `json:"order_with_ep"`
	OrderWithoutEP string             `json:"order_without_ep"`
	SizesWithEP    []int              `json:"sizes_with_ep"`
	SizesWithoutEP []int              `json:"sizes_without_ep"`
	Info           []InfoDTO          `json:"info"`
	Groups         map[string][][]int `json:"groups,omitempty"`
}

// GroupsResponse is returned by GET /v1/groups.
type GroupsResponse struct {
	RequestID     string  `json:"request_id"`
	WorldSize     int     `json:"world_size"`
	Order         string  `json:"order"`
	Dims          string  `json:"dims"`
	IndependentEP bool    `json:"independent_ep"`
	Info          InfoDTO `json:"info"`
	Groups        [][]int `json:"groups"`
	ReplicaGroups string  `json:"replica_groups"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	RequestID string    `json:"request_id,omitempty"`
	Error     ErrorBody `json:"error"`
}

func newTopologyResponse(topo *distributed.RankTopology, independentEP bool) TopologyResponse {
	return TopologyResponse{
		WorldSize:      topo.WorldSize(),
		RankOffset:     topo.RankOffset(),
		OrderWithEP:    topo.Order(true).String(),
		OrderWithoutEP: topo.Order(false).String(),
		SizesWithEP:    topo.AxesSizes(true),
		SizesWithoutEP: topo.AxesSizes(false),
		Info:           xslices.Map(topo.InfoAll(independentEP), newInfoDTO),
	}
}
