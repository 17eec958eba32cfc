// Package api serves rank topologies and their process groups over HTTP.
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// HeaderRequestID is echoed back on every response.
const HeaderRequestID = "X-Request-Id"

// DefaultOrder is used when a request doesn't specify one.
const DefaultOrder = "tp-cp-ep-dp-pp"

// DefaultMaxWorldSize is the largest world size served when NewServer is given maxWorldSize <= 0.
const DefaultMaxWorldSize = 1 << 16

// Server holds the defaults used for requests that omit parameters.
type Server struct {
	defaultSizes distributed.Sizes
	defaultOrder string

	// maxWorldSize bounds the number of ranks listed in a response.
	maxWorldSize int
}

// NewServer creates a Server whose requests default to the given sizes and order, and that rejects
// topologies with more than maxWorldSize ranks (DefaultMaxWorldSize if maxWorldSize <= 0).
func NewServer(defaultSizes distributed.Sizes, defaultOrder string, maxWorldSize int) *Server {
	if defaultOrder == "" {
		defaultOrder = DefaultOrder
	}
	if maxWorldSize <= 0 {
		maxWorldSize = DefaultMaxWorldSize
	}
	return &Server{
		defaultSizes: defaultSizes,
		defaultOrder: defaultOrder,
		maxWorldSize: maxWorldSize,
	}
}

// newTopology builds the topology of a request, rejecting those too large to be served.
func (s *Server) newTopology(sizes distributed.Sizes, order string, rankOffset int) (*distributed.RankTopology, error) {
	topo, err := distributed.NewRankTopology(sizes, order, distributed.WithRankOffset(rankOffset))
	if err != nil {
		return nil, err
	}
	if topo.WorldSize() > s.maxWorldSize {
		return nil, newInvalidRequest("world size %d exceeds the maximum of %d served", topo.WorldSize(), s.maxWorldSize)
	}
	return topo, nil
}

// Register adds the API routes to e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/groups", s.handleGroups)
	e.POST("/v1/topology", s.handleTopology)
}

func requestID(c *echo.Context) string {
	id := c.Request().Header.Get(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Response().Header().Set(HeaderRequestID, id)
	return id
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGroups(c *echo.Context) error {
	id := requestID(c)
	sizes := s.defaultSizes
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"tp", &sizes.TP}, {"ep", &sizes.EP}, {"dp", &sizes.DP}, {"pp", &sizes.PP}, {"cp", &sizes.CP},
	} {
		if err := intParam(c, field.name, field.dst); err != nil {
			return writeError(c, id, err)
		}
	}
	var offset int
	if err := intParam(c, "offset", &offset); err != nil {
		return writeError(c, id, err)
	}
	independentEP := false
	if raw := c.QueryParam("independent_ep"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return writeError(c, id, newInvalidRequest("independent_ep must be a boolean, got %q", raw))
		}
		independentEP = v
	}
	order := s.defaultOrder
	if raw, ok := c.QueryParams()["order"]; ok && len(raw) > 0 {
		order = raw[0]
	}
	dims := c.QueryParam("dims")
	if dims == "" {
		return writeError(c, id, newInvalidRequest("missing required query parameter dims"))
	}

	topo, err := s.newTopology(sizes, order, offset)
	if err != nil {
		return writeError(c, id, err)
	}
	groups, err := topo.GroupsFor(dims, independentEP)
	if err != nil {
		return writeError(c, id, err)
	}
	axes, err := distributed.ParseAxes(dims)
	if err != nil {
		return writeError(c, id, err)
	}
	info, err := topo.Info(independentEP, axes...)
	if err != nil {
		return writeError(c, id, err)
	}
	klog.V(1).Infof("request %s: %s groups of %s", id, dims, topo)
	return c.JSON(http.StatusOK, GroupsResponse{
		RequestID:     id,
		WorldSize:     topo.WorldSize(),
		Order:         topo.Order(independentEP).String(),
		Dims:          distributed.Order(axes).String(),
		IndependentEP: independentEP,
		Info:          newInfoDTO(info),
		Groups:        groups,
		ReplicaGroups: distributed.FormatReplicaGroups(groups),
	})
}

func (s *Server) handleTopology(c *echo.Context) error {
	id := requestID(c)
	req, err := decodeJSON[TopologyRequest](c.Request().Body)
	if err != nil {
		return writeError(c, id, newInvalidRequest("invalid request body: %v", err))
	}
	sizes := s.defaultSizes
	if req.Sizes != nil {
		sizes = req.Sizes.toSizes()
	}
	order := s.defaultOrder
	if req.Order != nil {
		order = *req.Order
	}
	topo, err := s.newTopology(sizes, order, req.RankOffset)
	if err != nil {
		return writeError(c, id, err)
	}
	resp := newTopologyResponse(topo, req.IndependentEP)
	resp.RequestID = id
	if len(req.Queries) > 0 {
		resp.Groups = make(map[string][][]int, len(req.Queries))
		for _, query := range req.Queries {
			groups, err := topo.GroupsFor(query, req.IndependentEP)
			if err != nil {
				return writeError(c, id, err)
			}
			resp.Groups[strings.ToLower(strings.TrimSpace(query))] = groups
		}
	}
	klog.V(1).Infof("request %s: described %s", id, topo)
	return c.JSON(http.StatusOK, resp)
}

// intParam parses the query parameter name into dst, leaving dst unchanged if absent.
func intParam(c *echo.Context, name string, dst *int) error {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return newInvalidRequest("query parameter %s must be an integer, got %q", name, raw)
	}
	*dst = v
	return nil
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		return out, err
	}
	return out, nil
}
