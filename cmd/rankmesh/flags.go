package main

import (
	"github.com/gomlx/rankmesh/internal/api"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/urfave/cli/v3"
)

// topologyArgs holds the flags that define a RankTopology.
type topologyArgs struct {
	tp, ep, dp, pp, cp int64
	order              string
	rankOffset         int64
	independentEP      bool
	preset             string
}

func topologyFlags(args *topologyArgs) []cli.Flag {
	defaults := distributed.DefaultSizes()
	sizeFlag := func(name string, value int, usage string, dst *int64) cli.Flag {
		return &cli.Int64Flag{
			Name:        name,
			Usage:       usage,
			Value:       int64(value),
			Destination: dst,
		}
	}
	return []cli.Flag{
		sizeFlag("tp", defaults.TP, "tensor parallel size", &args.tp),
		sizeFlag("ep", defaults.EP, "expert parallel size, must divide --dp", &args.ep),
		sizeFlag("dp", defaults.DP, "data parallel size", &args.dp),
		sizeFlag("pp", defaults.PP, "pipeline parallel size", &args.pp),
		sizeFlag("cp", defaults.CP, "context parallel size", &args.cp),
		&cli.StringFlag{
			Name:        "order",
			Usage:       "hyphen-joined axes order, fastest varying first",
			Value:       api.DefaultOrder,
			Destination: &args.order,
		},
		&cli.Int64Flag{
			Name:        "rank-offset",
			Aliases:     []string{"offset"},
			Usage:       "added to every rank id",
			Destination: &args.rankOffset,
		},
		&cli.BoolFlag{
			Name:        "independent-ep",
			Aliases:     []string{"iep"},
			Usage:       "treat ep as an independent axis, with dp holding dp/ep",
			Destination: &args.independentEP,
		},
		&cli.StringFlag{
			Name:        "preset",
			Usage:       "name of a topology preset from the config file",
			Destination: &args.preset,
		},
	}
}

func (args *topologyArgs) sizes() distributed.Sizes {
	return distributed.Sizes{
		TP: int(args.tp),
		EP: int(args.ep),
		DP: int(args.dp),
		PP: int(args.pp),
		CP: int(args.cp),
	}
}

// topology applies the config file defaults and builds the RankTopology.
func (args *topologyArgs) topology(c *cli.Command, cfg Config) (*distributed.RankTopology, error) {
	tc, err := cfg.Topology(args.preset)
	if err != nil {
		return nil, err
	}
	applyTopologyConfig(c, tc, args)
	return distributed.NewRankTopology(args.sizes(), args.order, distributed.WithRankOffset(int(args.rankOffset)))
}
