package main

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/gomlx/rankmesh/internal/api"
	"github.com/gomlx/rankmesh/internal/sweep"
	"github.com/gomlx/rankmesh/internal/version"
	"github.com/gomlx/rankmesh/internal/workerspool"
	"github.com/gomlx/rankmesh/pkg/core/distributed"
	"github.com/gomlx/rankmesh/ui/commandline"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"
)

// groupsOutput is the JSON output of the groups command.
type groupsOutput struct {
	WorldSize  int     `json:"world_size"`
	RankOffset int     `json:"rank_offset"`
	Order      string  `json:"order"`
	Dims       string  `json:"dims"`
	Groups     [][]int `json:"groups"`
}

// dimsArg parses the first positional argument, e.g. "dp-ep".
func dimsArg(cmd *cli.Command) ([]distributed.Axis, error) {
	dims := cmd.Args().First()
	if dims == "" {
		return nil, errors.Errorf("missing DIMS argument, e.g. %q or %q", "tp", "dp-ep")
	}
	return distributed.ParseAxes(dims)
}

func (a *app) groupsCmd() *cli.Command {
	var (
		format    string
		maxGroups int64
	)
	return &cli.Command{
		Name:      "groups",
		Usage:     "Print the rank groups of the given dimensions",
		ArgsUsage: "DIMS",
		Flags: append(topologyFlags(&a.topo),
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (table, json, hlo)",
				Value:       "table",
				Destination: &format,
			},
			&cli.Int64Flag{
				Name:        "max-groups",
				Usage:       "maximum number of groups listed in the table format, 0 for all",
				Destination: &maxGroups,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if a.cfg.Format != "" && !cmd.IsSet("format") {
				format = a.cfg.Format
			}
			topo, err := a.topo.topology(cmd, a.cfg)
			if err != nil {
				return err
			}
			axes, err := dimsArg(cmd)
			if err != nil {
				return err
			}
			indep := a.topo.independentEP
			w := cmd.Root().Writer
			switch format {
			case "table":
				out, err := commandline.Groups(topo, indep, int(maxGroups), axes...)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, out)
				return err
			case "json", "hlo":
				groups, err := topo.GroupsForAxes(indep, axes...)
				if err != nil {
					return err
				}
				if format == "hlo" {
					_, err = fmt.Fprintf(w, "replica_groups = %s\n", distributed.FormatReplicaGroups(groups))
					return err
				}
				data, err := json.MarshalIndent(groupsOutput{
					WorldSize:  topo.WorldSize(),
					RankOffset: topo.RankOffset(),
					Order:      topo.Order(indep).String(),
					Dims:       distributed.Order(axes).String(),
					Groups:     groups,
				}, "", "  ")
				if err != nil {
					return errors.Wrap(err, "encoding groups")
				}
				_, err = fmt.Fprintln(w, string(data))
				return err
			default:
				return errors.Errorf("unknown format %q, valid formats are table, json and hlo", format)
			}
		},
	}
}

func (a *app) infoCmd() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print the topology and the layout of the groups of every axis",
		Flags: topologyFlags(&a.topo),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			topo, err := a.topo.topology(cmd, a.cfg)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			_, err = fmt.Fprintf(w, "%s\n%s\n%s\n%s\n",
				commandline.Title("Topology"), commandline.Summary(topo),
				commandline.Title("Parallelism"), commandline.Info(topo, a.topo.independentEP))
			return err
		},
	}
}

func (a *app) gridCmd() *cli.Command {
	var columns int64
	return &cli.Command{
		Name:      "grid",
		Usage:     "Print all ranks in a grid, colored by their group in the given dimensions",
		ArgsUsage: "DIMS",
		Flags: append(topologyFlags(&a.topo),
			&cli.Int64Flag{
				Name:        "columns",
				Usage:       "number of ranks per row",
				Value:       8,
				Destination: &columns,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			topo, err := a.topo.topology(cmd, a.cfg)
			if err != nil {
				return err
			}
			axes, err := dimsArg(cmd)
			if err != nil {
				return err
			}
			out, err := commandline.Grid(topo, a.topo.independentEP, int(columns), axes...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, out)
			return err
		},
	}
}

func (a *app) sweepCmd() *cli.Command {
	var (
		parallelism int64
		showInvalid bool
	)
	return &cli.Command{
		Name:  "sweep",
		Usage: "Evaluate every order of the axes with size > 1 (--order is ignored)",
		Flags: append(topologyFlags(&a.topo),
			&cli.Int64Flag{
				Name:        "parallelism",
				Usage:       "number of orders evaluated in parallel, 0 to evaluate them sequentially",
				Value:       int64(runtime.NumCPU()),
				Destination: &parallelism,
			},
			&cli.BoolFlag{
				Name:        "show-invalid",
				Usage:       "also list the orders that don't yield a valid topology",
				Destination: &showInvalid,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tc, err := a.cfg.Topology(a.topo.preset)
			if err != nil {
				return err
			}
			applyTopologyConfig(cmd, tc, &a.topo)
			sizes := a.topo.sizes()
			pool := workerspool.New()
			pool.SetMaxParallelism(int(parallelism))
			bar := commandline.NewProgressBar(cmd.Root().ErrWriter, sweep.NumCandidates(sizes), "sweep")
			results, err := sweep.Run(ctx, sweep.Config{
				Sizes:             sizes,
				RankOffset:        int(a.topo.rankOffset),
				IndependentExpert: a.topo.independentEP,
				Pool:              pool,
				Progress:          func() { bar.Add(1) },
			})
			elapsed := bar.Close()
			if err != nil {
				return err
			}
			klog.V(1).Infof("sweep took %s", commandline.FormatDuration(elapsed))
			_, err = fmt.Fprintln(cmd.Root().Writer,
				commandline.Sweep(results, sweep.Axes(sizes), a.topo.independentEP, showInvalid))
			return err
		},
	}
}

func (a *app) serveCmd() *cli.Command {
	var (
		addr         string
		readTimeout  time.Duration
		maxWorldSize int64
	)
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the rank groups over an HTTP API",
		Flags: append(topologyFlags(&a.topo),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if a.cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = a.cfg.ServerAddress
			}
			if a.cfg.MaxWorldSize > 0 && !cmd.IsSet("max-world-size") {
				maxWorldSize = a.cfg.MaxWorldSize
			}
			// The defaults used by requests must form a valid topology themselves.
			topo, err := a.topo.topology(cmd, a.cfg)
			if err != nil {
				return errors.WithMessage(err, "invalid default topology")
			}
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(a.topo.sizes(), a.topo.order, int(maxWorldSize)).Register(e)
			klog.Infof("rankmesh %s serving %s on %s", version.String(), topo, addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
