// rankmesh computes the process groups of a multi-dimensional (tp, ep, dp, pp, cp) parallel
// training job: which ranks take part in the collective operations of each parallelism axis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gomlx/rankmesh/pkg/support/fsutil"
	"github.com/gomlx/rankmesh/ui/commandline"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"
)

// app holds the state shared by the subcommands.
type app struct {
	configFile string
	verbosity  int64
	noColor    bool

	cfg  Config
	topo topologyArgs
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:      "rankmesh",
		Usage:     "Rank groups of multi-dimensional parallel training jobs",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to the config file (default: ~/.config/rankmesh/config.yaml)",
				Destination: &a.configFile,
			},
			&cli.Int64Flag{
				Name:        "verbosity",
				Usage:       "klog verbosity level",
				Destination: &a.verbosity,
			},
			&cli.BoolFlag{
				Name:        "no-color",
				Usage:       "disable colors in the output",
				Destination: &a.noColor,
			},
		},
		Before: a.before,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			a.groupsCmd(),
			a.infoCmd(),
			a.gridCmd(),
			a.sweepCmd(),
			a.serveCmd(),
			versionCmd(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	if err := fs.Set("v", strconv.FormatInt(a.verbosity, 10)); err != nil {
		return ctx, errors.Wrap(err, "setting klog verbosity")
	}
	if err := fs.Set("logtostderr", "false"); err != nil {
		return ctx, errors.Wrap(err, "configuring klog")
	}
	klog.SetOutput(cmd.Root().ErrWriter)
	if a.noColor {
		commandline.DisableColors()
	}

	path, err := fsutil.ReplaceTildeInPath(a.configFile)
	if err != nil {
		return ctx, err
	}
	if path != "" {
		exists, err := fsutil.FileExists(path)
		if err != nil {
			return ctx, err
		}
		if !exists {
			return ctx, errors.Errorf("config file %q not found", path)
		}
	}
	a.cfg, err = LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	klog.V(2).Infof("config: %+v", a.cfg)
	return ctx, nil
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
