package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy-render-server"
	app.Usage = "serve off-screen rendering to remote scenes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from a .yaml, .yml or .toml file",
		},
		cli.StringFlag{
			Name:  "address, a",
			Usage: "host:port to listen on or connect to",
		},
		cli.StringFlag{
			Name:  "device, d",
			Usage: "device backend: software or wgpu",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, notice, warning, error or critical",
		},
		cli.StringFlag{
			Name:  "shader-dir",
			Usage: "shader directory used by cameras that do not name one",
		},
		cli.BoolFlag{
			Name:  "profile",
			Usage: "log frame rate and memory statistics periodically",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "start the render server",
			Description: `
Listen for remote callers until interrupted.

With --targets the output buffers are allocated once the set of scenes stops
changing for --settle: one shared-memory buffer per target, laid out as
[scenes, cameras, height, width, 4]. Their handles are logged so a compute
process can map them.`,
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "targets, t",
					Value: &cli.StringSlice{},
					Usage: "render target to allocate (Color, Position, Segmentation), repeatable",
				},
				cli.DurationFlag{
					Name:  "settle",
					Value: defaultSettle,
					Usage: "how long the scene set must stay unchanged before buffers are allocated",
				},
			},
			Action: serve,
		},
		{
			Name:   "summary",
			Usage:  "print the scene and material counts of a running server",
			Action: summary,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Critical(err)
		os.Exit(1)
	}
}
