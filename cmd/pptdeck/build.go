package main

import (
	"context"

	"github.com/urfave/cli"

	"github.com/connctd/pptdeck"
)

var defaultInput = "slides.json"

var buildCommand = cli.Command{
	Name:      "build",
	Aliases:   []string{"b", "render", "r"},
	Usage:     "Build a PPTX file from a deck",
	ArgsUsage: "[input] [output]",
	Action: func(ctx *cli.Context) error {
		in := ctx.Args().Get(0)
		if in == "" {
			in = defaultInput
		}
		out := ctx.Args().Get(1)
		if out == "" {
			out = cfg.Output
		}
		builder := pptdeck.NewBuilder(cfg, log)
		return builder.BuildFile(context.Background(), in, out)
	},
}
