package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/connctd/pptdeck"
)

var (
	cfg = pptdeck.DefaultConfig()
	log = logrus.New()
)

func main() {
	app := cli.NewApp()
	app.Name = "pptdeck"
	app.Usage = "Turn slide descriptions into PowerPoint presentations"
	app.Version = pptdeck.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Load configuration from `FILE`",
			EnvVar: "PPTDECK_CONFIG",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Override the configured log level",
		},
	}
	app.Before = func(ctx *cli.Context) (err error) {
		cfg, err = pptdeck.LoadConfig(ctx.String("config"))
		if err != nil {
			return err
		}
		if lvl := ctx.String("log-level"); lvl != "" {
			cfg.LogLevel = lvl
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		log = cfg.Logger()
		return nil
	}
	app.Commands = []cli.Command{
		buildCommand,
		serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("pptdeck failed")
	}
}
