package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/connctd/pptdeck"
	"github.com/connctd/pptdeck/internal/store"
)

var (
	httpAddr string
	dbPath   string
)

var serveCommand = cli.Command{
	Name:        "serve",
	Aliases:     []string{"s"},
	Description: "Serve the generation API and a live preview of the deck",
	Usage:       "serve [input] [--addr :8080] [--db pptdeck.db]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "Specify the address to listen on",
			Destination: &httpAddr,
		},
		cli.StringFlag{
			Name:        "db",
			Usage:       "Path of the deck database",
			Destination: &dbPath,
		},
	},
	Action: func(ctx *cli.Context) (err error) {
		if httpAddr == "" {
			httpAddr = cfg.Addr
		}
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		deckPath := ctx.Args().First()

		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

		decks, err := store.Open(dbPath, log)
		if err != nil {
			return err
		}
		defer decks.Close()

		server, err := pptdeck.NewPresentationServer(cctx, pptdeck.ServerOptions{
			Addr:           httpAddr,
			DeckPath:       deckPath,
			Builder:        pptdeck.NewBuilder(cfg, log),
			Store:          decks,
			AllowedOrigins: cfg.AllowedOrigins,
			Log:            log,
		})
		if err != nil {
			return err
		}

		if deckPath != "" {
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			// editors often replace the file, so watch its directory
			if err := watcher.Add(filepath.Dir(deckPath)); err != nil {
				return err
			}
			go watchDeck(cctx, watcher, deckPath, server)
		}

		log.WithFields(logrus.Fields{"addr": httpAddr, "db": dbPath, "deck": deckPath}).Info("Serving presentations")
		server.Run()

		<-c
		return server.Close()
	},
}

func watchDeck(ctx context.Context, watcher *fsnotify.Watcher, deckPath string, server *pptdeck.PresentationServer) {
	target := filepath.Clean(deckPath)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("File watcher error")
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			var action string
			switch {
			case evt.Op&fsnotify.Write == fsnotify.Write:
				action = "changed"
			case evt.Op&fsnotify.Create == fsnotify.Create:
				action = "created"
			case evt.Op&fsnotify.Remove == fsnotify.Remove:
				action = "deleted"
			case evt.Op&fsnotify.Rename == fsnotify.Rename:
				action = "renamed"
			default:
				continue
			}
			log.WithField("file", evt.Name).Infof("File %s, rebuilding", action)
			server.Rerender()
		}
	}
}
