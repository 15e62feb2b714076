// Package main provides the tracker binary: it runs the group-initiative and
// reverse-order actions against the configured encounter store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/config"
	"github.com/cory-johannsen/combat-tracker/internal/host"
	"github.com/cory-johannsen/combat-tracker/internal/server"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	action := flag.String("action", host.CommandShow, "action to run: group-initiative, reverse-order, show, controls")
	encounter := flag.String("encounter", "", "encounter ID; empty selects the active encounter")
	interactive := flag.Bool("interactive", false, "read one action per line from stdin")
	seed := flag.Uint64("seed", 0, "fixed dice seed; 0 uses crypto randomness")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	app, cleanup, err := initializeApp(ctx, &cfg, Seed(*seed), os.Stdout)
	if err != nil {
		log.Fatalf("initializing tracker: %v", err)
	}
	defer cleanup()

	logger := app.Logger
	logger.Info("tracker ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.Strings("actions", app.Registry.Actions()),
		zap.Duration("startup", time.Since(start)),
	)

	console := host.NewConsole(app.Registry, app.Host, os.Stdin, os.Stdout, logger)

	if *interactive {
		lc := server.NewLifecycle(logger)
		lc.Add("console", console)
		if err := lc.Run(ctx); err != nil {
			logger.Error("tracker stopped with error", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
		return
	}

	line := strings.TrimSpace(*action + " " + *encounter)
	if err := console.Execute(ctx, line); err != nil {
		if errors.Is(err, tracker.ErrUnknownAction) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			cleanup()
			os.Exit(2)
		}
		if !errors.Is(err, host.ErrQuit) {
			logger.Error("running action", zap.String("action", *action), zap.Error(err))
			cleanup()
			os.Exit(1)
		}
	}
}
