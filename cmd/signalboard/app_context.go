package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/alexisbeaulieu97/signalboard/internal/cache"
	"github.com/alexisbeaulieu97/signalboard/internal/config"
	"github.com/alexisbeaulieu97/signalboard/internal/engine"
	"github.com/alexisbeaulieu97/signalboard/internal/logger"
	"github.com/alexisbeaulieu97/signalboard/internal/registry"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/subscriptions"
)

// appContext carries the wired application: configuration, logger, signal
// registry, cache store, subscription store, and engine.
type appContext struct {
	cfg      config.Config
	log      *logger.Logger
	reg      *registry.Registry
	cache    *cache.Store
	subs     *subscriptions.Store
	eng      *engine.Engine
	builders []signal.Builder
}

// newAppContext loads configuration and wires every component. The cache is
// loaded from disk; a corrupt or missing file degrades to an empty cache.
func newAppContext(flags *rootFlags) (*appContext, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if flags.verbose {
		level = "debug"
	}
	human := cfg.Logging.Human || term.IsTerminal(int(os.Stderr.Fd()))

	log, err := logger.New(logger.Options{
		Level:         level,
		HumanReadable: human,
		Writer:        os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	builders := buildersFromConfig(cfg)

	reg := registry.New(log)
	summary := reg.Reload(builders)
	if summary.Failed > 0 {
		log.WithFields(map[string]any{
			"discovered": summary.Discovered,
			"failed":     summary.Failed,
		}).Warn("some signals failed discovery")
	}

	store := cache.NewStore(cfg.Cache.Path, log)
	if err := store.Load(); err != nil {
		log.Error(err, "cache load failed, starting empty")
	}
	store.Prune(reg.IDSet())

	subs, err := subscriptions.Open(cfg.Subscriptions.Path)
	if err != nil {
		return nil, err
	}
	if err := subs.InitSchema(context.Background()); err != nil {
		_ = subs.Close()
		return nil, err
	}

	return &appContext{
		cfg:      cfg,
		log:      log,
		reg:      reg,
		cache:    store,
		subs:     subs,
		eng:      engine.New(reg, store, log),
		builders: builders,
	}, nil
}

// close releases resources and writes the cache a final time.
func (a *appContext) close() {
	if err := a.cache.Flush(); err != nil {
		a.log.Error(err, "final cache flush failed")
	}
	if err := a.subs.Close(); err != nil {
		a.log.Error(err, "closing subscription store failed")
	}
}
