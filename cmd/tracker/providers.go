package main

import (
	"context"
	"io"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/config"
	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/game/dice"
	"github.com/cory-johannsen/combat-tracker/internal/host"
	"github.com/cory-johannsen/combat-tracker/internal/observability"
	"github.com/cory-johannsen/combat-tracker/internal/scripting"
	"github.com/cory-johannsen/combat-tracker/internal/storage"
	"github.com/cory-johannsen/combat-tracker/internal/storage/backend"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// Seed fixes the dice source; 0 selects the crypto source.
type Seed uint64

// App is the assembled tracker.
type App struct {
	Logger   *zap.Logger
	Store    storage.Store
	Host     *host.Context
	Registry *tracker.Registry
}

var providerSet = wire.NewSet(
	provideLogger,
	provideStore,
	provideEncounterStore,
	provideTagSource,
	provideSource,
	dice.NewLoggedRoller,
	tracker.NewDiceEvaluator,
	wire.Bind(new(tracker.RollEvaluator), new(*tracker.DiceEvaluator)),
	provideSettings,
	provideNotifier,
	host.NewRenderer,
	host.New,
	wire.Bind(new(tracker.HostContext), new(*host.Context)),
	tracker.NewService,
	provideRegistry,
	wire.Struct(new(App), "*"),
)

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging, "tracker")
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	s, err := backend.Open(ctx, cfg.Storage, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

func provideEncounterStore(s storage.Store) host.EncounterStore { return s }

// provideTagSource consults the optional Lua hook before the configured flag.
func provideTagSource(cfg *config.Config, logger *zap.Logger) (combat.GroupTagSource, func(), error) {
	flags := combat.FlagTagSource{Scope: cfg.Tracker.GroupFlagScope, Key: cfg.Tracker.GroupFlagKey}
	if cfg.Tracker.GroupScript == "" {
		return flags, func() {}, nil
	}
	script, err := scripting.LoadTagScript(cfg.Tracker.GroupScript, cfg.Tracker.ScriptInstructionLimit, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("group tag script loaded", zap.String("path", cfg.Tracker.GroupScript))
	return combat.TagSources{script, flags}, script.Close, nil
}

func provideSource(seed Seed) dice.Source {
	if seed == 0 {
		return dice.NewCryptoSource()
	}
	return dice.NewSeededSource(uint64(seed))
}

func provideSettings(cfg *config.Config) (*tracker.Settings, error) {
	return host.SettingsFromConfig(cfg.Tracker)
}

func provideNotifier(logger *zap.Logger, out io.Writer) *host.Notifier {
	return host.NewNotifier(logger, out)
}

func provideRegistry(logger *zap.Logger, svc *tracker.Service) *tracker.Registry {
	r := tracker.NewRegistry(logger)
	tracker.RegisterActions(r, svc)
	return r
}
