// Package main runs the headless gun-evolution daemon: it restores the saved
// player, drives the idle scheduler on a ticker and serves gRPC health checks.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/finnkarter/gameosdpas/internal/config"
	"github.com/finnkarter/gameosdpas/internal/game/catalog"
	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/game/quest"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
	"github.com/finnkarter/gameosdpas/internal/observability"
	"github.com/finnkarter/gameosdpas/internal/server"
	"github.com/finnkarter/gameosdpas/internal/storage"
)

const questsFile = "quests.yaml"

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal("setting up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	cat, quests, err := loadContent(cfg.Game.ContentDir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("weapons", len(cat.All())),
		zap.Int("quests", len(quests)),
		zap.String("starting", cat.Starting().ID),
	)

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing storage", zap.Error(err))
		}
	}()

	eng, err := engine.New(engine.Deps{
		Catalog: cat,
		RNG:     newPolicy(cfg.Game, logger),
		Logger:  logger,
		Quests:  quests,
	}, cfg.Game.Settings)
	if err != nil {
		logger.Fatal("creating engine", zap.Error(err))
	}
	subscribe(eng.Bus(), logger)

	saved, found, err := engine.LoadState(ctx, backend, logger)
	if err != nil {
		logger.Fatal("loading snapshot", zap.Error(err))
	}
	if found {
		if err := eng.Restore(saved); err != nil {
			logger.Warn("saved snapshot rejected, starting fresh", zap.Error(err))
		}
	}

	saver, err := engine.NewSaver(backend, logger, cfg.Storage.SaveTimeout)
	if err != nil {
		logger.Fatal("creating saver", zap.Error(err))
	}
	sched := engine.NewScheduler()
	if err := eng.Attach(sched, saver, cfg.Game.Intervals); err != nil {
		logger.Fatal("attaching scheduler", zap.Error(err))
	}

	ticker := server.NewTicker(cfg.Server.Tick, func(now time.Time) { sched.Tick(now) })
	ticker.OnStop = func() {
		saver.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.SaveTimeout)
		defer cancel()
		if err := saver.SaveNow(ctx, eng.Snapshot()); err != nil {
			logger.Error("final save failed", zap.Error(err))
		}
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("engine", ticker)
	if cfg.Server.HealthAddr != "" {
		lifecycle.Add("health", server.NewHealth(cfg.Server.HealthAddr, 5*time.Second, backend.Health, logger))
	}

	st := eng.Snapshot()
	logger.Info("gunevo ready",
		zap.String("player", st.PlayerID),
		zap.Int("level", st.Level),
		zap.Int("prestige", st.Prestige),
		zap.String("equipped", st.Equipped),
		zap.String("storage", backend.Name),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("lifecycle error", zap.Error(err))
		os.Exit(1)
	}
}

// loadContent returns the embedded catalog and quests, or those in dir when set.
// A content dir without a quest table keeps the embedded quests.
func loadContent(dir string) (*catalog.Catalog, []*quest.Definition, error) {
	if dir == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, nil, err
		}
		quests, err := quest.Default()
		return cat, quests, err
	}
	cat, err := catalog.LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, questsFile)); errors.Is(err, fs.ErrNotExist) {
		quests, err := quest.Default()
		return cat, quests, err
	}
	quests, err := quest.Load(os.DirFS(dir), questsFile)
	return cat, quests, err
}

func newPolicy(g config.GameConfig, logger *zap.Logger) rng.Policy {
	var p rng.Policy
	switch g.RNG {
	case config.RNGSeeded:
		p = rng.NewSeeded(g.Seed)
	case config.RNGFair:
		p = rng.NewProvablyFair(g.ServerSeed, g.ClientSeed, g.Seed)
	default:
		p = rng.NewCrypto()
	}
	if g.LogRolls {
		p = rng.NewLogged(p, logger)
	}
	return p
}

// subscribe logs the milestones worth keeping in the daemon log.
func subscribe(bus *engine.Bus, logger *zap.Logger) {
	bus.Subscribe(engine.EventLevelUp, func(n engine.Notification) {
		logger.Info("level up", zap.Int("level", n.Level))
	})
	bus.Subscribe(engine.EventEvolutionCompleted, func(n engine.Notification) {
		logger.Info("weapon evolved", zap.String("from", n.FromID), zap.String("to", n.ToID))
	})
	bus.Subscribe(engine.EventPrestigeActivated, func(n engine.Notification) {
		logger.Info("prestige activated", zap.Int("prestige", n.Prestige.Prestige))
	})
	bus.Subscribe(engine.EventQuestCompleted, func(n engine.Notification) {
		logger.Info("quest completed", zap.String("quest", n.QuestID))
	})
	bus.Subscribe(engine.EventPersistenceFailed, func(n engine.Notification) {
		logger.Warn("background save failed", zap.Error(n.Err))
	})
}
