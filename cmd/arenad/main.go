package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/config"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/data"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/handler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/mob"
	gonet "github.com/Clemdlc1/CustomMonster-sub001/internal/net"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/persist"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scripting"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/system"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          arenad · combat events           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/arena.toml"
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("events timezone: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. World, bus and shared tables
	printSection("world")
	ws := world.NewState(cfg.Server.Worlds...)
	printStat("worlds", len(cfg.Server.Worlds))
	points, err := placeCapturePoints(ws, cfg.Events.CapturePointsPath)
	if err != nil {
		return err
	}
	printStat("capture points", points)
	fmt.Println()

	eventBus := event.NewBus()
	tasks := coresys.NewTaskHost(log)
	combatants := combatant.NewTable()

	// 4. Mob registry: built-in behaviors first, then the YAML table
	printSection("mobs")
	seed := cfg.Combat.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mobs := mob.NewRegistry(mob.Options{
		Host:  ws,
		Tasks: tasks,
		Table: combatants,
		Config: combatant.Config{
			IntervalTicks: cfg.Combat.TickIntervalTicks,
			TargetRadius:  cfg.Combat.TargetRadius,
			AttackChance:  cfg.Combat.AttackChance,
			SpecialChance: cfg.Combat.SpecialChance,
		},
		Rand: combatant.NewSource(seed),
		Bus:  eventBus,
		Log:  log,
	})
	if err := mob.RegisterBuiltins(mobs); err != nil {
		return fmt.Errorf("builtin mobs: %w", err)
	}
	scripts := scripting.NewEngine(filepath.Dir(cfg.Events.MobsPath), log)
	if err := loadMobTable(mobs, scripts, cfg.Events.MobsPath, log); err != nil {
		return err
	}
	printStat("registered mobs", len(mobs.IDs()))
	fmt.Println()

	// 5. Event definitions and scheduler
	printSection("events")
	defs, err := data.LoadEventDefinitions(cfg.Events.DefinitionsPath, loc)
	if err != nil {
		return fmt.Errorf("event definitions: %w", err)
	}
	events, err := scheduler.New(defs, scheduler.Options{
		Weights: scoring.Weights{
			MonsterKill: int(cfg.Scoring.MonsterKillPoints),
			PlayerKill:  int(cfg.Scoring.PlayerKillPoints),
			Capture:     int(cfg.Scoring.CapturePoints),
		},
		Bus: eventBus,
		Log: log,
	})
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	printStat("event definitions", len(defs))
	fmt.Println()

	bosses := boss.NewTracker(boss.Options{
		Host:  ws,
		Table: combatants,
		Config: boss.Config{
			MinionRadius:  cfg.Boss.MinionRadius,
			RespawnRadius: cfg.Boss.RespawnRadius,
		},
		Bus: eventBus,
		Log: log,
	})
	mobs.AddListener(bosses)

	// 6. Handler deps and the damage bridge
	deps := &handler.Deps{
		Config:     cfg,
		Log:        log,
		World:      ws,
		Mobs:       mobs,
		Combatants: combatants,
		Events:     events,
		Bosses:     bosses,
		Bus:        eventBus,
	}
	api := handler.NewAPI(deps)
	ws.SetListener(api)
	events.AddListener(handler.NewEventHooks(deps))

	// 7. Result archive (optional)
	var archiver *persist.Archiver
	if cfg.Database.Enabled {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		err = persist.RunMigrations(ctx, db.Pool)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		fmt.Println()

		archiver = persist.NewArchiver(persist.NewResultRepo(db), 64, log)
		events.AddListener(archiver)
		bosses.AddListener(archiver)
	}

	// 8. Event bus subscribers
	event.Subscribe(eventBus, func(ev event.EventStarted) {
		log.Info("event: started",
			zap.String("event", ev.EventID),
			zap.String("name", ev.Name),
			zap.Time("ends_at", ev.EndsAt),
			zap.Bool("forced", ev.Forced),
		)
	})
	event.Subscribe(eventBus, func(ev event.EventEnded) {
		log.Info("event: ended",
			zap.String("event", ev.EventID),
			zap.String("reason", ev.Reason),
			zap.String("winner", ev.Winner),
		)
	})
	event.Subscribe(eventBus, func(ev event.BossDefeated) {
		log.Debug("event: BossDefeated",
			zap.String("mob", ev.MobID),
			zap.Bool("defeated", ev.Defeated),
			zap.Int32("killer", ev.KillerID),
		)
	})
	event.Subscribe(eventBus, func(ev event.MinionSummoned) {
		log.Debug("event: MinionSummoned",
			zap.Int32("summoner", ev.SummonerID),
			zap.String("mob", ev.MobID),
		)
	})

	// 9. Systems
	runner := coresys.NewRunner(log)
	// Phase 1: Event dispatch (double-buffer swap + deliver previous tick's events)
	runner.Register(system.NewEventDispatchSystem(eventBus, log))
	// Phase 2: behavior ticks, scheduler clock and the damage stream
	runner.Register(tasks)
	combatSys := system.NewCombatSystem(deps)
	deps.Combat = combatSys
	runner.Register(combatSys)
	clock := system.NewEventClock(events, cfg.Events.ClockIntervalTicks, log)
	clock.Start(tasks)
	// Phase 3: Post-update
	runner.Register(system.NewBossSweepSystem(bosses, cfg.Boss.SweepIntervalTicks))

	// Phase 4: Output, live feed (optional)
	var (
		hub     *gonet.Hub
		feedSrv *http.Server
	)
	if cfg.Feed.Enabled {
		hub = gonet.NewHub(cfg.Feed.SendQueueSize, log)
		feedSrv = gonet.NewServer(cfg.Feed.BindAddress, hub)
		runner.Register(system.NewFeedSystem(deps, hub, cfg.Feed.IntervalTicks))
		go func() {
			if err := feedSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("feed server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 10. Hot reload (optional)
	if cfg.Events.Watch {
		watcher, err := data.NewWatcher(watchDirs(cfg)...)
		if err != nil {
			return fmt.Errorf("watch data: %w", err)
		}
		defer watcher.Close()
		r := &reloader{cfg: cfg, loc: loc, events: events, mobs: mobs, scripts: scripts, log: log}
		go watcher.Serve(ctx, r.onChange, func(err error) {
			log.Warn("data watcher error", zap.Error(err))
		})
		printOK("watching data files")
	}

	printSection("ready")
	if feedSrv != nil {
		printReady(fmt.Sprintf("feed at ws://%s/feed", cfg.Feed.BindAddress))
	}
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	// 11. Game loop
	if err := runner.Run(ctx, cfg.Network.TickRate); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown signal received")

	// Shutdown: end running events, stop behaviors, drain the last reports,
	// flush the archive, then drop feed clients.
	clock.Stop()
	events.Close()
	tasks.Shutdown()
	combatSys.Update(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if archiver != nil {
		if err := archiver.Close(shutdownCtx); err != nil {
			log.Warn("result archive not fully flushed", zap.Error(err))
		}
		saved, failed, dropped := archiver.Stats()
		log.Info("result archive closed",
			zap.Uint64("saved", saved),
			zap.Uint64("failed", failed),
			zap.Uint64("dropped", dropped),
		)
	}
	if feedSrv != nil {
		hub.Close()
		if err := feedSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("feed server shutdown", zap.Error(err))
		}
	}
	log.Info("server stopped", zap.Uint64("ticks", runner.Ticks()))
	return nil
}

// placeCapturePoints loads the optional capture point table.
func placeCapturePoints(ws *world.State, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	points, err := data.LoadCapturePoints(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := data.PlaceCapturePoints(ws, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// loadMobTable registers the YAML mob table. A missing file leaves only the
// built-ins; bad entries are logged and skipped.
func loadMobTable(mobs *mob.Registry, scripts *scripting.Engine, path string, log *zap.Logger) error {
	table, err := data.LoadMobTable(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("mob table not found, built-in mobs only", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("mob table: %w", err)
	}
	if err := mob.RegisterTable(mobs, table, scripts); err != nil {
		log.Warn("mob table entries rejected", zap.Error(err))
	}
	return nil
}

func watchDirs(cfg *config.Config) []string {
	dirs := []string{filepath.Dir(cfg.Events.DefinitionsPath)}
	if d := filepath.Dir(cfg.Events.MobsPath); d != dirs[0] {
		dirs = append(dirs, d)
	}
	return dirs
}

// reloader applies data file changes reported by the watcher.
type reloader struct {
	cfg     *config.Config
	loc     *time.Location
	events  *scheduler.Scheduler
	mobs    *mob.Registry
	scripts *scripting.Engine
	log     *zap.Logger
}

func (r *reloader) onChange(path string) {
	switch {
	case data.SameFile(path, r.cfg.Events.DefinitionsPath):
		defs, err := data.LoadEventDefinitions(path, r.loc)
		if err != nil {
			r.log.Warn("event definitions not reloaded", zap.Error(err))
			return
		}
		if err := r.events.Reload(defs); err != nil {
			r.log.Warn("event definitions not reloaded", zap.Error(err))
			return
		}
		r.log.Info("event definitions reloaded", zap.Int("count", len(defs)))
	case data.SameFile(path, r.cfg.Events.MobsPath), strings.HasSuffix(path, ".tengo"):
		// registered ids never change; new ids and edited scripts apply to
		// blueprints registered from here on
		r.scripts.Forget()
		before := len(r.mobs.IDs())
		table, err := data.LoadMobTable(r.cfg.Events.MobsPath)
		if err != nil {
			r.log.Warn("mob table not reloaded", zap.Error(err))
			return
		}
		for _, s := range table.Specs() {
			if r.mobs.IsRegistered(s.ID) {
				continue
			}
			bp, err := mob.BlueprintFromSpec(s, r.scripts)
			if err != nil {
				r.log.Warn("mob entry rejected", zap.String("mob", s.ID), zap.Error(err))
				continue
			}
			if err := r.mobs.Register(bp); err != nil {
				r.log.Warn("mob entry rejected", zap.String("mob", s.ID), zap.Error(err))
			}
		}
		r.log.Info("mob table reloaded", zap.Int("added", len(r.mobs.IDs())-before))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
