package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tgenesis/config"
	"github.com/pthm-cable/tgenesis/sim"
	"github.com/pthm-cable/tgenesis/telemetry"
	"github.com/pthm-cable/tgenesis/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in steps (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and final rules")
	rulesDir := flag.String("rules-dir", "rules", "Directory the viewer saves rules files to")
	rulesPath := flag.String("rules", "", "Rules file to import at startup")
	restorePath := flag.String("restore", "", "Snapshot file to restore at startup")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation steps per frame in graphical mode")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Use config stats window if not overridden by CLI
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	s, err := sim.New(sim.Options{
		Seed:        rngSeed,
		Config:      cfg,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("close simulation", "error", err)
		}
	}()

	if *restorePath != "" {
		snap, err := telemetry.LoadSnapshot(*restorePath)
		if err != nil {
			slog.Error("failed to load snapshot", "path", *restorePath, "error", err)
			os.Exit(1)
		}
		if err := s.RestoreSnapshot(snap); err != nil {
			slog.Error("failed to restore snapshot", "path", *restorePath, "error", err)
			os.Exit(1)
		}
	}
	if *rulesPath != "" {
		if err := s.LoadRules(*rulesPath); err != nil {
			slog.Error("failed to import rules", "path", *rulesPath, "error", err)
			os.Exit(1)
		}
	}

	if *headless {
		runHeadless(s, rngSeed, *maxTicks)
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Particle Genesis")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := viewer.New(s, viewer.Options{
		StepsPerUpdate: *stepsPerUpdate,
		RulesDir:       *rulesDir,
	})

	for !rl.WindowShouldClose() {
		v.Update()
		v.Draw()

		if *maxTicks > 0 && int(v.Tick()) >= *maxTicks {
			break
		}
	}
}

// runHeadless steps the simulation on the CPU with no raylib calls until
// max ticks or an interrupt.
func runHeadless(s *sim.Simulation, seed int64, maxTicks int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting headless simulation",
		"seed", seed,
		"particles", s.Len(),
		"species", s.SpeciesCount(),
		"max_ticks", maxTicks,
	)

	if err := s.Run(ctx, maxTicks); err != nil && ctx.Err() == nil {
		slog.Error("simulation failed", "tick", s.Tick(), "error", err)
		return
	}
	slog.Info("simulation stopped", "tick", s.Tick())
}
