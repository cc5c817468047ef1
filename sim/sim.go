// Package sim owns the particle population and drives the interaction
// kernel one step at a time: upload, dispatch, wait, readback, publish.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/config"
	"github.com/pthm-cable/tgenesis/persist"
	"github.com/pthm-cable/tgenesis/species"
	"github.com/pthm-cable/tgenesis/systems"
	"github.com/pthm-cable/tgenesis/telemetry"
)

var (
	// ErrInvalidConfig is returned for out-of-range parameters or edits.
	// Prior state is kept.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrCapacity is returned when the population would exceed the device
	// buffer. N and the previous buffer are kept.
	ErrCapacity = errors.New("particle capacity exceeded")
	// ErrSpeciesMismatch is returned when importing a rules record whose
	// species count differs and the policy is reject.
	ErrSpeciesMismatch = errors.New("species count mismatch")
	// ErrMalformedRecord is returned for rules records that fail validation.
	ErrMalformedRecord = persist.ErrMalformed
	// ErrClosed is returned by Step after Close.
	ErrClosed = errors.New("simulation closed")
)

// Options configures a Simulation.
type Options struct {
	Seed          int64
	Config        *config.Config // nil = embedded defaults
	LogStats      bool
	SnapshotDir   string
	OutputDir     string
	StatsCallback func(telemetry.WindowStats)
}

// Simulation holds the complete simulation state.
type Simulation struct {
	cfg     *config.Config
	rngSeed int64
	rng     *rand.Rand // editor and seeding; guarded by mu

	// mu serialises steps with structural edits to the population.
	mu sync.Mutex

	paramsMu sync.RWMutex
	settings Settings

	tables     *species.Tables
	store      *store
	dispatcher *dispatcher
	frame      systems.Frame
	tick       int32
	closed     bool

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	bookmarks     *telemetry.BookmarkDetector
	snapshotDir   string
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// New creates a simulation seeded with the configured population.
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	workers := cfg.Derived.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	tables, err := species.New(cfg.Population.Species, species.OptionsFromConfig(cfg), rand.New(rand.NewSource(opts.Seed+1)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s := &Simulation{
		cfg:           cfg,
		rngSeed:       opts.Seed,
		rng:           rand.New(rand.NewSource(opts.Seed)),
		settings:      SettingsFromConfig(cfg),
		tables:        tables,
		store:         newStore(cfg.Kernel.MaxParticles),
		dispatcher:    newDispatcher(workers, cfg.Kernel.ParallelThreshold),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks:     telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Bookmarks),
		snapshotDir:   opts.SnapshotDir,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}

	if err := s.settings.validate(); err != nil {
		return nil, err
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	s.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if err := s.seedLocked(cfg.Population.Particles); err != nil {
		om.Close()
		return nil, err
	}
	return s, nil
}

// Step advances the simulation by one tick and returns the published
// post-step population. The returned slice must not be modified.
func (s *Simulation) Step() ([]components.Particle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	params, err := s.buildParams()
	if err != nil {
		return nil, err
	}

	s.perfCollector.StartTick()

	// Upload: parameter record and tables, N re-derived from the buffer
	s.perfCollector.StartPhase(telemetry.PhaseUpload)
	var m int
	s.frame.Affinity, s.frame.Reactions, m = s.tables.Upload(s.frame.Affinity, s.frame.Reactions)
	params.M = uint32(m)
	params.N = uint32(s.store.len())
	s.frame.Params = params

	// Dispatch and wait
	s.perfCollector.StartPhase(telemetry.PhaseDispatch)
	double := s.cfg.Kernel.DoubleBuffer
	src, dst := s.store.buffers(double)
	reactions := s.dispatcher.dispatch(src, dst, &s.frame)

	s.perfCollector.StartPhase(telemetry.PhaseReadback)
	s.store.commit(double)
	s.store.readback()

	s.perfCollector.StartPhase(telemetry.PhasePublish)
	snap := s.store.publish()
	s.tick++

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	if reactions > 0 {
		s.collector.Record(telemetry.NewReactionEvent(s.tick, reactions))
	}
	s.flushTelemetry(snap, m)

	s.perfCollector.EndTick()
	return snap, nil
}

// Run steps until ctx is cancelled or maxTicks steps have completed
// (0 = unlimited). Cancellation is only observed between steps.
func (s *Simulation) Run(ctx context.Context, maxTicks int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := s.Step(); err != nil {
			return err
		}
		if maxTicks > 0 && int(s.Tick()) >= maxTicks {
			return nil
		}
	}
}

// Close stops the worker pool, writes the final rules file and closes
// telemetry output. Later calls to Step return ErrClosed; closing twice is a
// no-op.
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.dispatcher.stopWorkers()

	if s.outputManager == nil {
		return nil
	}
	if err := s.outputManager.WriteRules(s.exportLocked()); err != nil {
		slog.Error("failed to write rules", "error", err)
	}
	err := s.outputManager.Close()
	s.outputManager = nil
	return err
}

// Snapshot returns the latest published population without blocking a step
// in progress.
func (s *Simulation) Snapshot() []components.Particle {
	return s.store.snapshot()
}

// Len returns the current particle count N.
func (s *Simulation) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.len()
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Seed returns the RNG seed the simulation was created with.
func (s *Simulation) Seed() int64 {
	return s.rngSeed
}

// Config returns the configuration the simulation was created with.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// PerfStats returns timing statistics over the recent steps.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perfCollector.Stats()
}

// RecordFrame records frame timing for the viewer.
func (s *Simulation) RecordFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perfCollector.RecordFrame()
}
