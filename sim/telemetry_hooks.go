package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/systems"
	"github.com/pthm-cable/tgenesis/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry(snap []components.Particle, m int) {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, snap, m)
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if s.outputManager != nil {
		if err := s.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if s.outputManager != nil {
			if err := s.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		if s.snapshotDir != "" {
			s.saveSnapshot(&bm, snap)
		}
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (s *Simulation) saveSnapshot(bookmark *telemetry.Bookmark, snap []components.Particle) {
	path, err := telemetry.SaveSnapshot(s.createSnapshot(bookmark, snap), s.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", s.tick)
}

func (s *Simulation) createSnapshot(bookmark *telemetry.Bookmark, snap []components.Particle) *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		RNGSeed:   s.rngSeed,
		Tick:      s.tick,
		Rules:     s.exportLocked(),
		Particles: telemetry.ParticleStates(snap),
		Bookmark:  bookmark,
	}
}

// CreateSnapshot captures the full simulation state.
func (s *Simulation) CreateSnapshot() *telemetry.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSnapshot(nil, s.store.snapshot())
}

// RestoreSnapshot replaces the population, tables, settings and tick with
// the snapshot's. Nothing changes on error.
func (s *Simulation) RestoreSnapshot(snap *telemetry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	next, err := s.importedSettings(snap.Rules.Parameters)
	if err != nil {
		return err
	}
	if err := s.store.checkCapacity(len(snap.Particles)); err != nil {
		return err
	}

	size := float32(next.WorldSize)
	particles := snap.Buffer()
	for i := range particles {
		particles[i].X = systems.Wrap(particles[i].X, size)
		particles[i].Y = systems.Wrap(particles[i].Y, size)
	}

	if err := s.applyRecordLocked(snap.Rules, next, false, particles); err != nil {
		return err
	}
	s.tick = snap.Tick
	s.collector = telemetry.NewCollector(s.cfg.Telemetry.StatsWindow)
	return nil
}
