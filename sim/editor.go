package sim

import (
	"fmt"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/systems"
	"github.com/pthm-cable/tgenesis/telemetry"
)

// Reset reseeds n particles over m species on a world of the given size.
// Tables are reset to m x m (random affinity, identity reactions, no rules).
// Nothing changes on error.
func (s *Simulation) Reset(n, m int, worldSize float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		return fmt.Errorf("%w: particle count %d", ErrInvalidConfig, n)
	}
	if m < 1 {
		return fmt.Errorf("%w: species count %d", ErrInvalidConfig, m)
	}
	if err := s.store.checkCapacity(n); err != nil {
		return err
	}
	if err := s.updateSettings(func(st *Settings) { st.WorldSize = worldSize }); err != nil {
		return err
	}
	if err := s.tables.Reset(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return s.seedLocked(n)
}

// seedLocked replaces the population with n particles at uniform random
// positions and species, with zero velocity.
func (s *Simulation) seedLocked(n int) error {
	size := float32(s.Settings().WorldSize)
	m := s.tables.Count()

	particles := make([]components.Particle, n)
	for i := range particles {
		particles[i] = components.Particle{
			X:       systems.Wrap(s.rng.Float32()*size, size),
			Y:       systems.Wrap(s.rng.Float32()*size, size),
			Species: uint32(s.rng.Intn(m)),
		}
	}
	if err := s.store.replace(particles); err != nil {
		return err
	}
	s.store.publish()
	s.collector.Record(telemetry.NewResetEvent(s.tick, n))
	return nil
}

// AddParticles spawns count particles of one species around (x, y). Each is
// jittered by up to half the editor jitter per axis, wrapped, and starts at
// rest.
func (s *Simulation) AddParticles(x, y float64, count, sp int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 {
		return fmt.Errorf("%w: add count %d", ErrInvalidConfig, count)
	}
	if m := s.tables.Count(); sp < 0 || sp >= m {
		return fmt.Errorf("%w: species %d of %d", ErrInvalidConfig, sp, m)
	}
	if !finite(x) || !finite(y) {
		return fmt.Errorf("%w: position (%v, %v)", ErrInvalidConfig, x, y)
	}
	if err := s.store.checkCapacity(s.store.len() + count); err != nil {
		return err
	}

	size := float32(s.Settings().WorldSize)
	jitter := s.cfg.Editor.Jitter
	particles := make([]components.Particle, count)
	for i := range particles {
		px := x + (s.rng.Float64()-0.5)*jitter
		py := y + (s.rng.Float64()-0.5)*jitter
		particles[i] = components.Particle{
			X:       systems.Wrap(float32(px), size),
			Y:       systems.Wrap(float32(py), size),
			Species: uint32(sp),
		}
	}

	if err := s.store.add(particles); err != nil {
		return err
	}
	s.store.publish()
	s.collector.Record(telemetry.NewAddEvent(s.tick, count))
	return nil
}

// RemoveParticles deletes every particle within radius times the editor
// remove scale of (x, y), measured on the torus. It returns how many were
// removed.
func (s *Simulation) RemoveParticles(x, y, radius float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !finite(x) || !finite(y) || !finite(radius) || radius < 0 {
		return 0, fmt.Errorf("%w: remove at (%v, %v) radius %v", ErrInvalidConfig, x, y, radius)
	}

	size := float32(s.Settings().WorldSize)
	cx := systems.Wrap(float32(x), size)
	cy := systems.Wrap(float32(y), size)
	reach := float32(radius * s.cfg.Editor.RemoveScale)

	removed := s.store.removeWhere(func(p *components.Particle) bool {
		return systems.ToroidalDistance(cx, cy, p.X, p.Y, size) <= reach
	})
	if removed > 0 {
		s.store.publish()
		s.collector.Record(telemetry.NewRemoveEvent(s.tick, removed))
	}
	return removed, nil
}

// SetSpeciesCount resizes the tables to m species. Particles whose species
// no longer exists are folded to species mod m.
func (s *Simulation) SetSpeciesCount(m int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tables.SetSpeciesCount(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.foldSpeciesLocked(uint32(m))
	return nil
}

func (s *Simulation) foldSpeciesLocked(m uint32) {
	s.store.update(func(_ *components.Position, _ *components.Velocity, sp *components.Species) {
		if sp.ID >= m {
			sp.ID %= m
		}
	})
	s.store.publish()
}
