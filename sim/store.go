package sim

import (
	"fmt"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/tgenesis/components"
)

// store owns the particle population: an ark ECS world holding one entity
// per particle, and the flat device buffer the kernel runs over. Buffer
// index i always belongs to entities[i].
//
// Only the published snapshot may be read concurrently; everything else is
// guarded by the Simulation mutex.
type store struct {
	world *ecs.World

	particleMapper *ecs.Map3[components.Position, components.Velocity, components.Species]
	particleFilter *ecs.Filter3[components.Position, components.Velocity, components.Species]

	entities []ecs.Entity
	buf      []components.Particle // device buffer, len == N
	back     []components.Particle // second buffer in double-buffer mode
	capacity int

	published atomic.Pointer[[]components.Particle]
}

func newStore(capacity int) *store {
	world := ecs.NewWorld()
	s := &store{
		world:          world,
		particleMapper: ecs.NewMap3[components.Position, components.Velocity, components.Species](world),
		particleFilter: ecs.NewFilter3[components.Position, components.Velocity, components.Species](world),
		capacity:       capacity,
	}
	s.publish()
	return s
}

// len returns N, the current population.
func (s *store) len() int {
	return len(s.buf)
}

// checkCapacity fails when n particles would not fit the device buffer.
func (s *store) checkCapacity(n int) error {
	if n > s.capacity {
		return fmt.Errorf("%w: %d particles, capacity %d", ErrCapacity, n, s.capacity)
	}
	return nil
}

// replace discards every entity and creates one per particle.
func (s *store) replace(particles []components.Particle) error {
	if err := s.checkCapacity(len(particles)); err != nil {
		return err
	}

	for _, e := range s.entities {
		s.world.RemoveEntity(e)
	}
	s.entities = s.entities[:0]

	s.spawn(particles)
	s.rebuild()
	return nil
}

// add appends particles without touching existing ones.
func (s *store) add(particles []components.Particle) error {
	if err := s.checkCapacity(len(s.buf) + len(particles)); err != nil {
		return err
	}
	s.spawn(particles)
	s.rebuild()
	return nil
}

func (s *store) spawn(particles []components.Particle) {
	for _, p := range particles {
		pos, vel, sp := p.Components()
		s.entities = append(s.entities, s.particleMapper.NewEntity(&pos, &vel, &sp))
	}
}

// removeWhere deletes every particle matching fn and returns how many went.
// The buffer is rebuilt only when something was removed.
func (s *store) removeWhere(fn func(p *components.Particle) bool) int {
	kept := s.entities[:0:0]
	removed := 0
	for i, e := range s.entities {
		if fn(&s.buf[i]) {
			s.world.RemoveEntity(e)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0
	}
	s.entities = kept
	s.rebuild()
	return removed
}

// update runs fn on every particle's components, then rebuilds the buffer.
func (s *store) update(fn func(pos *components.Position, vel *components.Velocity, sp *components.Species)) {
	query := s.particleFilter.Query()
	for query.Next() {
		fn(query.Get())
	}
	s.rebuild()
}

// rebuild allocates a new device buffer sized to the population and fills it
// from the ECS components in entity order. The previous buffer is released
// only once the new one is complete.
func (s *store) rebuild() {
	next := make([]components.Particle, len(s.entities))
	for i, e := range s.entities {
		pos, vel, sp := s.particleMapper.Get(e)
		next[i] = components.NewParticle(*pos, *vel, *sp)
	}
	s.buf = next
	s.back = nil
}

// buffers returns the kernel's source and destination for one step.
func (s *store) buffers(double bool) (src, dst []components.Particle) {
	if !double {
		return s.buf, s.buf
	}
	if len(s.back) != len(s.buf) {
		s.back = make([]components.Particle, len(s.buf))
	}
	return s.buf, s.back
}

// commit makes dst the live buffer after a double-buffered step.
func (s *store) commit(double bool) {
	if double {
		s.buf, s.back = s.back, s.buf
	}
}

// readback applies device results to the ECS mirror.
func (s *store) readback() {
	for i, e := range s.entities {
		pos, vel, sp := s.particleMapper.Get(e)
		p := &s.buf[i]
		pos.X, pos.Y = p.X, p.Y
		vel.X, vel.Y = p.VX, p.VY
		sp.ID = p.Species
	}
}

// publish copies the device buffer into a fresh snapshot for readers.
func (s *store) publish() []components.Particle {
	snap := make([]components.Particle, len(s.buf))
	copy(snap, s.buf)
	s.published.Store(&snap)
	return snap
}

// snapshot returns the latest published population. Callers must treat it
// as read-only.
func (s *store) snapshot() []components.Particle {
	return *s.published.Load()
}
