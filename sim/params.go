package sim

import (
	"fmt"
	"math"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/config"
	"github.com/pthm-cable/tgenesis/systems"
)

// Settings holds the live physics parameters. A copy is turned into the
// uniform record at the start of every step, so edits land on the next one.
type Settings struct {
	DT                  float64
	Friction            float64
	ReactionProbability float64
	RMin                float64
	RMax                float64
	Beta                float64
	WorldSize           float64
	ParticleSize        float64 // viewer only
}

// SettingsFromConfig reads the initial settings from config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DT:                  cfg.Physics.DT,
		Friction:            cfg.Physics.Friction,
		ReactionProbability: cfg.Physics.ReactionProbability,
		RMin:                cfg.Physics.RMin,
		RMax:                cfg.Physics.RMax,
		Beta:                cfg.Physics.Beta,
		WorldSize:           cfg.World.Size,
		ParticleSize:        cfg.Render.ParticleSize,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (st Settings) validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"dt", st.DT}, {"friction", st.Friction}, {"reaction probability", st.ReactionProbability},
		{"r_min", st.RMin}, {"r_max", st.RMax}, {"beta", st.Beta},
		{"world size", st.WorldSize}, {"particle size", st.ParticleSize},
	} {
		if !finite(f.v) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, f.name)
		}
	}
	switch {
	case st.DT <= 0:
		return fmt.Errorf("%w: dt %v must be positive", ErrInvalidConfig, st.DT)
	case st.Friction < 0 || st.Friction > 1:
		return fmt.Errorf("%w: friction %v outside [0, 1]", ErrInvalidConfig, st.Friction)
	case st.ReactionProbability < 0:
		return fmt.Errorf("%w: reaction probability %v is negative", ErrInvalidConfig, st.ReactionProbability)
	case st.RMin <= 0:
		return fmt.Errorf("%w: r_min %v must be positive", ErrInvalidConfig, st.RMin)
	case st.RMin >= st.RMax:
		return fmt.Errorf("%w: r_min %v must be below r_max %v", ErrInvalidConfig, st.RMin, st.RMax)
	case st.WorldSize <= 0:
		return fmt.Errorf("%w: world size %v must be positive", ErrInvalidConfig, st.WorldSize)
	case st.ParticleSize < 0:
		return fmt.Errorf("%w: particle size %v is negative", ErrInvalidConfig, st.ParticleSize)
	}
	return nil
}

// Settings returns a copy of the live settings.
func (s *Simulation) Settings() Settings {
	s.paramsMu.RLock()
	defer s.paramsMu.RUnlock()
	return s.settings
}

// updateSettings applies fn to a copy and stores it only if it validates.
func (s *Simulation) updateSettings(fn func(*Settings)) error {
	s.paramsMu.Lock()
	defer s.paramsMu.Unlock()
	next := s.settings
	fn(&next)
	if err := next.validate(); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// SetDT sets the integration timestep.
func (s *Simulation) SetDT(v float64) error {
	return s.updateSettings(func(st *Settings) { st.DT = v })
}

// SetFriction sets velocity damping in [0, 1].
func (s *Simulation) SetFriction(v float64) error {
	return s.updateSettings(func(st *Settings) { st.Friction = v })
}

// SetReactionProbability sets the reaction probability scale.
func (s *Simulation) SetReactionProbability(v float64) error {
	return s.updateSettings(func(st *Settings) { st.ReactionProbability = v })
}

// SetRMin sets the repulsion core radius. It must stay below r_max.
func (s *Simulation) SetRMin(v float64) error {
	return s.updateSettings(func(st *Settings) { st.RMin = v })
}

// SetRMax sets the interaction cutoff. It must stay above r_min.
func (s *Simulation) SetRMax(v float64) error {
	return s.updateSettings(func(st *Settings) { st.RMax = v })
}

// SetRadii sets both radii at once, for moves that would cross one another.
func (s *Simulation) SetRadii(rMin, rMax float64) error {
	return s.updateSettings(func(st *Settings) { st.RMin, st.RMax = rMin, rMax })
}

// SetBeta sets the force to velocity gain.
func (s *Simulation) SetBeta(v float64) error {
	return s.updateSettings(func(st *Settings) { st.Beta = v })
}

// SetParticleSize sets the viewer's particle radius.
func (s *Simulation) SetParticleSize(v float64) error {
	return s.updateSettings(func(st *Settings) { st.ParticleSize = v })
}

// SetWorldSize resizes the torus. Existing positions are wrapped into the
// new bounds between steps.
func (s *Simulation) SetWorldSize(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateSettings(func(st *Settings) { st.WorldSize = v }); err != nil {
		return err
	}
	s.wrapPositionsLocked(float32(v))
	return nil
}

func (s *Simulation) wrapPositionsLocked(size float32) {
	s.store.update(func(pos *components.Position, _ *components.Velocity, _ *components.Species) {
		pos.X = systems.Wrap(pos.X, size)
		pos.Y = systems.Wrap(pos.Y, size)
	})
	s.store.publish()
}

// buildParams turns the live settings into the uniform record. N and M are
// filled in by the caller.
func (s *Simulation) buildParams() (components.Params, error) {
	st := s.Settings()
	if err := st.validate(); err != nil {
		return components.Params{}, err
	}
	return components.Params{
		DT:        float32(st.DT),
		Friction:  float32(st.Friction),
		WorldSize: float32(st.WorldSize),
		RProb:     float32(st.ReactionProbability),
		RMin:      float32(st.RMin),
		RMax:      float32(st.RMax),
		Beta:      float32(st.Beta),
	}, nil
}
