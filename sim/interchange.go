package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/config"
	"github.com/pthm-cable/tgenesis/persist"
	"github.com/pthm-cable/tgenesis/species"
	"github.com/pthm-cable/tgenesis/telemetry"
)

// ExportRules captures the species tables and physics settings as a rules
// record stamped with the current time.
func (s *Simulation) ExportRules() *persist.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportLocked()
}

func (s *Simulation) exportLocked() *persist.Record {
	m := s.tables.Count()
	affinity := make([]float64, 0, m*m)
	for _, row := range s.tables.Affinity() {
		affinity = append(affinity, row...)
	}

	rules := s.tables.Rules()
	active := make([][4]int, len(rules))
	for i, r := range rules {
		active[i] = r.Array()
	}

	st := s.Settings()
	rec := &persist.Record{
		Species:     m,
		Affinities:  affinity,
		Reactions:   s.tables.ReactionTable(),
		ActiveRules: active,
		Parameters: &persist.Parameters{
			DT:           persist.Float(st.DT),
			Friction:     persist.Float(st.Friction),
			RProb:        persist.Float(st.ReactionProbability),
			RMin:         persist.Float(st.RMin),
			RMax:         persist.Float(st.RMax),
			Beta:         persist.Float(st.Beta),
			WorldSize:    persist.Float(st.WorldSize),
			ParticleSize: persist.Float(st.ParticleSize),
		},
	}
	rec.Stamp(time.Now())
	return rec
}

// ImportRules applies a rules record. The record is fully validated before
// anything changes. When its species count differs from the running one,
// the configured mismatch policy decides: reject returns
// ErrSpeciesMismatch, reseed resets the population to the record's species.
// The reaction table is always re-derived from the record's rules.
func (s *Simulation) ImportRules(rec *persist.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := rec.Validate(); err != nil {
		return err
	}

	reseed := false
	if m := s.tables.Count(); rec.Species != m {
		if s.cfg.Interchange.OnSpeciesMismatch != config.MismatchReseed {
			return fmt.Errorf("%w: record has %d species, simulation has %d", ErrSpeciesMismatch, rec.Species, m)
		}
		reseed = true
	}

	next, err := s.importedSettings(rec.Parameters)
	if err != nil {
		return err
	}

	return s.applyRecordLocked(rec, next, reseed, nil)
}

// importedSettings overlays the record's parameters on the live settings
// and validates the result.
func (s *Simulation) importedSettings(p *persist.Parameters) (Settings, error) {
	next := s.Settings()
	if p == nil {
		return next, nil
	}
	for _, f := range []struct {
		src *float64
		dst *float64
	}{
		{p.DT, &next.DT}, {p.Friction, &next.Friction}, {p.RProb, &next.ReactionProbability},
		{p.RMin, &next.RMin}, {p.RMax, &next.RMax}, {p.Beta, &next.Beta},
		{p.WorldSize, &next.WorldSize}, {p.ParticleSize, &next.ParticleSize},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if err := next.validate(); err != nil {
		return Settings{}, err
	}
	return next, nil
}

// applyRecordLocked installs a validated record. When particles is non-nil
// it replaces the population; otherwise a reseed regenerates the current
// count over the record's species.
func (s *Simulation) applyRecordLocked(rec *persist.Record, next Settings, reseed bool, particles []components.Particle) error {
	rules := make([]species.Rule, len(rec.ActiveRules))
	for i, a := range rec.ActiveRules {
		rules[i] = species.RuleFromArray(a)
	}
	if derived := species.BuildReactions(rec.Species, rules); !slices.Equal(derived, rec.Reactions) {
		slog.Warn("rules record reaction table differs from its rules, using derived table",
			"species", rec.Species,
			"rules", len(rules),
		)
	}

	prevSize := s.Settings().WorldSize
	n := s.store.len()

	if reseed || particles != nil {
		if err := s.tables.Reset(rec.Species); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if err := s.tables.SetAffinity(rec.AffinityRows()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := s.tables.SetRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s.paramsMu.Lock()
	s.settings = next
	s.paramsMu.Unlock()

	switch {
	case particles != nil:
		if err := s.store.replace(particles); err != nil {
			return err
		}
		s.store.publish()
	case reseed:
		if err := s.seedLocked(n); err != nil {
			return err
		}
	case next.WorldSize != prevSize:
		s.wrapPositionsLocked(float32(next.WorldSize))
	}

	s.collector.Record(telemetry.NewRulesLoadedEvent(s.tick, len(rules)))
	slog.Info("rules imported",
		"species", rec.Species,
		"rules", len(rules),
		"reseeded", reseed,
	)
	return nil
}

// SaveRules exports the current rules into dir and returns the file path.
func (s *Simulation) SaveRules(dir string) (string, error) {
	return persist.Save(s.ExportRules(), dir)
}

// LoadRules reads a rules file and imports it.
func (s *Simulation) LoadRules(path string) error {
	rec, err := persist.Load(path)
	if err != nil {
		return err
	}
	return s.ImportRules(rec)
}
