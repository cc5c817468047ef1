package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/tgenesis/config"
)

func TestAddParticles(t *testing.T) {
	s := newTestSim(t, nil)
	before := s.Len()

	if err := s.AddParticles(1, 1999, 50, 2); err != nil {
		t.Fatalf("AddParticles: %v", err)
	}
	snap := s.Snapshot()
	if len(snap) != before+50 {
		t.Fatalf("N = %d, want %d", len(snap), before+50)
	}
	checkBounds(t, snap, 3, float32(s.Settings().WorldSize))

	for _, p := range snap[before:] {
		if p.Species != 2 {
			t.Errorf("added particle has species %d, want 2", p.Species)
		}
		if p.VX != 0 || p.VY != 0 {
			t.Errorf("added particle has velocity (%v, %v)", p.VX, p.VY)
		}
	}
}

func TestAddParticlesRejects(t *testing.T) {
	s := newTestSim(t, nil)
	before := s.Snapshot()

	tests := []struct {
		name      string
		x, y      float64
		count, sp int
	}{
		{"zero count", 10, 10, 0, 0},
		{"negative species", 10, 10, 1, -1},
		{"species out of range", 10, 10, 1, 3},
		{"nan position", math.NaN(), 10, 1, 0},
		{"infinite position", 10, math.Inf(1), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddParticles(tt.x, tt.y, tt.count, tt.sp)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
			if s.Len() != len(before) {
				t.Errorf("N changed to %d", s.Len())
			}
		})
	}
}

func TestAddParticlesCapacity(t *testing.T) {
	s := newTestSim(t, func(c *config.Config) {
		c.Population.Particles = 90
		c.Kernel.MaxParticles = 100
	})
	before := s.Snapshot()

	if err := s.AddParticles(10, 10, 20, 0); !errors.Is(err, ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
	if s.Len() != 90 {
		t.Errorf("N = %d after capacity error, want 90", s.Len())
	}
	after := s.Snapshot()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("particle %d changed after capacity error", i)
		}
	}

	if err := s.AddParticles(10, 10, 10, 0); err != nil {
		t.Errorf("filling to capacity: %v", err)
	}
	if err := s.Reset(101, 3, 1000); !errors.Is(err, ErrCapacity) {
		t.Errorf("Reset beyond capacity = %v, want ErrCapacity", err)
	}
}

func TestRemoveParticles(t *testing.T) {
	s := newTestSim(t, func(c *config.Config) { c.Editor.Jitter = 0 })
	if err := s.Reset(0, 1, 1000); err != nil {
		t.Fatal(err)
	}
	for _, at := range []struct {
		x, y  float64
		count int
	}{
		{10, 10, 5},
		{995, 10, 5}, // across the seam from x=0
		{500, 500, 3},
	} {
		if err := s.AddParticles(at.x, at.y, at.count, 0); err != nil {
			t.Fatal(err)
		}
	}

	// radius 4 reaches 20 with the default remove scale
	removed, err := s.RemoveParticles(0, 10, 4)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 10 {
		t.Errorf("removed %d, want 10", removed)
	}
	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("N = %d, want 3", len(snap))
	}
	for _, p := range snap {
		if p.X != 500 || p.Y != 500 {
			t.Errorf("wrong particle kept at (%v, %v)", p.X, p.Y)
		}
	}
}

func TestRemoveParticlesNothingInRange(t *testing.T) {
	s := newTestSim(t, func(c *config.Config) { c.Editor.Jitter = 0 })
	if err := s.Reset(0, 1, 1000); err != nil {
		t.Fatal(err)
	}
	if err := s.AddParticles(500, 500, 4, 0); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	removed, err := s.RemoveParticles(100, 100, 1)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("removed %d, want 0", removed)
	}
	// No rebuild, so the published snapshot is untouched.
	if after := s.Snapshot(); &after[0] != &before[0] {
		t.Error("snapshot republished although nothing was removed")
	}

	if _, err := s.RemoveParticles(0, 0, -1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative radius = %v, want ErrInvalidConfig", err)
	}
}

func TestSetSpeciesCountFolds(t *testing.T) {
	s := newTestSim(t, nil)
	if err := s.Reset(200, 5, 1000); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	if err := s.SetSpeciesCount(3); err != nil {
		t.Fatal(err)
	}
	after := s.Snapshot()
	if s.SpeciesCount() != 3 {
		t.Errorf("SpeciesCount = %d, want 3", s.SpeciesCount())
	}
	for i := range before {
		if want := before[i].Species % 3; after[i].Species != want {
			t.Fatalf("particle %d species %d, want %d", i, after[i].Species, want)
		}
	}
	if len(s.ReactionTable()) != 3*3*2 {
		t.Errorf("reaction table len = %d, want 18", len(s.ReactionTable()))
	}

	if err := s.SetSpeciesCount(0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SetSpeciesCount(0) = %v, want ErrInvalidConfig", err)
	}

	// Population is conserved through the resize and following steps
	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}
	checkBounds(t, s.Snapshot(), 3, 1000)
}

func TestResetRejectsInvalid(t *testing.T) {
	s := newTestSim(t, nil)
	m := s.SpeciesCount()

	for _, tt := range []struct {
		name string
		n, m int
		size float64
	}{
		{"negative n", -1, 2, 100},
		{"zero species", 10, 0, 100},
		{"zero world", 10, 2, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Reset(tt.n, tt.m, tt.size); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
			if s.SpeciesCount() != m || s.Len() != 100 {
				t.Error("rejected Reset changed state")
			}
		})
	}
}
