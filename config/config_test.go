package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.Population.Species != 6 {
		t.Errorf("species = %d, want 6", cfg.Population.Species)
	}
	if cfg.Rules.MaxActive != 20 {
		t.Errorf("rules.max_active = %d, want 20", cfg.Rules.MaxActive)
	}
	if cfg.Physics.RMin >= cfg.Physics.RMax {
		t.Errorf("defaults violate r_min < r_max: %v >= %v", cfg.Physics.RMin, cfg.Physics.RMax)
	}
	if cfg.Derived.WorldSize32 != float32(cfg.World.Size) {
		t.Errorf("derived world size %v, want %v", cfg.Derived.WorldSize32, cfg.World.Size)
	}
	if cfg.Derived.Workers < 1 {
		t.Errorf("derived workers = %d, want >= 1", cfg.Derived.Workers)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	overlay := []byte("physics:\n  friction: 0.3\npopulation:\n  species: 3\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Physics.Friction != 0.3 {
		t.Errorf("friction = %v, want 0.3", cfg.Physics.Friction)
	}
	if cfg.Population.Species != 3 {
		t.Errorf("species = %d, want 3", cfg.Population.Species)
	}
	// Untouched fields keep their defaults
	if cfg.Physics.RMax != 80 {
		t.Errorf("r_max = %v, want default 80", cfg.Physics.RMax)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
	}{
		{"rmin equals rmax", "physics:\n  r_min: 50\n  r_max: 50\n"},
		{"friction above one", "physics:\n  friction: 1.5\n"},
		{"zero species", "population:\n  species: 0\n"},
		{"negative world", "world:\n  size: -1\n"},
		{"unknown policy", "interchange:\n  on_species_mismatch: merge\n"},
		{"capacity below population", "kernel:\n  max_particles: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.overlay), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Physics.Beta = 0.125

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Physics.Beta != 0.125 {
		t.Errorf("beta = %v, want 0.125", loaded.Physics.Beta)
	}
}
