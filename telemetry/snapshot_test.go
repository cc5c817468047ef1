package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/persist"
)

func testRecord() *persist.Record {
	return &persist.Record{
		Version:     persist.Version,
		Timestamp:   1700000000000,
		Species:     2,
		Affinities:  []float64{0, 1, -1, 0.5},
		Reactions:   []uint32{0, 0, 1, 1, 1, 1, 1, 1},
		ActiveRules: [][4]int{{0, 1, 1, 1}},
		Parameters:  &persist.Parameters{Friction: persist.Float(0.1)},
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	buf := []components.Particle{
		{X: 150, Y: 250, VX: 0.5, VY: -0.3, Species: 1},
		{X: 10, Y: 20, Species: 0},
	}
	snapshot := &Snapshot{
		Version:   SnapshotVersion,
		RNGSeed:   42,
		Tick:      1000,
		Rules:     testRecord(),
		Particles: ParticleStates(buf),
		Bookmark: &Bookmark{
			Type:        BookmarkSpeciesDominance,
			Tick:        1000,
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if !strings.HasSuffix(path, "snapshot_1000_species_dominance.json") {
		t.Errorf("unexpected snapshot path %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.RNGSeed != 42 || loaded.Tick != 1000 {
		t.Errorf("seed/tick = %d/%d, want 42/1000", loaded.RNGSeed, loaded.Tick)
	}
	if loaded.Rules.Species != 2 || len(loaded.Rules.ActiveRules) != 1 {
		t.Errorf("rules not restored: %+v", loaded.Rules)
	}
	got := loaded.Buffer()
	if len(got) != len(buf) {
		t.Fatalf("restored %d particles, want %d", len(got), len(buf))
	}
	for i := range buf {
		if got[i] != buf[i] {
			t.Errorf("particle %d = %+v, want %+v", i, got[i], buf[i])
		}
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkSpeciesDominance {
		t.Error("bookmark not preserved")
	}
}

func TestSnapshotFilenameWithoutBookmark(t *testing.T) {
	snapshot := &Snapshot{Version: SnapshotVersion, Tick: 7, Rules: testRecord()}
	path, err := SaveSnapshot(snapshot, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "snapshot_7.json" {
		t.Errorf("filename = %s, want snapshot_7.json", filepath.Base(path))
	}
}

func TestLoadSnapshotRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"wrong version", func(s *Snapshot) { s.Version = 99 }},
		{"missing rules", func(s *Snapshot) { s.Rules = nil }},
		{"species out of range", func(s *Snapshot) {
			s.Particles = []ParticleState{{Species: 2}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{Version: SnapshotVersion, Rules: testRecord()}
			tt.mutate(s)

			data, err := json.Marshal(s)
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), "bad.json")
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadSnapshot(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
