package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/persist"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete simulation state for replay.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`
	Tick    int32 `json:"tick"`

	// Rules carries species tables and physics parameters.
	Rules *persist.Record `json:"rules"`

	Particles []ParticleState `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle's complete state.
type ParticleState struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	VelX    float32 `json:"vel_x"`
	VelY    float32 `json:"vel_y"`
	Species uint32  `json:"species"`
}

// ParticleStates converts a published buffer into its JSON form.
func ParticleStates(buf []components.Particle) []ParticleState {
	out := make([]ParticleState, len(buf))
	for i, p := range buf {
		out[i] = ParticleState{X: p.X, Y: p.Y, VelX: p.VX, VelY: p.VY, Species: p.Species}
	}
	return out
}

// Buffer converts the stored particles back into device records.
func (s *Snapshot) Buffer() []components.Particle {
	out := make([]components.Particle, len(s.Particles))
	for i, p := range s.Particles {
		out[i] = components.Particle{X: p.X, Y: p.Y, VX: p.VelX, VY: p.VelY, Species: p.Species}
	}
	return out
}

// Validate checks that the snapshot can be restored.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if s.Rules == nil {
		return fmt.Errorf("snapshot has no rules")
	}
	if err := s.Rules.Validate(); err != nil {
		return err
	}
	for i, p := range s.Particles {
		if int(p.Species) >= s.Rules.Species {
			return fmt.Errorf("snapshot particle %d has species %d of %d", i, p.Species, s.Rules.Species)
		}
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	return &snapshot, nil
}
