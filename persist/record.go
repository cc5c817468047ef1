// Package persist reads and writes rules files: the species count, affinity
// matrix, reaction table, active rules and physics parameters of a run.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Version is written to every rules file.
const Version = "1.0"

// MaxSpecies bounds the species count a record may declare, so the table
// sizes derived from it stay small and cannot overflow.
const MaxSpecies = 1 << 12

// ErrMalformed is returned when a record fails validation.
var ErrMalformed = errors.New("malformed rules record")

// Record is the rules-file interchange format.
type Record struct {
	Version     string      `json:"version"`
	Timestamp   int64       `json:"timestamp"` // unix milliseconds
	Date        string      `json:"date,omitempty"`
	Species     int         `json:"species"`
	Affinities  []float64   `json:"affinities"`  // species*species, row-major
	Reactions   []uint32    `json:"reactions"`   // species*species*2, row-major
	ActiveRules [][4]int    `json:"activeRules"` // [a, b, outA, outB]
	Parameters  *Parameters `json:"parameters,omitempty"`
}

// Parameters holds the physics settings of a record. Absent fields leave
// the running value untouched on import.
type Parameters struct {
	DT           *float64 `json:"dt,omitempty"`
	Friction     *float64 `json:"friction,omitempty"`
	RProb        *float64 `json:"rProb,omitempty"`
	RMin         *float64 `json:"rMin,omitempty"`
	RMax         *float64 `json:"rMax,omitempty"`
	Beta         *float64 `json:"beta,omitempty"`
	WorldSize    *float64 `json:"worldSize,omitempty"`
	ParticleSize *float64 `json:"particleSize,omitempty"`
}

// Float returns a pointer to v, for building Parameters.
func Float(v float64) *float64 {
	return &v
}

// Stamp sets Version, Timestamp and Date from t.
func (r *Record) Stamp(t time.Time) {
	r.Version = Version
	r.Timestamp = t.UnixMilli()
	r.Date = t.Format(time.DateTime)
}

// AffinityRows splits the flat affinity array into rows. Call Validate first.
func (r *Record) AffinityRows() [][]float64 {
	rows := make([][]float64, r.Species)
	for i := range rows {
		rows[i] = r.Affinities[i*r.Species : (i+1)*r.Species]
	}
	return rows
}

// Validate checks the record's internal consistency. It does not compare
// against any running simulation.
func (r *Record) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("%w: missing version", ErrMalformed)
	}
	m := r.Species
	if m < 1 || m > MaxSpecies {
		return fmt.Errorf("%w: species = %d, want 1..%d", ErrMalformed, m, MaxSpecies)
	}
	if len(r.Affinities) != m*m {
		return fmt.Errorf("%w: %d affinities for %d species, want %d", ErrMalformed, len(r.Affinities), m, m*m)
	}
	for i, v := range r.Affinities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: affinity %d is not finite", ErrMalformed, i)
		}
	}
	if len(r.Reactions) != m*m*2 {
		return fmt.Errorf("%w: %d reaction entries for %d species, want %d", ErrMalformed, len(r.Reactions), m, m*m*2)
	}
	for i, v := range r.Reactions {
		if int(v) >= m {
			return fmt.Errorf("%w: reaction entry %d names species %d", ErrMalformed, i, v)
		}
	}
	for i, rule := range r.ActiveRules {
		for _, idx := range rule {
			if idx < 0 || idx >= m {
				return fmt.Errorf("%w: rule %d %v out of range for %d species", ErrMalformed, i, rule, m)
			}
		}
	}
	if r.Parameters != nil {
		if err := r.Parameters.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parameters) validate() error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"dt", p.DT}, {"friction", p.Friction}, {"rProb", p.RProb}, {"rMin", p.RMin},
		{"rMax", p.RMax}, {"beta", p.Beta}, {"worldSize", p.WorldSize}, {"particleSize", p.ParticleSize},
	}
	for _, f := range fields {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%w: parameter %s is not finite", ErrMalformed, f.name)
		}
	}
	if p.Friction != nil && (*p.Friction < 0 || *p.Friction > 1) {
		return fmt.Errorf("%w: friction %v outside [0,1]", ErrMalformed, *p.Friction)
	}
	if p.WorldSize != nil && *p.WorldSize <= 0 {
		return fmt.Errorf("%w: worldSize %v", ErrMalformed, *p.WorldSize)
	}
	if p.RMin != nil && p.RMax != nil && *p.RMin >= *p.RMax {
		return fmt.Errorf("%w: rMin %v >= rMax %v", ErrMalformed, *p.RMin, *p.RMax)
	}
	return nil
}

// Decode parses and validates a record.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Encode validates and serializes a record.
func Encode(r *Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rules: %w", err)
	}
	return data, nil
}

// Save writes a record into dir as tgenesis-rules-<timestamp>.json and
// returns the file path.
func Save(r *Record, dir string) (string, error) {
	data, err := Encode(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create rules dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("tgenesis-rules-%d.json", r.Timestamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write rules: %w", err)
	}
	return path, nil
}

// Load reads and validates a record from disk.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Decode(data)
}
