// Package species manages the per-species-pair tables the interaction
// kernel reads: the affinity matrix and the reaction table derived from an
// ordered list of authored rules.
package species

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/tgenesis/config"
)

var (
	// ErrSpeciesCount is returned for a species count below one.
	ErrSpeciesCount = errors.New("species count must be at least 1")
	// ErrIndex is returned when a species index is outside [0, M).
	ErrIndex = errors.New("species index out of range")
	// ErrShape is returned when an affinity matrix is not M x M.
	ErrShape = errors.New("affinity matrix has wrong shape")
	// ErrRuleIndex is returned when removing a rule that does not exist.
	ErrRuleIndex = errors.New("rule index out of range")
	// ErrValue is returned for non-finite affinity values.
	ErrValue = errors.New("affinity value is not finite")
)

// Options bounds table contents.
type Options struct {
	MaxRules       int
	InitRange      float64
	ClampRange     float64
	RandomRulesMin int
	RandomRulesMax int
}

// OptionsFromConfig reads table bounds from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRules:       cfg.Rules.MaxActive,
		InitRange:      cfg.Affinity.InitRange,
		ClampRange:     cfg.Affinity.ClampRange,
		RandomRulesMin: cfg.Rules.RandomMin,
		RandomRulesMax: cfg.Rules.RandomMax,
	}
}

// Tables holds the affinity matrix, the active rule list and the reaction
// table derived from it. All methods are safe for concurrent use; edits are
// last-writer-wins and become visible to the next Upload.
type Tables struct {
	mu   sync.RWMutex
	opts Options
	rng  *rand.Rand

	m         int
	affinity  *mat.Dense
	rules     []Rule
	reactions []uint32
}

// New creates m x m tables with a random affinity matrix, identity
// reactions and no rules.
func New(m int, opts Options, rng *rand.Rand) (*Tables, error) {
	if m < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSpeciesCount, m)
	}
	t := &Tables{opts: opts, rng: rng}
	t.resetLocked(m)
	return t, nil
}

// Count returns the species count M.
func (t *Tables) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m
}

// Reset reinitializes the tables for m species: random affinity, no rules.
func (t *Tables) Reset(m int) error {
	if m < 1 {
		return fmt.Errorf("%w: got %d", ErrSpeciesCount, m)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked(m)
	return nil
}

func (t *Tables) resetLocked(m int) {
	t.m = m
	t.affinity = mat.NewDense(m, m, nil)
	t.randomizeLocked(t.affinity)
	t.rules = nil
	t.reactions = BuildReactions(m, nil)
}

// SetSpeciesCount resizes the tables to m species. Affinity cells shared by
// the old and new sizes are kept, new cells are drawn at random, and rules
// naming a species >= m are dropped. The reaction table is rebuilt.
func (t *Tables) SetSpeciesCount(m int) error {
	if m < 1 {
		return fmt.Errorf("%w: got %d", ErrSpeciesCount, m)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if m == t.m {
		return nil
	}

	next := mat.NewDense(m, m, nil)
	t.randomizeLocked(next)
	k := min(m, t.m)
	next.Slice(0, k, 0, k).(*mat.Dense).Copy(t.affinity.Slice(0, k, 0, k))

	kept := t.rules[:0:0]
	for _, r := range t.rules {
		if r.Validate(m) == nil {
			kept = append(kept, r)
		}
	}

	t.m = m
	t.affinity = next
	t.rules = kept
	t.reactions = BuildReactions(m, kept)
	return nil
}

// RandomizeAffinity redraws every affinity cell uniformly from the init range.
func (t *Tables) RandomizeAffinity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.randomizeLocked(t.affinity)
}

func (t *Tables) randomizeLocked(d *mat.Dense) {
	span := t.opts.InitRange
	d.Apply(func(_, _ int, _ float64) float64 {
		return (t.rng.Float64()*2 - 1) * span
	}, d)
}

func (t *Tables) clamp(v float64) float64 {
	return math.Max(-t.opts.ClampRange, math.Min(t.opts.ClampRange, v))
}

// AffinityCell returns affinity[i][j].
func (t *Tables) AffinityCell(i, j int) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkPair(i, j); err != nil {
		return 0, err
	}
	return t.affinity.At(i, j), nil
}

// SetAffinityCell clamps v to the clamp range and writes affinity[i][j].
func (t *Tables) SetAffinityCell(i, j int, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrValue, v)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkPair(i, j); err != nil {
		return err
	}
	t.affinity.Set(i, j, t.clamp(v))
	return nil
}

// FlipAffinityCell negates affinity[i][j], turning attraction into repulsion.
func (t *Tables) FlipAffinityCell(i, j int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkPair(i, j); err != nil {
		return err
	}
	t.affinity.Set(i, j, -t.affinity.At(i, j))
	return nil
}

func (t *Tables) checkPair(i, j int) error {
	if i < 0 || i >= t.m || j < 0 || j >= t.m {
		return fmt.Errorf("%w: (%d, %d) with %d species", ErrIndex, i, j, t.m)
	}
	return nil
}

// Affinity returns a copy of the matrix as rows.
func (t *Tables) Affinity() [][]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([][]float64, t.m)
	for i := range rows {
		rows[i] = mat.Row(nil, i, t.affinity)
	}
	return rows
}

// SetAffinity replaces the whole matrix. rows must be M x M with finite
// values; each cell is clamped. Nothing changes on error.
func (t *Tables) SetAffinity(rows [][]float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(rows) != t.m {
		return fmt.Errorf("%w: %d rows for %d species", ErrShape, len(rows), t.m)
	}
	data := make([]float64, 0, t.m*t.m)
	for i, row := range rows {
		if len(row) != t.m {
			return fmt.Errorf("%w: row %d has %d cells for %d species", ErrShape, i, len(row), t.m)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d", ErrValue, i)
			}
		}
		data = append(data, row...)
	}

	next := mat.NewDense(t.m, t.m, data)
	next.Apply(func(_, _ int, v float64) float64 { return t.clamp(v) }, next)
	t.affinity = next
	return nil
}

// Rules returns a copy of the active rule list, oldest first.
func (t *Tables) Rules() []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// AddRule appends a rule, evicting the oldest when the list is full.
func (t *Tables) AddRule(r Rule) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := r.Validate(t.m); err != nil {
		return err
	}
	t.rules = append(t.rules, r)
	if over := len(t.rules) - t.opts.MaxRules; over > 0 {
		t.rules = append([]Rule(nil), t.rules[over:]...)
	}
	t.reactions = BuildReactions(t.m, t.rules)
	return nil
}

// RemoveRule deletes the rule at index.
func (t *Tables) RemoveRule(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rules) {
		return fmt.Errorf("%w: %d of %d", ErrRuleIndex, index, len(t.rules))
	}
	t.rules = append(t.rules[:index:index], t.rules[index+1:]...)
	t.reactions = BuildReactions(t.m, t.rules)
	return nil
}

// SetRules replaces the rule list. Every rule must be valid for the current
// species count; only the newest MaxRules are kept.
func (t *Tables) SetRules(rules []Rule) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range rules {
		if err := r.Validate(t.m); err != nil {
			return err
		}
	}
	if over := len(rules) - t.opts.MaxRules; over > 0 {
		rules = rules[over:]
	}
	t.rules = append([]Rule(nil), rules...)
	t.reactions = BuildReactions(t.m, t.rules)
	return nil
}

// ClearRules drops every rule, returning the reaction table to identity.
func (t *Tables) ClearRules() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = nil
	t.reactions = BuildReactions(t.m, nil)
}

// RandomizeRules replaces the list with a random number of random rules.
func (t *Tables) RandomizeRules() {
	t.mu.Lock()
	defer t.mu.Unlock()

	lo, hi := t.opts.RandomRulesMin, t.opts.RandomRulesMax
	count := lo + t.rng.Intn(hi-lo+1)
	count = min(count, t.opts.MaxRules)

	rules := make([]Rule, count)
	for i := range rules {
		rules[i] = Rule{
			A:    t.rng.Intn(t.m),
			B:    t.rng.Intn(t.m),
			OutA: t.rng.Intn(t.m),
			OutB: t.rng.Intn(t.m),
		}
	}
	t.rules = rules
	t.reactions = BuildReactions(t.m, rules)
}

// ReactionTable returns a copy of the derived table (M*M*2 entries).
func (t *Tables) ReactionTable() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]uint32, len(t.reactions))
	copy(out, t.reactions)
	return out
}

// Upload copies the current tables into the kernel's flat buffers, reusing
// their storage when large enough. It returns the species count the buffers
// were built for.
func (t *Tables) Upload(aff []float32, react []uint32) ([]float32, []uint32, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.m * t.m
	if cap(aff) < n {
		aff = make([]float32, n)
	}
	aff = aff[:n]
	for i := 0; i < t.m; i++ {
		for j := 0; j < t.m; j++ {
			aff[i*t.m+j] = float32(t.affinity.At(i, j))
		}
	}

	react = append(react[:0], t.reactions...)
	return aff, react, t.m
}
