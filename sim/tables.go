package sim

import (
	"fmt"

	"github.com/pthm-cable/tgenesis/species"
)

// Table edits take the tables' own lock, not the step mutex. They become
// visible at the next step's upload; concurrent edits are last-writer-wins.

// SpeciesCount returns M.
func (s *Simulation) SpeciesCount() int {
	return s.tables.Count()
}

// Affinity returns a copy of the M x M affinity matrix.
func (s *Simulation) Affinity() [][]float64 {
	return s.tables.Affinity()
}

// SetAffinity replaces the affinity matrix. Cells are clamped.
func (s *Simulation) SetAffinity(rows [][]float64) error {
	if err := s.tables.SetAffinity(rows); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SetAffinityCell writes one clamped affinity value.
func (s *Simulation) SetAffinityCell(i, j int, v float64) error {
	if err := s.tables.SetAffinityCell(i, j, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FlipAffinityCell negates affinity[i][j].
func (s *Simulation) FlipAffinityCell(i, j int) error {
	if err := s.tables.FlipAffinityCell(i, j); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RandomizeAffinity redraws the whole matrix.
func (s *Simulation) RandomizeAffinity() {
	s.tables.RandomizeAffinity()
}

// ActiveRules returns the rule list, oldest first.
func (s *Simulation) ActiveRules() []species.Rule {
	return s.tables.Rules()
}

// SetActiveRules replaces the rule list and rebuilds the reaction table.
func (s *Simulation) SetActiveRules(rules []species.Rule) error {
	if err := s.tables.SetRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// AddRule appends a rule, evicting the oldest when full.
func (s *Simulation) AddRule(r species.Rule) error {
	if err := s.tables.AddRule(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RemoveRule deletes the rule at index.
func (s *Simulation) RemoveRule(index int) error {
	if err := s.tables.RemoveRule(index); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ClearRules drops every rule.
func (s *Simulation) ClearRules() {
	s.tables.ClearRules()
}

// RandomizeRules replaces the rule list with random rules.
func (s *Simulation) RandomizeRules() {
	s.tables.RandomizeRules()
}

// ReactionTable returns a copy of the derived M x M x 2 table.
func (s *Simulation) ReactionTable() []uint32 {
	return s.tables.ReactionTable()
}
