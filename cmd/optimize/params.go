package main

import (
	"github.com/pthm-cable/tgenesis/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// dt, world size and the population are held fixed.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "beta", Path: "physics.beta", Min: 0.005, Max: 0.3, Default: 0.05},
			{Name: "friction", Path: "physics.friction", Min: 0.01, Max: 0.6, Default: 0.1},
			{Name: "r_min", Path: "physics.r_min", Min: 2, Max: 40, Default: 15},
			// Stored as the gap above r_min so every point keeps r_min < r_max.
			{Name: "r_span", Path: "physics.r_max - physics.r_min", Min: 10, Max: 150, Default: 65},
			{Name: "reaction_probability", Path: "physics.reaction_probability", Min: 0, Max: 5, Default: 1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = max(spec.Min, min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Physics.Beta = clamped[0]
	cfg.Physics.Friction = clamped[1]
	cfg.Physics.RMin = clamped[2]
	cfg.Physics.RMax = clamped[2] + clamped[3]
	cfg.Physics.ReactionProbability = clamped[4]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Physics.Beta,
		cfg.Physics.Friction,
		cfg.Physics.RMin,
		cfg.Physics.RMax - cfg.Physics.RMin,
		cfg.Physics.ReactionProbability,
	}
}
