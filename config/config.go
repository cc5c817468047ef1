// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate when a value is out of range.
var ErrInvalid = errors.New("invalid config")

// Mismatch policies for importing a rules file whose species count differs
// from the running simulation.
const (
	MismatchReject = "reject"
	MismatchReseed = "reseed"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	World       WorldConfig       `yaml:"world"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Population  PopulationConfig  `yaml:"population"`
	Kernel      KernelConfig      `yaml:"kernel"`
	Affinity    AffinityConfig    `yaml:"affinity"`
	Rules       RulesConfig       `yaml:"rules"`
	Editor      EditorConfig      `yaml:"editor"`
	Render      RenderConfig      `yaml:"render"`
	Interchange InterchangeConfig `yaml:"interchange"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bookmarks   BookmarksConfig   `yaml:"bookmarks"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	TargetFPS  int `yaml:"target_fps"`
	PanelWidth int `yaml:"panel_width"` // control panel on the right edge
}

// WorldConfig holds the torus dimensions. The world is always square.
type WorldConfig struct {
	Size float64 `yaml:"size"`
}

// PhysicsConfig holds the interaction parameters uploaded every step.
type PhysicsConfig struct {
	DT                  float64 `yaml:"dt"`
	Friction            float64 `yaml:"friction"`             // velocity damping in [0, 1]
	ReactionProbability float64 `yaml:"reaction_probability"` // scaled by 0.005 per close contact
	RMin                float64 `yaml:"r_min"`                // repulsion core radius
	RMax                float64 `yaml:"r_max"`                // interaction cutoff
	Beta                float64 `yaml:"beta"`                 // force to velocity gain
}

// PopulationConfig holds the seed population.
type PopulationConfig struct {
	Particles int `yaml:"particles"`
	Species   int `yaml:"species"`
}

// KernelConfig controls how a step is dispatched across workers.
type KernelConfig struct {
	Workers           int  `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int  `yaml:"parallel_threshold"` // below this, run on the caller goroutine
	MaxParticles      int  `yaml:"max_particles"`      // device buffer capacity
	DoubleBuffer      bool `yaml:"double_buffer"`      // read a frozen copy instead of in place
}

// AffinityConfig holds affinity matrix bounds.
type AffinityConfig struct {
	InitRange  float64 `yaml:"init_range"`  // random cells drawn from [-init, init]
	ClampRange float64 `yaml:"clamp_range"` // edits clamped to [-clamp, clamp]
}

// RulesConfig holds reaction rule limits.
type RulesConfig struct {
	MaxActive int `yaml:"max_active"`
	RandomMin int `yaml:"random_min"`
	RandomMax int `yaml:"random_max"`
}

// EditorConfig holds brush parameters for adding and removing particles.
type EditorConfig struct {
	Jitter      float64 `yaml:"jitter"`       // full width of the spawn jitter box
	RemoveScale float64 `yaml:"remove_scale"` // remove radius = brush * this
	BrushSize   float64 `yaml:"brush_size"`
	BrushCount  int     `yaml:"brush_count"` // particles added per click
}

// RenderConfig holds viewer parameters.
type RenderConfig struct {
	ParticleSize float64 `yaml:"particle_size"`
	MinZoom      float64 `yaml:"min_zoom"`
	MaxZoom      float64 `yaml:"max_zoom"`
	InitialZoom  float64 `yaml:"initial_zoom"`
}

// InterchangeConfig holds rules-file import policy.
type InterchangeConfig struct {
	OnSpeciesMismatch string `yaml:"on_species_mismatch"` // reject | reseed
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // steps per stats window
	BookmarkHistorySize int `yaml:"bookmark_history_size"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	Dominance     DominanceConfig     `yaml:"dominance"`
	ReactionBurst ReactionBurstConfig `yaml:"reaction_burst"`
}

// DominanceConfig triggers when one species holds at least Share of the population.
type DominanceConfig struct {
	Share         float64 `yaml:"share"`
	MinPopulation int     `yaml:"min_population"`
}

// ReactionBurstConfig triggers when reactions exceed Multiplier x the rolling average.
type ReactionBurstConfig struct {
	Multiplier   float64 `yaml:"multiplier"`
	MinReactions int     `yaml:"min_reactions"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32 // Physics.DT as float32
	WorldSize32 float32 // World.Size as float32
	ScreenW32   float32
	ScreenH32   float32
	Workers     int // effective worker count
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks value ranges. It does not modify the config.
func (c *Config) Validate() error {
	p := c.Physics
	switch {
	case c.World.Size <= 0:
		return fmt.Errorf("%w: world.size must be positive, got %v", ErrInvalid, c.World.Size)
	case p.DT <= 0:
		return fmt.Errorf("%w: physics.dt must be positive, got %v", ErrInvalid, p.DT)
	case p.Friction < 0 || p.Friction > 1:
		return fmt.Errorf("%w: physics.friction must be in [0,1], got %v", ErrInvalid, p.Friction)
	case p.ReactionProbability < 0:
		return fmt.Errorf("%w: physics.reaction_probability must be >= 0, got %v", ErrInvalid, p.ReactionProbability)
	case p.RMin <= 0 || p.RMin >= p.RMax:
		return fmt.Errorf("%w: physics requires 0 < r_min < r_max, got r_min=%v r_max=%v", ErrInvalid, p.RMin, p.RMax)
	case c.Population.Particles < 0:
		return fmt.Errorf("%w: population.particles must be >= 0", ErrInvalid)
	case c.Population.Species < 1:
		return fmt.Errorf("%w: population.species must be >= 1", ErrInvalid)
	case c.Kernel.MaxParticles < c.Population.Particles:
		return fmt.Errorf("%w: kernel.max_particles (%d) below population.particles (%d)",
			ErrInvalid, c.Kernel.MaxParticles, c.Population.Particles)
	case c.Kernel.Workers < 0:
		return fmt.Errorf("%w: kernel.workers must be >= 0", ErrInvalid)
	case c.Rules.MaxActive < 1:
		return fmt.Errorf("%w: rules.max_active must be >= 1", ErrInvalid)
	case c.Rules.RandomMin < 0 || c.Rules.RandomMin > c.Rules.RandomMax:
		return fmt.Errorf("%w: rules.random_min/random_max out of order", ErrInvalid)
	case c.Affinity.ClampRange <= 0 || c.Affinity.InitRange > c.Affinity.ClampRange:
		return fmt.Errorf("%w: affinity requires 0 < init_range <= clamp_range", ErrInvalid)
	}

	switch c.Interchange.OnSpeciesMismatch {
	case MismatchReject, MismatchReseed:
	default:
		return fmt.Errorf("%w: interchange.on_species_mismatch must be %q or %q, got %q",
			ErrInvalid, MismatchReject, MismatchReseed, c.Interchange.OnSpeciesMismatch)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.WorldSize32 = float32(c.World.Size)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	c.Derived.Workers = c.Kernel.Workers
	if c.Derived.Workers == 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
