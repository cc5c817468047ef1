package telemetry

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SpeciesCounts holds the number of particles of each species.
type SpeciesCounts []int

// MarshalCSV renders the counts as a single semicolon-separated column.
func (sc SpeciesCounts) MarshalCSV() (string, error) {
	return sc.String(), nil
}

func (sc SpeciesCounts) String() string {
	parts := make([]string, len(sc))
	for i, n := range sc {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ";")
}

// Total returns the summed population.
func (sc SpeciesCounts) Total() int {
	total := 0
	for _, n := range sc {
		total += n
	}
	return total
}

// Alive returns the number of species with at least one particle.
func (sc SpeciesCounts) Alive() int {
	alive := 0
	for _, n := range sc {
		if n > 0 {
			alive++
		}
	}
	return alive
}

// Dominant returns the most populous species and its share of the total.
// Returns (-1, 0) for an empty population.
func (sc SpeciesCounts) Dominant() (species int, share float64) {
	total := sc.Total()
	if total == 0 {
		return -1, 0
	}
	best := 0
	for i, n := range sc {
		if n > sc[best] {
			best = i
		}
	}
	return best, float64(sc[best]) / float64(total)
}

// Entropy returns the Shannon entropy (nats) of the species distribution.
func (sc SpeciesCounts) Entropy() float64 {
	total := sc.Total()
	if total == 0 {
		return 0
	}
	p := make([]float64, len(sc))
	for i, n := range sc {
		p[i] = float64(n)
	}
	floats.Scale(1/float64(total), p)
	return stat.Entropy(p)
}

// WindowStats holds aggregated statistics for a step window.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Population at window end
	Population    int           `csv:"population"`
	Species       int           `csv:"species"`
	Counts        SpeciesCounts `csv:"species_counts"`
	Alive         int           `csv:"species_alive"`
	Entropy       float64       `csv:"entropy"`
	Dominant      int           `csv:"dominant"`
	DominantShare float64       `csv:"dominant_share"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Events during window
	Reactions        int     `csv:"reactions"`
	ReactionsPerTick float64 `csv:"reactions_per_tick"`
	Added            int     `csv:"added"`
	Removed          int     `csv:"removed"`
	Resets           int     `csv:"resets"`
	RulesLoaded      int     `csv:"rules_loaded"`
}

func speed(vx, vy float32) float64 {
	return math.Hypot(float64(vx), float64(vy))
}

// ComputeSpeedStats calculates mean and percentiles from speed values.
func ComputeSpeedStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("population", s.Population),
		slog.String("species_counts", s.Counts.String()),
		slog.Int("species_alive", s.Alive),
		slog.Float64("entropy", s.Entropy),
		slog.Int("dominant", s.Dominant),
		slog.Float64("dominant_share", s.DominantShare),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Int("reactions", s.Reactions),
		slog.Int("added", s.Added),
		slog.Int("removed", s.Removed),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"population", s.Population,
		"species_counts", s.Counts.String(),
		"species_alive", s.Alive,
		"entropy", s.Entropy,
		"dominant", s.Dominant,
		"dominant_share", s.DominantShare,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"reactions", s.Reactions,
		"reactions_per_tick", s.ReactionsPerTick,
		"added", s.Added,
		"removed", s.Removed,
		"resets", s.Resets,
		"rules_loaded", s.RulesLoaded,
	)
}
