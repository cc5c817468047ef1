package main

import (
	"context"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/tgenesis/components"
	"github.com/pthm-cable/tgenesis/config"
	"github.com/pthm-cable/tgenesis/sim"
	"github.com/pthm-cable/tgenesis/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// Evaluation is the seed-averaged outcome of one parameter vector.
type Evaluation struct {
	Fitness    float64 // lower = better
	Clustering float64 // grid-occupancy CV of the final population
	Diversity  float64 // normalized species entropy in [0, 1]
	Failed     int     // seeds whose run could not start or step
}

// Fitness weighting.
const (
	diversityWarmupWindows = 2 // skip first N windows
	minClusterCells        = 4 // grids coarser than this cannot show structure
)

// runResult holds the results from a single simulation run.
type runResult struct {
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
	final       []components.Particle
	worldSize   float64
	cellSize    float64
	species     int
	failed      bool
}

// Evaluate runs every seed in parallel and averages the results.
// Clumped, mixed populations score lowest.
func (fe *FitnessEvaluator) Evaluate(x []float64) Evaluation {
	results := make([]Evaluation, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			r := fe.runSimulation(x, s)
			diversity := computeDiversity(r.windowStats, r.species)
			results[idx] = Evaluation{
				Fitness:    computeFitness(r, diversity),
				Clustering: computeClustering(r),
				Diversity:  diversity,
			}
			if r.failed {
				results[idx].Failed = 1
			}
		}(i, seed)
	}
	wg.Wait()

	var avg Evaluation
	for _, r := range results {
		avg.Fitness += r.Fitness
		avg.Clustering += r.Clustering
		avg.Diversity += r.Diversity
		avg.Failed += r.Failed
	}
	n := float64(len(results))
	avg.Fitness /= n
	avg.Clustering /= n
	avg.Diversity /= n
	return avg
}

// runSimulation executes a single headless simulation run of maxTicks steps.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{
		worldSize: cfg.World.Size,
		cellSize:  cfg.Physics.RMax,
		species:   cfg.Population.Species,
	}

	s, err := sim.New(sim.Options{
		Seed:   seed,
		Config: cfg,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		result.failed = true
		return result
	}
	defer s.Close()

	if err := s.Run(context.Background(), fe.maxTicks); err != nil {
		result.failed = true
		return result
	}
	result.final = s.Snapshot()
	return result
}

// copyConfig creates a copy of the base config for one run. Seeds already
// run in parallel, so each simulation dispatches on a single worker.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Kernel.Workers = 1
	cfg.Derived.Workers = 1
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(clustering × (0.5 + 0.5 × diversity))
func computeFitness(r *runResult, diversity float64) float64 {
	return -(computeClustering(r) * (0.5 + 0.5*diversity))
}

// computeClustering scores the final population; failed or empty runs score 0.
func computeClustering(r *runResult) float64 {
	if r.failed || len(r.final) == 0 {
		return 0
	}
	return occupancyCV(r.final, r.worldSize, r.cellSize)
}

// occupancyCV bins particles into square cells of about cellSize and returns
// the coefficient of variation of the per-cell counts. A uniform gas scores
// near zero; tight clusters with empty space around them score high.
func occupancyCV(particles []components.Particle, worldSize, cellSize float64) float64 {
	cells := int(worldSize / cellSize)
	if cells < minClusterCells {
		cells = minClusterCells
	}
	counts := make([]float64, cells*cells)
	scale := float64(cells) / worldSize
	for _, p := range particles {
		cx := min(int(float64(p.X)*scale), cells-1)
		cy := min(int(float64(p.Y)*scale), cells-1)
		counts[cy*cells+cx]++
	}
	mean, std := stat.MeanStdDev(counts, nil)
	if mean == 0 || math.IsNaN(std) {
		return 0
	}
	return std / mean
}

// computeDiversity returns the mean normalized species entropy ∈ [0, 1]
// over the windows after warmup.
func computeDiversity(windows []telemetry.WindowStats, species int) float64 {
	if species < 2 || len(windows) <= diversityWarmupWindows {
		return 0
	}
	maxEntropy := math.Log(float64(species))

	valid := windows[diversityWarmupWindows:]
	scores := make([]float64, len(valid))
	for i, w := range valid {
		scores[i] = clamp01(w.Entropy / maxEntropy)
	}
	return stat.Mean(scores, nil)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
