// Package main provides CMA-ES optimization for finding physics parameters
// that make particle populations self-organize into mixed clusters.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/tgenesis/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// search tracks progress across CMA-ES evaluations.
type search struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	log       *evalLog
	maxEvals  int
	start     time.Time

	evals      int
	best       Evaluation
	bestValues []float64
}

// objective is the function handed to CMA-ES. x is in normalized space.
func (s *search) objective(x []float64) float64 {
	values := s.params.Clamp(s.params.Denormalize(x))
	ev := s.evaluator.Evaluate(values)
	s.evals++

	if s.bestValues == nil || ev.Fitness < s.best.Fitness {
		s.best = ev
		s.bestValues = values
	}
	if err := s.log.Append(s.evals, ev, values); err != nil {
		log.Printf("eval log: %v", err)
	}

	elapsed := time.Since(s.start)
	remaining := time.Duration(s.maxEvals-s.evals) * (elapsed / time.Duration(s.evals))
	fmt.Printf("Eval %d/%d: clustering=%.3f diversity=%.2f fitness=%.4f (best %.4f) | elapsed %s, ETA %s\n",
		s.evals, s.maxEvals, ev.Clustering, ev.Diversity, ev.Fitness, s.best.Fitness,
		formatDuration(elapsed), formatDuration(remaining))
	if ev.Failed > 0 {
		fmt.Printf("  %d seed(s) failed to run\n", ev.Failed)
	}
	return ev.Fitness
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 2000, "Simulation ticks per run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	stepSize := flag.Float64("step-size", 0.3, "Initial CMA-ES step size in normalized units")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()
	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	runLog, err := newEvalLog(filepath.Join(*outputDir, "optimize_log.csv"), params)
	if err != nil {
		log.Fatal(err)
	}
	defer runLog.Close()

	s := &search{
		params:    params,
		evaluator: NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg),
		log:       runLog,
		maxEvals:  *maxEvals,
		start:     time.Now(),
	}

	// Start from the base config's physics, not the box defaults.
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(params.Dim())/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: *stepSize,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}

	fmt.Printf("Clustering search over %d parameters, population=%d, max_evals=%d\n",
		params.Dim(), popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d\n", *seeds, *maxTicks)

	result, err := optimize.Minimize(optimize.Problem{Func: s.objective}, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	if s.bestValues == nil {
		if result == nil {
			log.Fatal("no evaluations completed")
		}
		s.bestValues = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nDone after %d evaluations in %s\n", s.evals, formatDuration(time.Since(s.start)))
	fmt.Printf("Best: fitness=%.4f clustering=%.3f diversity=%.2f\n",
		s.best.Fitness, s.best.Clustering, s.best.Diversity)
	for i, spec := range params.Specs {
		fmt.Printf("  %-22s %.6f  (%s)\n", spec.Name, s.bestValues[i], spec.Path)
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, s.bestValues)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
		return
	}
	fmt.Printf("\nBest config saved to: %s\n", configOutPath)
}
