package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/rng"
	"github.com/pthm-cable/symbiosis/sim"
	"github.com/pthm-cable/symbiosis/sponge"
	"github.com/pthm-cable/symbiosis/symbiont"
	"github.com/pthm-cable/symbiosis/telemetry"
)

// Plan describes a batch of replicates.
type Plan struct {
	ConfigPath string
	Count      int
	Parallel   int
	BaseSeed   uint64 // 0 = the config's seed
	OutputDir  string
}

// Result is the outcome of one replicate.
type Result struct {
	Index           int     `csv:"replicate"`
	Seed            uint64  `csv:"seed"`
	FinalPopulation int     `csv:"final_population"`
	FinalClades     string  `csv:"final_clades"` // tab-separated counts
	Exits           int     `csv:"exits"`
	Events          int     `csv:"events"`
	EndTime         float64 `csv:"end_time"`

	clades []int `csv:"-"`
}

// Run executes the plan. progress, if set, is called after each replicate
// with the number completed so far.
func (p Plan) Run(ctx context.Context, progress func(r Result, done int)) ([]Result, error) {
	if p.Count < 1 {
		return nil, fmt.Errorf("replicate count must be >= 1, got %d", p.Count)
	}
	base, err := config.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	seed := p.BaseSeed
	if seed == 0 {
		seed = base.Seed
	}

	results := make([]Result, p.Count)
	var mu sync.Mutex
	done := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Parallel, 1))
	for i := 0; i < p.Count; i++ {
		g.Go(func() error {
			// Each replicate gets its own config, host and streams.
			cfg, err := config.Load(p.ConfigPath)
			if err != nil {
				return err
			}
			cfg.Seed = seed + uint64(i)
			cfg.OutputDir = filepath.Join(p.OutputDir, fmt.Sprintf("rep-%03d", i))

			r, err := runReplicate(ctx, cfg)
			if err != nil {
				return fmt.Errorf("replicate %d (seed %d): %w", i, cfg.Seed, err)
			}
			r.Index = i
			results[i] = r

			mu.Lock()
			done++
			if progress != nil {
				progress(r, done)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runReplicate(ctx context.Context, cfg *config.Config) (Result, error) {
	om, err := telemetry.NewOutputManager(telemetry.PathsFromConfig(cfg))
	if err != nil {
		return Result{}, err
	}

	grid := sponge.NewGrid(cfg.NumRows, cfg.NumCols)
	streams := rng.New(cfg.Seed)
	s := sim.New(cfg, symbiont.NewColony(cfg, grid, streams, om), grid, streams, om, sim.Options{})
	if err := s.Run(ctx); err != nil {
		om.Abort()
		return Result{}, err
	}
	if err := om.Close(); err != nil {
		return Result{}, err
	}

	last := s.Ledger().Last()
	counts := make([]string, len(last.Clades))
	for i, n := range last.Clades {
		counts[i] = strconv.Itoa(n)
	}
	return Result{
		Seed:            cfg.Seed,
		FinalPopulation: last.Total,
		FinalClades:     strings.Join(counts, "\t"),
		Exits:           om.Summary().Count(),
		Events:          s.Processed(),
		EndTime:         last.Time,
		clades:          last.Clades,
	}, nil
}

// Summary aggregates the final populations of a batch.
type Summary struct {
	Mean, Std  float64
	Min, Max   int
	CladeMeans []float64
}

// Summarize computes mean and standard deviation of the final populations.
func Summarize(results []Result) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	totals := make([]float64, len(results))
	for i, r := range results {
		totals[i] = float64(r.FinalPopulation)
	}

	var s Summary
	if len(totals) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(totals, nil)
	} else {
		s.Mean = totals[0]
	}
	s.Min = int(slices.Min(totals))
	s.Max = int(slices.Max(totals))

	numClades := len(results[0].clades)
	perClade := make([]float64, len(results))
	for c := 0; c < numClades; c++ {
		for i, r := range results {
			perClade[i] = float64(r.clades[c])
		}
		s.CladeMeans = append(s.CladeMeans, stat.Mean(perClade, nil))
	}
	return s
}

// WriteResults writes one CSV row per replicate.
func WriteResults(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&results, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
