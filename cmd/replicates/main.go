// Package main runs independent replicates of one configuration with
// consecutive seeds and summarizes their final populations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
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

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config file (empty = use defaults)")
	count := flag.Int("n", 10, "Number of replicates")
	parallel := flag.Int("parallel", 4, "Replicates run concurrently")
	baseSeed := flag.Uint64("seed", 0, "Seed of the first replicate (0 = config seed)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plan := Plan{
		ConfigPath: *configPath,
		Count:      *count,
		Parallel:   *parallel,
		BaseSeed:   *baseSeed,
		OutputDir:  *outputDir,
	}

	fmt.Printf("Running %d replicates, %d at a time\n", plan.Count, plan.Parallel)
	startTime := time.Now()
	results, err := plan.Run(ctx, func(r Result, done int) {
		elapsed := time.Since(startTime)
		remaining := time.Duration(plan.Count-done) * (elapsed / time.Duration(done))
		fmt.Printf("Replicate %d/%d: seed=%d final=%d exits=%d | elapsed: %s, ETA: %s\n",
			done, plan.Count, r.Seed, r.FinalPopulation, r.Exits,
			formatDuration(elapsed), formatDuration(remaining))
	})
	if err != nil {
		log.Fatalf("replicates failed: %v", err)
	}

	summary := Summarize(results)
	fmt.Printf("\nCompleted %d replicates in %s\n", len(results), formatDuration(time.Since(startTime)))
	fmt.Printf("Final population: mean=%.2f std=%.2f min=%d max=%d\n",
		summary.Mean, summary.Std, summary.Min, summary.Max)
	for clade, m := range summary.CladeMeans {
		fmt.Printf("  clade %d: mean=%.2f\n", clade, m)
	}

	resultsPath := filepath.Join(*outputDir, "replicates.csv")
	if err := WriteResults(resultsPath, results); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}
	fmt.Printf("\nResults saved to: %s\n", resultsPath)
}
