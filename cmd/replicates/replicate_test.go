package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "base.yaml")
	content := `
max_simulated_time: 15
seed: 11
num_rows: 8
num_cols: 8
num_initial_symbionts: 6
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlanRun(t *testing.T) {
	dir := t.TempDir()
	plan := Plan{
		ConfigPath: writeConfig(t, dir),
		Count:      4,
		Parallel:   2,
		OutputDir:  filepath.Join(dir, "out"),
	}

	calls := 0
	results, err := plan.Run(context.Background(), func(Result, int) { calls++ })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 || calls != 4 {
		t.Fatalf("got %d results, %d progress calls", len(results), calls)
	}
	for i, r := range results {
		if r.Index != i || r.Seed != 11+uint64(i) || r.EndTime != 15 {
			t.Errorf("result %d = %+v", i, r)
		}
		if _, err := os.Stat(filepath.Join(plan.OutputDir, fmt.Sprintf("rep-%03d", i), "population.tsv")); err != nil {
			t.Errorf("replicate %d output missing: %v", i, err)
		}
	}

	// Same seeds reproduce the same finals.
	again, err := plan.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range results {
		if results[i].FinalPopulation != again[i].FinalPopulation || results[i].Events != again[i].Events {
			t.Errorf("replicate %d not reproducible: %+v vs %+v", i, results[i], again[i])
		}
	}

	path := filepath.Join(dir, "replicates.csv")
	if err := WriteResults(path, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "replicate,seed,final_population") {
		t.Errorf("replicates.csv = %q", lines)
	}
}

func TestPlanRejectsZeroCount(t *testing.T) {
	if _, err := (Plan{Count: 0}).Run(context.Background(), nil); err == nil {
		t.Error("expected error for zero replicates")
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{FinalPopulation: 2, clades: []int{2, 0}},
		{FinalPopulation: 4, clades: []int{1, 3}},
		{FinalPopulation: 6, clades: []int{3, 3}},
	}
	s := Summarize(results)
	if math.Abs(s.Mean-4) > 1e-12 || math.Abs(s.Std-2) > 1e-12 {
		t.Errorf("mean/std = %v/%v, want 4/2", s.Mean, s.Std)
	}
	if s.Min != 2 || s.Max != 6 {
		t.Errorf("min/max = %d/%d", s.Min, s.Max)
	}
	if len(s.CladeMeans) != 2 || s.CladeMeans[0] != 2 || s.CladeMeans[1] != 2 {
		t.Errorf("clade means = %v", s.CladeMeans)
	}

	if one := Summarize(results[:1]); one.Mean != 2 || one.Std != 0 {
		t.Errorf("single replicate summary = %+v", one)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"59s", "0m59s"},
		{"61s", "1m01s"},
		{"3725s", "1h02m05s"},
	}
	for _, tt := range tests {
		d, err := time.ParseDuration(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := formatDuration(d); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
