package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/rng"
	"github.com/pthm-cable/symbiosis/sim"
	"github.com/pthm-cable/symbiosis/sponge"
	"github.com/pthm-cable/symbiosis/store"
	"github.com/pthm-cable/symbiosis/symbiont"
	"github.com/pthm-cable/symbiosis/telemetry"
)

// runSimulation performs one complete run described by the file at
// cfgPath. Outputs only replace existing files when the run completes.
func runSimulation(ctx context.Context, cfgPath string, showProgress bool, progressOut io.Writer) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	om, err := telemetry.NewOutputManager(telemetry.PathsFromConfig(cfg))
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			om.Abort()
		}
	}()

	var trace *telemetry.Trace
	if cfg.WriteLoggingInfo {
		if trace, err = telemetry.OpenTrace(cfg.Path(cfg.LogFilename)); err != nil {
			return err
		}
		defer trace.Close()
	}

	var db *store.DB
	var runID string
	if cfg.ResultsDB != "" {
		if db, err = store.Open(cfg.Path(cfg.ResultsDB)); err != nil {
			return err
		}
		defer db.Close()
		if runID, err = db.BeginRun(cfg); err != nil {
			return err
		}
		om.AttachArchive(db)
	}

	grid := sponge.NewGrid(cfg.NumRows, cfg.NumCols)
	streams := rng.New(cfg.Seed)
	colony := symbiont.NewColony(cfg, grid, streams, om)
	perf := telemetry.NewPerfCollector(30)

	opts := sim.Options{
		Trace:      trace,
		Milestones: telemetry.NewMilestoneDetector(cfg.Capacity(), 30),
		Perf:       perf,
	}
	if showProgress {
		opts.Progress = newProgress(progressOut, cfg.MaxSimulatedTime).Update
	}

	slog.Info("starting simulation",
		"seed", streams.Seed(),
		"grid", fmt.Sprintf("%dx%d", cfg.NumRows, cfg.NumCols),
		"clades", cfg.NumClades,
		"initial_symbionts", cfg.NumInitialSymbionts,
		"max_simulated_time", cfg.MaxSimulatedTime,
		"run_id", runID,
	)

	start := time.Now()
	s := sim.New(cfg, colony, grid, streams, om, opts)
	if err := s.Run(ctx); err != nil {
		return err
	}

	if trace != nil {
		if err := trace.Close(); err != nil {
			return fmt.Errorf("closing trace: %w", err)
		}
	}
	if err := finish(om, db); err != nil {
		return err
	}
	committed = true
	if db != nil {
		logArchive(db, runID, s.Ledger().Total())
	}
	if cfg.OutputDir != "" {
		if err := om.WriteConfig(cfg, filepath.Join(cfg.OutputDir, "config.yaml")); err != nil {
			slog.Warn("failed to write config snapshot", "error", err)
		}
	}

	om.Summary().Log()
	perf.Stats().LogStats()
	slog.Info("run complete",
		"seed", cfg.Seed,
		"events", humanize.Comma(int64(s.Processed())),
		"final_population", s.Ledger().Total(),
		"exit_records", humanize.Comma(int64(om.Summary().Count())),
		"exits_by_clade", exitsByClade(om.Summary(), cfg.NumClades),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

// finish commits the archive before moving the output files into place, so
// a failed archive commit leaves any previous outputs untouched. If the
// files then fail to move, the archive already holds the completed run.
func finish(om *telemetry.OutputManager, db *store.DB) error {
	if db != nil {
		if err := db.Commit(); err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
	}
	if err := om.Close(); err != nil {
		return fmt.Errorf("writing outputs: %w", err)
	}
	return nil
}

// logArchive reads the committed run back from the archive.
func logArchive(db *store.DB, runID string, total int) {
	final, err := db.FinalPopulation(runID)
	if err != nil {
		slog.Warn("reading archived population", "run_id", runID, "error", err)
		return
	}
	if final != total {
		slog.Warn("archived final population differs from ledger", "run_id", runID, "archived", final, "ledger", total)
	}
	counts, err := db.ExitCounts(runID)
	if err != nil {
		slog.Warn("reading archived exits", "run_id", runID, "error", err)
		return
	}
	slog.Info("run archived", "run_id", runID, "final_population", final, "exits", counts)
}

func exitsByClade(sum *telemetry.Summary, numClades int) []int {
	out := make([]int, numClades)
	for i := range out {
		out[i] = sum.CladeCount(i)
	}
	return out
}
