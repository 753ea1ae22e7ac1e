package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/renameio/v2"

	"github.com/pthm-cable/symbiosis/config"
)

// Archive receives a copy of every output row (see package store).
type Archive interface {
	InsertPopulation(row PopulationRow) error
	InsertExit(rec ExitRecord) error
}

// OutputPaths names the files an OutputManager writes. Empty paths disable
// the corresponding output, except Population which is required.
type OutputPaths struct {
	Population string
	Exits      string
	Stats      string
}

// pendingOutput is a file that only replaces its destination once the run
// completes.
type pendingOutput struct {
	file *renameio.PendingFile
	w    *bufio.Writer
}

func openPending(path string) (*pendingOutput, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := renameio.NewPendingFile(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &pendingOutput{file: f, w: bufio.NewWriter(f)}, nil
}

func (p *pendingOutput) commit() error {
	if err := p.w.Flush(); err != nil {
		return err
	}
	return p.file.CloseAtomicallyReplace()
}

func (p *pendingOutput) discard() {
	_ = p.file.Cleanup()
}

// OutputManager handles the run's file outputs. Files are written to
// pending temporaries and only replace their destinations on Close, so an
// aborted run never leaves partial results behind.
type OutputManager struct {
	population *pendingOutput
	exits      *pendingOutput
	stats      *pendingOutput

	// Track if headers have been written
	exitHeaderWritten  bool
	statsHeaderWritten bool

	archive Archive
	summary *Summary
	done    bool
}

// NewOutputManager opens every configured output.
func NewOutputManager(paths OutputPaths) (*OutputManager, error) {
	if paths.Population == "" {
		return nil, fmt.Errorf("population output path is required")
	}

	om := &OutputManager{summary: NewSummary()}

	var err error
	if om.population, err = openPending(paths.Population); err != nil {
		return nil, err
	}
	if paths.Exits != "" {
		if om.exits, err = openPending(paths.Exits); err != nil {
			om.Abort()
			return nil, err
		}
	}
	if paths.Stats != "" {
		if om.stats, err = openPending(paths.Stats); err != nil {
			om.Abort()
			return nil, err
		}
	}
	return om, nil
}

// PathsFromConfig derives output paths from the configuration.
func PathsFromConfig(cfg *config.Config) OutputPaths {
	paths := OutputPaths{
		Population: cfg.Path(cfg.PopulationFilename),
		Stats:      cfg.Path(cfg.StatsFilename),
	}
	if cfg.WriteCSVInfo {
		paths.Exits = cfg.Path(cfg.CSVFilename)
	}
	return paths
}

// AttachArchive mirrors every subsequent row into a.
func (om *OutputManager) AttachArchive(a Archive) {
	om.archive = a
}

// Summary returns the running exit summary.
func (om *OutputManager) Summary() *Summary {
	return om.summary
}

// WriteConfig saves the effective configuration next to the population file.
func (om *OutputManager) WriteConfig(cfg *config.Config, path string) error {
	if path == "" {
		return nil
	}
	return cfg.WriteYAML(path)
}

// WritePopulation appends one row to the population time series.
func (om *OutputManager) WritePopulation(row PopulationRow) error {
	if _, err := om.population.w.WriteString(row.Format() + "\n"); err != nil {
		return fmt.Errorf("writing population: %w", err)
	}
	if om.archive != nil {
		if err := om.archive.InsertPopulation(row); err != nil {
			return fmt.Errorf("archiving population: %w", err)
		}
	}
	return nil
}

// WriteExit records a departed (or still resident) symbiont.
func (om *OutputManager) WriteExit(rec ExitRecord) error {
	om.summary.Add(rec)

	if om.exits != nil {
		records := []ExitRecord{rec}
		if !om.exitHeaderWritten {
			// First write includes headers
			if err := gocsv.Marshal(records, om.exits.w); err != nil {
				return fmt.Errorf("writing exit record: %w", err)
			}
			om.exitHeaderWritten = true
		} else {
			if err := gocsv.MarshalWithoutHeaders(records, om.exits.w); err != nil {
				return fmt.Errorf("writing exit record: %w", err)
			}
		}
	}

	if om.archive != nil {
		if err := om.archive.InsertExit(rec); err != nil {
			return fmt.Errorf("archiving exit record: %w", err)
		}
	}
	return nil
}

// WriteStats writes a daily stats record.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om.stats == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.stats.w); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.stats.w); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// Close flushes every output and moves it into place.
func (om *OutputManager) Close() error {
	if om.done {
		return nil
	}
	om.done = true

	var firstErr error
	for _, p := range []*pendingOutput{om.population, om.exits, om.stats} {
		if p == nil {
			continue
		}
		if err := p.commit(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.discard()
	}
	return firstErr
}

// Abort discards every pending output, leaving existing files untouched.
func (om *OutputManager) Abort() {
	if om.done {
		return
	}
	om.done = true
	for _, p := range []*pendingOutput{om.population, om.exits, om.stats} {
		if p != nil {
			p.discard()
		}
	}
}
