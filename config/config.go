// Package config provides configuration loading and validation for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	// Run
	MaxSimulatedTime float64 `yaml:"max_simulated_time"`
	Seed             uint64  `yaml:"seed"`

	// Host
	NumRows int `yaml:"num_rows"`
	NumCols int `yaml:"num_cols"`

	// Population and seeding
	NumClades              int       `yaml:"num_clades"`
	NumInitialSymbionts    int       `yaml:"num_initial_symbionts"`
	InitialPlacement       Placement `yaml:"initial_placement"`
	AllowArrivals          bool      `yaml:"allow_arrivals"`
	AvgTimeBetweenArrivals float64   `yaml:"avg_time_between_arrivals"`

	// Per-clade model parameters. A single value applies to every clade.
	CladeProportions []float64 `yaml:"clade_proportions"` // relative sizes; empty = equal
	CladeAffinity    []float64 `yaml:"clade_affinity"`    // P(colonize | open cell)
	G0Mean           []float64 `yaml:"g0_mean"`           // mean G0 duration (days)
	G1SG2MMean       []float64 `yaml:"g1sg2m_mean"`       // mean G1/S/G2/M duration (days)

	// Shared model parameters
	PhaseShape             float64 `yaml:"phase_shape"`              // gamma shape of phase durations
	DenouementMean         float64 `yaml:"denouement_mean"`          // mean time to voluntary departure
	HostResponseMean       float64 `yaml:"host_response_mean"`       // mean time to host response per phase, 0 = none
	DigestionProbability   float64 `yaml:"digestion_probability"`    // host response digests (else escape)
	ParentMovesProbability float64 `yaml:"parent_moves_probability"` // at division, the parent is the mover
	NeighborRadius         int     `yaml:"neighbor_radius"`          // reach of the mover, in cells

	// Output
	OutputDir          string `yaml:"output_dir"` // base for relative filenames
	PopulationFilename string `yaml:"population_filename"`
	WriteLoggingInfo   bool   `yaml:"write_logging_info"`
	LogFilename        string `yaml:"log_filename"`
	WriteCSVInfo       bool   `yaml:"write_csv_info"`
	CSVFilename        string `yaml:"csv_filename"`
	StatsFilename      string `yaml:"stats_filename"` // empty = no daily stats
	ResultsDB          string `yaml:"results_db"`     // empty = no archive

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CumulativeProportions []float64 // running sum of normalized clade proportions
	Capacity              int       // NumRows * NumCols
}

// Load loads configuration from a file, merging it over the embedded
// defaults. If path is empty, only the defaults are used. Files ending in
// .yaml or .yml are YAML; anything else is a NAME,value CSV.
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
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = decodeStrict(data, cfg)
		default:
			err = decodeCSV(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeStrict unmarshals YAML into cfg, rejecting unknown keys. Only
// fields present in data are overwritten.
func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parameter is one NAME,value row of a CSV config file.
type parameter struct {
	Name  string `csv:"name"`
	Value string `csv:"value"`
}

// decodeCSV reads NAME,value rows, decodes each value as a YAML scalar or
// flow sequence, and applies them through the strict YAML path so both
// formats share one set of keys and checks.
func decodeCSV(data []byte, cfg *Config) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comment = '#'
	r.TrimLeadingSpace = true

	var params []parameter
	if err := gocsv.UnmarshalCSVWithoutHeaders(r, &params); err != nil {
		return err
	}

	values := make(map[string]any, len(params))
	for i, p := range params {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return fmt.Errorf("row %d: empty parameter name", i+1)
		}
		if _, dup := values[key]; dup {
			return fmt.Errorf("row %d: duplicate parameter %s", i+1, strings.ToUpper(key))
		}
		var v any
		if err := yaml.Unmarshal([]byte(strings.TrimSpace(p.Value)), &v); err != nil {
			return fmt.Errorf("row %d: %s: %w", i+1, strings.ToUpper(key), err)
		}
		values[key] = v
	}

	doc, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return decodeStrict(doc, cfg)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Capacity = c.NumRows * c.NumCols

	if c.NumClades < 1 {
		return
	}

	// Broadcast single values to every clade
	c.CladeAffinity = broadcast(c.CladeAffinity, c.NumClades)
	c.G0Mean = broadcast(c.G0Mean, c.NumClades)
	c.G1SG2MMean = broadcast(c.G1SG2MMean, c.NumClades)

	if len(c.CladeProportions) == 0 {
		c.CladeProportions = make([]float64, c.NumClades)
		for i := range c.CladeProportions {
			c.CladeProportions[i] = 1
		}
	}

	var sum float64
	for _, p := range c.CladeProportions {
		sum += p
	}
	c.Derived.CumulativeProportions = make([]float64, len(c.CladeProportions))
	if sum <= 0 {
		return
	}
	var running float64
	for i, p := range c.CladeProportions {
		running += p / sum
		c.Derived.CumulativeProportions[i] = running
	}
	// Guard against rounding leaving the last entry just under 1.
	c.Derived.CumulativeProportions[len(c.CladeProportions)-1] = 1
}

func broadcast(vals []float64, n int) []float64 {
	if len(vals) != 1 || n == 1 {
		return vals
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = vals[0]
	}
	return out
}

// Validate checks every parameter and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.MaxSimulatedTime > 0, "MAX_SIMULATED_TIME must be > 0, got %v", c.MaxSimulatedTime)
	check(c.NumRows > 0, "NUM_ROWS must be > 0, got %d", c.NumRows)
	check(c.NumCols > 0, "NUM_COLS must be > 0, got %d", c.NumCols)
	check(c.NumClades >= 1, "NUM_CLADES must be >= 1, got %d", c.NumClades)
	check(c.NumInitialSymbionts >= 0, "NUM_INITIAL_SYMBIONTS must be >= 0, got %d", c.NumInitialSymbionts)
	check(c.NumInitialSymbionts <= c.Derived.Capacity,
		"NUM_INITIAL_SYMBIONTS (%d) exceeds host capacity (%d)", c.NumInitialSymbionts, c.Derived.Capacity)
	check(c.InitialPlacement.Valid(), "INITIAL_PLACEMENT is unset")
	if c.AllowArrivals {
		check(c.AvgTimeBetweenArrivals > 0, "AVG_TIME_BETWEEN_ARRIVALS must be > 0, got %v", c.AvgTimeBetweenArrivals)
	}

	if c.NumClades >= 1 {
		perClade := []struct {
			name string
			vals []float64
		}{
			{"CLADE_PROPORTIONS", c.CladeProportions},
			{"CLADE_AFFINITY", c.CladeAffinity},
			{"G0_MEAN", c.G0Mean},
			{"G1SG2M_MEAN", c.G1SG2MMean},
		}
		for _, pc := range perClade {
			check(len(pc.vals) == c.NumClades, "%s has %d values, want %d (NUM_CLADES)", pc.name, len(pc.vals), c.NumClades)
		}
	}

	var propSum float64
	for i, p := range c.CladeProportions {
		check(p >= 0, "CLADE_PROPORTIONS[%d] must be >= 0, got %v", i, p)
		propSum += p
	}
	check(propSum > 0, "CLADE_PROPORTIONS must not all be zero")
	if len(errs) == 0 && c.NumClades >= 1 {
		errs = append(errs, c.checkSeedBands()...)
	}
	for i, a := range c.CladeAffinity {
		check(a >= 0 && a <= 1, "CLADE_AFFINITY[%d] must be in [0,1], got %v", i, a)
	}
	for i, m := range c.G0Mean {
		check(m > 0, "G0_MEAN[%d] must be > 0, got %v", i, m)
	}
	for i, m := range c.G1SG2MMean {
		check(m > 0, "G1SG2M_MEAN[%d] must be > 0, got %v", i, m)
	}

	check(c.PhaseShape > 0, "PHASE_SHAPE must be > 0, got %v", c.PhaseShape)
	check(c.DenouementMean > 0, "DENOUEMENT_MEAN must be > 0, got %v", c.DenouementMean)
	check(c.HostResponseMean >= 0, "HOST_RESPONSE_MEAN must be >= 0 (0 disables host response), got %v", c.HostResponseMean)
	check(c.DigestionProbability >= 0 && c.DigestionProbability <= 1,
		"DIGESTION_PROBABILITY must be in [0,1], got %v", c.DigestionProbability)
	check(c.ParentMovesProbability >= 0 && c.ParentMovesProbability <= 1,
		"PARENT_MOVES_PROBABILITY must be in [0,1], got %v", c.ParentMovesProbability)
	check(c.NeighborRadius >= 1, "NEIGHBOR_RADIUS must be >= 1, got %d", c.NeighborRadius)

	check(c.PopulationFilename != "", "POPULATION_FILENAME is required")
	if c.WriteLoggingInfo {
		check(c.LogFilename != "", "LOG_FILENAME is required when WRITE_LOGGING_INFO is set")
	}
	if c.WriteCSVInfo {
		check(c.CSVFilename != "", "CSV_FILENAME is required when WRITE_CSV_INFO is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Path resolves an output filename against OutputDir. Absolute names and
// an empty OutputDir leave the name unchanged.
func (c *Config) Path(name string) string {
	if name == "" || c.OutputDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}

// Capacity returns the number of host cells.
func (c *Config) Capacity() int {
	return c.Derived.Capacity
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
