package telemetry

import (
	"log/slog"
	"sort"
	"time"
)

// PhaseOutput times population, stats and exit writing.
const PhaseOutput = "output"

// PerfSample holds wall-clock timing for one simulated day.
type PerfSample struct {
	DayDuration time.Duration
	Events      int
	Phases      map[string]time.Duration
}

// PerfCollector tracks dispatch cost per event kind over a rolling window
// of simulated days.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	events        int
	dayStart      time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over windowSize days.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 30
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartDay begins timing a new simulated day.
func (p *PerfCollector) StartDay() {
	p.dayStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.events = 0
	p.lastPhase = ""
}

// StartPhase ends the running phase and begins timing the named one.
// Event handlers use the event kind as phase name.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	if phase != PhaseOutput {
		p.events++
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndDay finishes the current day and records the sample.
func (p *PerfCollector) EndDay() {
	if p.dayStart.IsZero() {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		DayDuration: now.Sub(p.dayStart),
		Events:      p.events,
		Phases:      p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.StartDay()
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgDayDuration time.Duration
	MaxDayDuration time.Duration
	EventsPerSec   float64

	// Phase breakdown
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	var events int
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.DayDuration
		events += s.Events
		stats.MaxDayDuration = max(stats.MaxDayDuration, s.DayDuration)
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	stats.AvgDayDuration = total / time.Duration(p.sampleCount)
	for phase, sum := range phaseSum {
		stats.PhaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if total > 0 {
			stats.PhasePct[phase] = float64(sum) / float64(total) * 100
		}
	}
	if total > 0 {
		stats.EventsPerSec = float64(events) / total.Seconds()
	}
	return stats
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_day_us", s.AvgDayDuration.Microseconds(),
		"max_day_us", s.MaxDayDuration.Microseconds(),
		"events_per_sec", int(s.EventsPerSec),
	}

	phases := make([]string, 0, len(s.PhasePct))
	for phase := range s.PhasePct {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	for _, phase := range phases {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}
