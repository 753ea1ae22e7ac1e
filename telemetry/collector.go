package telemetry

import "github.com/pthm-cable/symbiosis/event"

// Collector accumulates event counts between population rows and produces
// WindowStats.
type Collector struct {
	windowStart float64

	// Event counters for current window
	arrivalsAttempted int
	arrivalsAccepted  int
	divisions         int
	births            int
	outcomes          [event.ChildNoAffinity + 1]int
	digestions        int
	escapes           int
	denouements       int
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordArrival records an arrival attempt and whether it colonized.
func (c *Collector) RecordArrival(accepted bool) {
	c.arrivalsAttempted++
	if accepted {
		c.arrivalsAccepted++
	}
}

// RecordDivision records a resolved EndG1SG2M event.
func (c *Collector) RecordDivision(o event.Outcome) {
	c.divisions++
	if int(o) < len(c.outcomes) {
		c.outcomes[o]++
	}
	if o == event.BothStay {
		c.births++
	}
}

// RecordTerminal records a digestion, escape or denouement.
func (c *Collector) RecordTerminal(kind event.Kind) {
	switch kind {
	case event.Digestion:
		c.digestions++
	case event.Escape:
		c.escapes++
	case event.Denouement:
		c.denouements++
	}
}

// Flush produces a WindowStats ending at the given row and resets counters
// for the next window.
func (c *Collector) Flush(row PopulationRow) WindowStats {
	var acceptance float64
	if c.arrivalsAttempted > 0 {
		acceptance = float64(c.arrivalsAccepted) / float64(c.arrivalsAttempted)
	}

	stats := WindowStats{
		WindowStart:       c.windowStart,
		WindowEnd:         row.Time,
		Population:        row.Total,
		ArrivalsAttempted: c.arrivalsAttempted,
		ArrivalsAccepted:  c.arrivalsAccepted,
		AcceptanceRate:    acceptance,
		Divisions:         c.divisions,
		Births:            c.births,
		Evictions:         c.outcomes[event.ParentEvicted] + c.outcomes[event.ChildEvicted],
		InfectsOutside:    c.outcomes[event.ParentInfectsOutside] + c.outcomes[event.ChildInfectsOutside],
		NoAffinity:        c.outcomes[event.ParentNoAffinity] + c.outcomes[event.ChildNoAffinity],
		Digestions:        c.digestions,
		Escapes:           c.escapes,
		Denouements:       c.denouements,
	}

	*c = Collector{windowStart: row.Time}
	return stats
}
