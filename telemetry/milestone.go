package telemetry

import (
	"fmt"
	"log/slog"
)

// MilestoneType identifies the type of milestone.
type MilestoneType string

const (
	MilestoneCladeExtinct    MilestoneType = "clade_extinct"
	MilestoneCladeDominant   MilestoneType = "clade_dominant"
	MilestonePopulationCrash MilestoneType = "population_crash"
	MilestoneHostSaturated   MilestoneType = "host_saturated"
)

const (
	dominantShare   = 0.9
	dominantMinimum = 10
	crashFraction   = 0.7
	crashMinPeak    = 20
	saturatedShare  = 0.95
)

// Milestone is a notable change in the population time series.
type Milestone struct {
	Type        MilestoneType
	Time        float64
	Clade       int // -1 when not clade specific
	Description string
}

// Log writes the milestone using slog.
func (m Milestone) Log() {
	slog.Info("milestone",
		"type", string(m.Type),
		"time", m.Time,
		"clade", m.Clade,
		"description", m.Description,
	)
}

// MilestoneDetector watches population rows and reports milestones on the
// row where a condition first becomes true. A condition has to clear before
// it can trigger again.
type MilestoneDetector struct {
	capacity int

	// Rolling history of totals (circular buffer)
	history     []int
	historySize int
	historyIdx  int
	historyFull bool

	seen      []bool // clade has ever been present
	extinct   []bool
	dominant  []bool
	crashed   bool
	saturated bool
}

// NewMilestoneDetector creates a detector for a host with the given
// capacity, looking back historySize rows for the crash peak.
func NewMilestoneDetector(capacity, historySize int) *MilestoneDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &MilestoneDetector{
		capacity:    capacity,
		history:     make([]int, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest row and returns any triggered milestones.
func (md *MilestoneDetector) Check(row PopulationRow) []Milestone {
	md.grow(len(row.Clades))

	var out []Milestone
	for clade, n := range row.Clades {
		if m := md.checkExtinct(row, clade, n); m != nil {
			out = append(out, *m)
		}
		if m := md.checkDominant(row, clade, n); m != nil {
			out = append(out, *m)
		}
	}
	if m := md.checkCrash(row); m != nil {
		out = append(out, *m)
	}
	if m := md.checkSaturated(row); m != nil {
		out = append(out, *m)
	}

	md.history[md.historyIdx] = row.Total
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
	return out
}

func (md *MilestoneDetector) grow(n int) {
	for len(md.seen) < n {
		md.seen = append(md.seen, false)
		md.extinct = append(md.extinct, false)
		md.dominant = append(md.dominant, false)
	}
}

func (md *MilestoneDetector) checkExtinct(row PopulationRow, clade, n int) *Milestone {
	if n > 0 {
		md.seen[clade] = true
		md.extinct[clade] = false
		return nil
	}
	if !md.seen[clade] || md.extinct[clade] {
		return nil
	}
	md.extinct[clade] = true
	return &Milestone{
		Type:        MilestoneCladeExtinct,
		Time:        row.Time,
		Clade:       clade,
		Description: fmt.Sprintf("Clade %d has no residents left", clade),
	}
}

func (md *MilestoneDetector) checkDominant(row PopulationRow, clade, n int) *Milestone {
	on := len(row.Clades) > 1 && row.Total >= dominantMinimum &&
		float64(n) >= dominantShare*float64(row.Total)
	was := md.dominant[clade]
	md.dominant[clade] = on
	if !on || was {
		return nil
	}
	return &Milestone{
		Type:        MilestoneCladeDominant,
		Time:        row.Time,
		Clade:       clade,
		Description: fmt.Sprintf("Clade %d holds %d of %d residents", clade, n, row.Total),
	}
}

func (md *MilestoneDetector) recentPeak() int {
	history := md.history
	if !md.historyFull {
		history = md.history[:md.historyIdx]
	}
	peak := 0
	for _, n := range history {
		peak = max(peak, n)
	}
	return peak
}

func (md *MilestoneDetector) checkCrash(row PopulationRow) *Milestone {
	peak := md.recentPeak()
	on := peak >= crashMinPeak && float64(row.Total) < crashFraction*float64(peak)
	was := md.crashed
	md.crashed = on
	if !on || was {
		return nil
	}
	return &Milestone{
		Type:        MilestonePopulationCrash,
		Time:        row.Time,
		Clade:       -1,
		Description: fmt.Sprintf("Population fell to %d from recent peak %d", row.Total, peak),
	}
}

func (md *MilestoneDetector) checkSaturated(row PopulationRow) *Milestone {
	on := md.capacity > 0 && float64(row.Total) >= saturatedShare*float64(md.capacity)
	was := md.saturated
	md.saturated = on
	if !on || was {
		return nil
	}
	return &Milestone{
		Type:        MilestoneHostSaturated,
		Time:        row.Time,
		Clade:       -1,
		Description: fmt.Sprintf("%d of %d cells occupied", row.Total, md.capacity),
	}
}
