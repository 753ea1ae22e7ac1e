// Package telemetry writes the simulation's outputs: the population time
// series, per-symbiont exit records, daily event statistics, milestones and
// the debug trace.
package telemetry

import (
	"strconv"
	"strings"

	"github.com/pthm-cable/symbiosis/event"
)

// PopulationRow is one line of the population time series.
type PopulationRow struct {
	Time   float64 // day index, or the end time for the final row
	Total  int
	Clades []int
}

// Format renders the row tab-separated: time, total, then one count per clade.
func (r PopulationRow) Format() string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(r.Time, 'f', -1, 64))
	b.WriteByte('\t')
	b.WriteString(strconv.Itoa(r.Total))
	for _, n := range r.Clades {
		b.WriteByte('\t')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// ExitRecord is written once per symbiont when it leaves the host, or when
// the run ends with it still resident.
type ExitRecord struct {
	ID            uint64  `csv:"id"`
	ParentID      uint64  `csv:"parent_id"`
	Generation    int     `csv:"generation"`
	Clade         int     `csv:"clade"`
	Row           int     `csv:"row"`
	Col           int     `csv:"col"`
	ArrivalTime   float64 `csv:"arrival_time"`
	ExitTime      float64 `csv:"exit_time"`
	ResidenceTime float64 `csv:"residence_time"`
	Divisions     int     `csv:"divisions"`
	Reason        string  `csv:"reason"`

	ReasonCode event.ExitReason `csv:"-"`
}
