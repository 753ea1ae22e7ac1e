// Package sim runs one simulation: the event dispatch loop, the population
// ledger and the initial seeding.
package sim

import (
	"github.com/pthm-cable/symbiosis/event"
	"github.com/pthm-cable/symbiosis/sponge"
	"github.com/pthm-cable/symbiosis/telemetry"
)

// Host owns the symbionts. symbiont.Colony is the production implementation.
type Host interface {
	// Arrive lets an outside candidate try to colonize, given the current
	// resident total.
	Arrive(now float64, total int) (event.AgentID, bool, error)
	Next(id event.AgentID) event.Next
	EndG0(id event.AgentID, now float64)
	// Divide resolves an EndG1SG2M. The departing side, if any, is still
	// resident until Exit.
	Divide(id event.AgentID, now float64) (event.Contention, error)
	Terminate(id event.AgentID, now float64, kind event.Kind)
	PrevKind(id event.AgentID) event.Kind
	Clade(id event.AgentID) int
	Exit(id event.AgentID, now float64, reason event.ExitReason) error
	FlushResidents(now float64) error
	Settle(clade int, cell sponge.Cell, now float64) (event.AgentID, error)
}

// Output receives the population time series and daily statistics.
// telemetry.OutputManager is the production implementation.
type Output interface {
	WritePopulation(row telemetry.PopulationRow) error
	WriteStats(stats telemetry.WindowStats) error
}
