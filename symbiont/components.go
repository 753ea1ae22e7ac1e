// Package symbiont implements the resident agents: their phase clocks,
// colonization checks and division contention. Agents are ark ECS entities
// indexed by their event.AgentID.
package symbiont

import (
	"github.com/pthm-cable/symbiosis/event"
	"github.com/pthm-cable/symbiosis/sponge"
)

// Identity names a symbiont and its clade.
type Identity struct {
	ID    event.AgentID
	Clade int
}

// Residence is where a symbiont lives and since when.
type Residence struct {
	Cell    sponge.Cell
	Arrival float64
	Housed  bool // false for a child that never took a cell
}

// Cycle is the symbiont's position in its life cycle and its next event.
type Cycle struct {
	Prev       event.Kind // kind of the event that last acted on it
	PhaseStart float64
	Denouement float64 // absolute time of voluntary departure, drawn once
	Next       event.Next
}

// InG0 reports whether the symbiont is in G0 (it arrived or just divided).
func (c *Cycle) InG0() bool {
	return c.Prev == event.Arrival || c.Prev == event.EndG1SG2M
}

// Lineage tracks ancestry and reproduction.
type Lineage struct {
	Parent     event.AgentID
	Generation int
	Divisions  int
}
