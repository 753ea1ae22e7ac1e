// Package event defines the simulation's event kinds, contention outcomes,
// exit reasons, and the time-ordered event queue.
package event

import "fmt"

// AgentID identifies a symbiont for the lifetime of a run.
type AgentID uint64

// NoAgent marks events that are not bound to a resident symbiont (arrivals).
const NoAgent AgentID = 0

// Kind identifies what happens when an event fires.
type Kind uint8

const (
	Arrival    Kind = iota // an outside symbiont attempts to colonize
	EndG0                  // end of the G0 phase
	EndG1SG2M              // end of G1/S/G2/M: division and contention
	Digestion              // the host digests the symbiont
	Escape                 // the symbiont escapes digestion and leaves
	Denouement             // the symbiont leaves of its own accord
)

var kindNames = [...]string{
	Arrival:    "ARRIVAL",
	EndG0:      "END_G0",
	EndG1SG2M:  "END_G1SG2M",
	Digestion:  "DIGESTION",
	Escape:     "ESCAPE",
	Denouement: "DENOUEMENT",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Terminal reports whether the kind permanently removes its symbiont.
func (k Kind) Terminal() bool {
	return k == Digestion || k == Escape || k == Denouement
}

// Event is a single scheduled occurrence.
type Event struct {
	Time  float64
	Kind  Kind
	Agent AgentID
}

func (e Event) String() string {
	if e.Agent == NoAgent {
		return fmt.Sprintf("%s @ t=%f", e.Kind, e.Time)
	}
	return fmt.Sprintf("%s @ t=%f (symbiont %d)", e.Kind, e.Time, e.Agent)
}

// Next is a symbiont's next scheduled event: when and what.
type Next struct {
	Time float64
	Kind Kind
}

// For binds the scheduled event to its symbiont.
func (n Next) For(id AgentID) Event {
	return Event{Time: n.Time, Kind: n.Kind, Agent: id}
}
