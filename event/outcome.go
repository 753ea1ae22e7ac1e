package event

import "fmt"

// Outcome is the result of resolving an EndG1SG2M (division) event.
type Outcome uint8

const (
	BothStay Outcome = iota
	ParentEvicted
	ChildEvicted
	ParentInfectsOutside
	ChildInfectsOutside
	ParentNoAffinity
	ChildNoAffinity
)

var outcomeNames = [...]string{
	BothStay:             "BOTH_STAY",
	ParentEvicted:        "PARENT_EVICTED",
	ChildEvicted:         "CHILD_EVICTED",
	ParentInfectsOutside: "PARENT_INFECTS_OUTSIDE",
	ChildInfectsOutside:  "CHILD_INFECTS_OUTSIDE",
	ParentNoAffinity:     "PARENT_NO_AFFINITY",
	ChildNoAffinity:      "CHILD_NO_AFFINITY",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// ParentDeparts reports whether the parent leaves the host and the child
// inherits the contested cell.
func (o Outcome) ParentDeparts() bool {
	return o == ParentEvicted || o == ParentInfectsOutside || o == ParentNoAffinity
}

// ChildDeparts reports whether the child leaves and the parent keeps the cell.
func (o Outcome) ChildDeparts() bool {
	return o == ChildEvicted || o == ChildInfectsOutside || o == ChildNoAffinity
}

// Reason is the exit reason recorded for the departing side.
func (o Outcome) Reason() ExitReason {
	return ExitReason(o)
}

// Contention pairs a division outcome with the child it produced.
type Contention struct {
	Outcome Outcome
	Child   AgentID
}

// ExitReason tags a symbiont's exit record. The first seven values mirror
// the Outcome values one-to-one.
type ExitReason uint8

const (
	ExitBothStay ExitReason = iota
	ExitParentEvicted
	ExitChildEvicted
	ExitParentInfectsOutside
	ExitChildInfectsOutside
	ExitParentNoAffinity
	ExitChildNoAffinity
	DigestionInG0
	DigestionInG1SG2M
	EscapeInG0
	EscapeInG1SG2M
	DenouementInG0
	DenouementInG1SG2M
	InResidence // still resident when the run ended
)

var reasonNames = [...]string{
	DigestionInG0:      "DIGESTION_IN_G0",
	DigestionInG1SG2M:  "DIGESTION_IN_G1SG2M",
	EscapeInG0:         "ESCAPE_IN_G0",
	EscapeInG1SG2M:     "ESCAPE_IN_G1SG2M",
	DenouementInG0:     "DENOUEMENT_IN_G0",
	DenouementInG1SG2M: "DENOUEMENT_IN_G1SG2M",
	InResidence:        "IN_RESIDENCE",
}

func (r ExitReason) String() string {
	if r <= ExitChildNoAffinity {
		return Outcome(r).String()
	}
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("ExitReason(%d)", uint8(r))
}

// TerminalReason classifies a terminal event by the phase it interrupted.
// A symbiont whose previous event was an arrival or a division is in G0;
// one whose previous event ended G0 is in G1SG2M.
func TerminalReason(kind, prev Kind) (ExitReason, error) {
	inG0 := prev == Arrival || prev == EndG1SG2M
	switch kind {
	case Digestion:
		if inG0 {
			return DigestionInG0, nil
		}
		return DigestionInG1SG2M, nil
	case Escape:
		if inG0 {
			return EscapeInG0, nil
		}
		return EscapeInG1SG2M, nil
	case Denouement:
		if inG0 {
			return DenouementInG0, nil
		}
		return DenouementInG1SG2M, nil
	}
	return 0, fmt.Errorf("event: %s is not a terminal event", kind)
}
