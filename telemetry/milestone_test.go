package telemetry

import "testing"

func hasMilestone(ms []Milestone, typ MilestoneType) bool {
	for _, m := range ms {
		if m.Type == typ {
			return true
		}
	}
	return false
}

func TestMilestoneDetector_CladeExtinct(t *testing.T) {
	md := NewMilestoneDetector(100, 10)

	if ms := md.Check(PopulationRow{Time: 0, Total: 0, Clades: []int{0, 0}}); len(ms) != 0 {
		t.Errorf("clades never present should not go extinct: %v", ms)
	}
	md.Check(PopulationRow{Time: 1, Total: 3, Clades: []int{2, 1}})

	ms := md.Check(PopulationRow{Time: 2, Total: 2, Clades: []int{2, 0}})
	if !hasMilestone(ms, MilestoneCladeExtinct) || ms[0].Clade != 1 {
		t.Errorf("expected clade 1 extinct, got %v", ms)
	}
	if ms := md.Check(PopulationRow{Time: 3, Total: 2, Clades: []int{2, 0}}); hasMilestone(ms, MilestoneCladeExtinct) {
		t.Error("extinction should only trigger once")
	}
}

func TestMilestoneDetector_CladeDominant(t *testing.T) {
	md := NewMilestoneDetector(100, 10)

	if ms := md.Check(PopulationRow{Time: 0, Total: 5, Clades: []int{5, 0}}); hasMilestone(ms, MilestoneCladeDominant) {
		t.Error("small populations should not trigger dominance")
	}
	ms := md.Check(PopulationRow{Time: 1, Total: 20, Clades: []int{19, 1}})
	if !hasMilestone(ms, MilestoneCladeDominant) {
		t.Error("expected clade_dominant")
	}
	if ms := md.Check(PopulationRow{Time: 2, Total: 20, Clades: []int{19, 1}}); hasMilestone(ms, MilestoneCladeDominant) {
		t.Error("dominance should be edge-triggered")
	}

	single := NewMilestoneDetector(100, 10)
	if ms := single.Check(PopulationRow{Time: 0, Total: 50, Clades: []int{50}}); hasMilestone(ms, MilestoneCladeDominant) {
		t.Error("a single clade is never dominant")
	}
}

func TestMilestoneDetector_PopulationCrash(t *testing.T) {
	md := NewMilestoneDetector(1000, 10)

	for i := 0; i < 5; i++ {
		md.Check(PopulationRow{Time: float64(i), Total: 100, Clades: []int{100}})
	}
	ms := md.Check(PopulationRow{Time: 5, Total: 60, Clades: []int{60}})
	if !hasMilestone(ms, MilestonePopulationCrash) {
		t.Error("expected population_crash")
	}
}

func TestMilestoneDetector_NoCrashBelowMinimumPeak(t *testing.T) {
	md := NewMilestoneDetector(1000, 10)

	md.Check(PopulationRow{Time: 0, Total: 10, Clades: []int{10}})
	if ms := md.Check(PopulationRow{Time: 1, Total: 1, Clades: []int{1}}); hasMilestone(ms, MilestonePopulationCrash) {
		t.Error("crash should need a peak of at least 20")
	}
}

func TestMilestoneDetector_HostSaturated(t *testing.T) {
	md := NewMilestoneDetector(100, 10)

	if ms := md.Check(PopulationRow{Time: 0, Total: 94, Clades: []int{94}}); hasMilestone(ms, MilestoneHostSaturated) {
		t.Error("94% should not be saturated")
	}
	if ms := md.Check(PopulationRow{Time: 1, Total: 95, Clades: []int{95}}); !hasMilestone(ms, MilestoneHostSaturated) {
		t.Error("expected host_saturated at 95%")
	}
	md.Check(PopulationRow{Time: 2, Total: 50, Clades: []int{50}})
	if ms := md.Check(PopulationRow{Time: 3, Total: 100, Clades: []int{100}}); !hasMilestone(ms, MilestoneHostSaturated) {
		t.Error("saturation should re-trigger after clearing")
	}
}
