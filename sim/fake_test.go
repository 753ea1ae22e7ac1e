package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/event"
	"github.com/pthm-cable/symbiosis/sponge"
	"github.com/pthm-cable/symbiosis/telemetry"
)

const never = 1e9

type exitCall struct {
	id     event.AgentID
	reason event.ExitReason
}

type settleCall struct {
	clade int
	cell  sponge.Cell
}

// fakeHost is a scripted Host. Arrivals succeed while accept has entries
// left that are true; divisions return the scripted outcome.
type fakeHost struct {
	lastID  event.AgentID
	clades  map[event.AgentID]int
	prev    map[event.AgentID]event.Kind
	accept  []bool
	outcome event.Outcome
	settled []settleCall
	exits   []exitCall
	flushed int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		clades: make(map[event.AgentID]int),
		prev:   make(map[event.AgentID]event.Kind),
	}
}

func (h *fakeHost) add(clade int, prev event.Kind) event.AgentID {
	h.lastID++
	h.clades[h.lastID] = clade
	h.prev[h.lastID] = prev
	return h.lastID
}

func (h *fakeHost) Arrive(now float64, total int) (event.AgentID, bool, error) {
	if len(h.accept) == 0 {
		return event.NoAgent, false, nil
	}
	ok := h.accept[0]
	h.accept = h.accept[1:]
	if !ok {
		return event.NoAgent, false, nil
	}
	return h.add(0, event.Arrival), true, nil
}

func (h *fakeHost) Next(id event.AgentID) event.Next {
	return event.Next{Time: never, Kind: event.EndG0}
}

func (h *fakeHost) EndG0(id event.AgentID, now float64) {
	h.prev[id] = event.EndG0
}

func (h *fakeHost) Divide(id event.AgentID, now float64) (event.Contention, error) {
	child := h.add(h.clades[id], event.EndG1SG2M)
	h.prev[id] = event.EndG1SG2M
	return event.Contention{Outcome: h.outcome, Child: child}, nil
}

func (h *fakeHost) Terminate(id event.AgentID, now float64, kind event.Kind) {}

func (h *fakeHost) PrevKind(id event.AgentID) event.Kind { return h.prev[id] }

func (h *fakeHost) Clade(id event.AgentID) int { return h.clades[id] }

func (h *fakeHost) Exit(id event.AgentID, now float64, reason event.ExitReason) error {
	h.exits = append(h.exits, exitCall{id: id, reason: reason})
	delete(h.clades, id)
	return nil
}

func (h *fakeHost) FlushResidents(now float64) error {
	h.flushed = len(h.clades)
	return nil
}

func (h *fakeHost) Settle(clade int, cell sponge.Cell, now float64) (event.AgentID, error) {
	h.settled = append(h.settled, settleCall{clade: clade, cell: cell})
	return h.add(clade, event.Arrival), nil
}

type memOutput struct {
	rows  []telemetry.PopulationRow
	stats []telemetry.WindowStats
}

func (o *memOutput) WritePopulation(row telemetry.PopulationRow) error {
	o.rows = append(o.rows, row)
	return nil
}

func (o *memOutput) WriteStats(stats telemetry.WindowStats) error {
	o.stats = append(o.stats, stats)
	return nil
}

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}
