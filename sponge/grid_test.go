package sponge

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/pthm-cable/symbiosis/event"
)

func picker(seed int64) Pick {
	r := rand.New(rand.NewSource(seed))
	return r.Intn
}

func TestOccupyRejectsDoubleOccupancy(t *testing.T) {
	g := NewGrid(2, 2)
	c := Cell{Row: 1, Col: 0}
	if err := g.Occupy(c, 1); err != nil {
		t.Fatalf("first occupy: %v", err)
	}
	if err := g.Occupy(c, 2); !errors.Is(err, ErrOccupied) {
		t.Errorf("second occupy err = %v, want ErrOccupied", err)
	}
	if got := g.Occupant(c); got != 1 {
		t.Errorf("Occupant = %d, want 1", got)
	}
	if g.Occupied() != 1 {
		t.Errorf("Occupied = %d, want 1", g.Occupied())
	}
}

func TestOccupyOutOfBounds(t *testing.T) {
	g := NewGrid(2, 2)
	if err := g.Occupy(Cell{Row: 2, Col: 0}, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestVacateOnlyByOwner(t *testing.T) {
	g := NewGrid(1, 1)
	c := Cell{}
	_ = g.Occupy(c, 5)
	if g.Vacate(c, 6) {
		t.Error("vacate by non-owner succeeded")
	}
	if !g.Vacate(c, 5) {
		t.Error("vacate by owner failed")
	}
	if !g.IsOpen(c) || g.Occupied() != 0 {
		t.Error("cell should be open after vacate")
	}
}

func TestReplace(t *testing.T) {
	g := NewGrid(1, 2)
	c := Cell{Col: 1}
	_ = g.Occupy(c, 3)
	if err := g.Replace(c, 4, 9); err == nil {
		t.Error("replace with wrong owner should fail")
	}
	if err := g.Replace(c, 3, 9); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if g.Occupant(c) != 9 || g.Occupied() != 1 {
		t.Errorf("after replace occupant=%d occupied=%d", g.Occupant(c), g.Occupied())
	}
}

func TestFindOpenCellWithinBand(t *testing.T) {
	g := NewGrid(10, 4)
	pick := picker(1)
	for i := 0; i < 8; i++ {
		c, err := g.FindOpenCellWithin(2, 4, 0, 4, pick)
		if err != nil {
			t.Fatalf("find %d: %v", i, err)
		}
		if c.Row < 2 || c.Row >= 4 {
			t.Fatalf("cell %s outside rows [2,4)", c)
		}
		if err := g.Occupy(c, event.AgentID(i+1)); err != nil {
			t.Fatalf("occupy %s: %v", c, err)
		}
	}
	if _, err := g.FindOpenCellWithin(2, 4, 0, 4, pick); !errors.Is(err, ErrNoOpenCell) {
		t.Errorf("full band err = %v, want ErrNoOpenCell", err)
	}
	if _, err := g.FindOpenCellWithin(3, 3, 0, 4, pick); !errors.Is(err, ErrNoOpenCell) {
		t.Errorf("empty band err = %v, want ErrNoOpenCell", err)
	}
}

func TestNeighborExcludesCentre(t *testing.T) {
	g := NewGrid(5, 5)
	pick := picker(2)
	centre := Cell{Row: 2, Col: 2}
	seen := map[Cell]bool{}
	for i := 0; i < 2000; i++ {
		n := g.Neighbor(centre, 1, pick)
		if n == centre {
			t.Fatal("Neighbor returned the centre cell")
		}
		dr, dc := n.Row-centre.Row, n.Col-centre.Col
		if dr < -1 || dr > 1 || dc < -1 || dc > 1 {
			t.Fatalf("neighbor %s outside radius 1", n)
		}
		seen[n] = true
	}
	if len(seen) != 8 {
		t.Errorf("saw %d distinct neighbors, want 8", len(seen))
	}
}

func TestNeighborCanLeaveGrid(t *testing.T) {
	g := NewGrid(3, 3)
	pick := picker(3)
	outside := false
	for i := 0; i < 200; i++ {
		if !g.InBounds(g.Neighbor(Cell{}, 1, pick)) {
			outside = true
			break
		}
	}
	if !outside {
		t.Error("corner cell never produced an out-of-grid neighbor")
	}
}
