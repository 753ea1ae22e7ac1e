// Package sponge models the host: a fixed grid of cells, each holding at
// most one symbiont.
package sponge

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/symbiosis/event"
)

var (
	// ErrOccupied is returned when occupying a cell that already holds a symbiont.
	ErrOccupied = errors.New("sponge: cell already occupied")
	// ErrOutOfBounds is returned for cells outside the grid.
	ErrOutOfBounds = errors.New("sponge: cell out of bounds")
	// ErrNoOpenCell is returned when a search finds no empty cell.
	ErrNoOpenCell = errors.New("sponge: no open cell")
)

// Cell is a grid position.
type Cell struct {
	Row, Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Pick returns a uniform integer in [0, n). Callers bind it to a random stream.
type Pick func(n int) int

// Grid is the host's cell lattice.
type Grid struct {
	rows, cols int
	cells      []event.AgentID // row-major; event.NoAgent when empty
	occupied   int
}

// NewGrid creates an empty rows×cols grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]event.AgentID, rows*cols),
	}
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Capacity returns the number of cells.
func (g *Grid) Capacity() int { return len(g.cells) }

// Occupied returns the number of occupied cells.
func (g *Grid) Occupied() int { return g.occupied }

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

func (g *Grid) index(c Cell) int {
	return c.Row*g.cols + c.Col
}

// Occupant returns the symbiont in c, or event.NoAgent.
func (g *Grid) Occupant(c Cell) event.AgentID {
	if !g.InBounds(c) {
		return event.NoAgent
	}
	return g.cells[g.index(c)]
}

// IsOpen reports whether c is inside the grid and empty.
func (g *Grid) IsOpen(c Cell) bool {
	return g.InBounds(c) && g.cells[g.index(c)] == event.NoAgent
}

// Occupy places id in c. The cell must be empty.
func (g *Grid) Occupy(c Cell, id event.AgentID) error {
	if !g.InBounds(c) {
		return fmt.Errorf("occupy %s: %w", c, ErrOutOfBounds)
	}
	i := g.index(c)
	if cur := g.cells[i]; cur != event.NoAgent {
		return fmt.Errorf("occupy %s by %d (held by %d): %w", c, id, cur, ErrOccupied)
	}
	g.cells[i] = id
	g.occupied++
	return nil
}

// Replace hands an occupied cell from one symbiont to another.
func (g *Grid) Replace(c Cell, from, to event.AgentID) error {
	if !g.InBounds(c) {
		return fmt.Errorf("replace %s: %w", c, ErrOutOfBounds)
	}
	i := g.index(c)
	if g.cells[i] != from {
		return fmt.Errorf("replace %s: held by %d, not %d", c, g.cells[i], from)
	}
	g.cells[i] = to
	return nil
}

// Vacate empties c if it is held by id. It reports whether anything changed.
func (g *Grid) Vacate(c Cell, id event.AgentID) bool {
	if !g.InBounds(c) {
		return false
	}
	i := g.index(c)
	if g.cells[i] != id || id == event.NoAgent {
		return false
	}
	g.cells[i] = event.NoAgent
	g.occupied--
	return true
}

// RandomCell returns a uniformly chosen cell, open or not.
func (g *Grid) RandomCell(pick Pick) Cell {
	i := pick(len(g.cells))
	return Cell{Row: i / g.cols, Col: i % g.cols}
}

// FindOpenCell returns a uniformly chosen empty cell.
func (g *Grid) FindOpenCell(pick Pick) (Cell, error) {
	return g.FindOpenCellWithin(0, g.rows, 0, g.cols, pick)
}

// FindOpenCellWithin returns a uniformly chosen empty cell with row in
// [rowStart, rowEnd) and column in [colStart, colEnd). The band is clipped
// to the grid.
func (g *Grid) FindOpenCellWithin(rowStart, rowEnd, colStart, colEnd int, pick Pick) (Cell, error) {
	rowStart, rowEnd = clip(rowStart, rowEnd, g.rows)
	colStart, colEnd = clip(colStart, colEnd, g.cols)

	var open []Cell
	for r := rowStart; r < rowEnd; r++ {
		for c := colStart; c < colEnd; c++ {
			if g.cells[r*g.cols+c] == event.NoAgent {
				open = append(open, Cell{Row: r, Col: c})
			}
		}
	}
	if len(open) == 0 {
		return Cell{}, fmt.Errorf("rows [%d,%d) cols [%d,%d): %w", rowStart, rowEnd, colStart, colEnd, ErrNoOpenCell)
	}
	return open[pick(len(open))], nil
}

// Neighbor returns a uniformly chosen cell within Chebyshev distance radius
// of c, excluding c itself. The result may lie outside the grid; callers
// check InBounds.
func (g *Grid) Neighbor(c Cell, radius int, pick Pick) Cell {
	if radius < 1 {
		radius = 1
	}
	side := 2*radius + 1
	k := pick(side*side - 1)
	if k >= (side*side)/2 {
		k++ // skip the centre
	}
	return Cell{Row: c.Row + k/side - radius, Col: c.Col + k%side - radius}
}

func clip(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}
