package sim

import (
	"fmt"

	"github.com/pthm-cable/symbiosis/telemetry"
)

// Ledger keeps the live population counts and turns the continuous event
// stream into one row per simulated day.
//
// The row for day d holds the population at instant d, after every event
// at a time <= d. Advance(t) is called before the events at t are applied,
// so it only emits days strictly before t.
type Ledger struct {
	total   int
	clades  []int
	nextDay int
	last    telemetry.PopulationRow
	emit    func(telemetry.PopulationRow) error
	closed  bool
}

// NewLedger creates a ledger for numClades clades. emit receives each row
// in order.
func NewLedger(numClades int, emit func(telemetry.PopulationRow) error) *Ledger {
	return &Ledger{
		clades: make([]int, numClades),
		emit:   emit,
	}
}

// Total returns the live resident count.
func (l *Ledger) Total() int { return l.total }

// Clade returns the live count of one clade.
func (l *Ledger) Clade(i int) int { return l.clades[i] }

// Last returns the most recently emitted row.
func (l *Ledger) Last() telemetry.PopulationRow { return l.last }

// Add counts a new resident of clade.
func (l *Ledger) Add(clade int) {
	l.total++
	l.clades[clade]++
}

// Remove uncounts a departed resident of clade.
func (l *Ledger) Remove(clade int) error {
	if l.clades[clade] == 0 {
		return fmt.Errorf("ledger: clade %d has no residents to remove", clade)
	}
	l.total--
	l.clades[clade]--
	return nil
}

// Check verifies that the clade counts sum to the total.
func (l *Ledger) Check() error {
	sum := 0
	for _, n := range l.clades {
		sum += n
	}
	if sum != l.total {
		return fmt.Errorf("ledger: clade counts sum to %d, total is %d", sum, l.total)
	}
	return nil
}

func (l *Ledger) row(t float64) telemetry.PopulationRow {
	return telemetry.PopulationRow{
		Time:   t,
		Total:  l.total,
		Clades: append([]int(nil), l.clades...),
	}
}

func (l *Ledger) write(t float64) error {
	r := l.row(t)
	l.last = r
	return l.emit(r)
}

// Start emits day 0 with the seeded population.
func (l *Ledger) Start() error {
	if err := l.write(0); err != nil {
		return err
	}
	l.nextDay = 1
	return nil
}

// Advance emits every day before t that has not been emitted yet.
func (l *Ledger) Advance(t float64) error {
	for float64(l.nextDay) < t {
		if err := l.write(float64(l.nextDay)); err != nil {
			return err
		}
		l.nextDay++
	}
	return nil
}

// Close emits the remaining days and a final row at end.
func (l *Ledger) Close(end float64) error {
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.Advance(end); err != nil {
		return err
	}
	return l.write(end)
}
