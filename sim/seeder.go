package sim

import (
	"fmt"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/event"
	"github.com/pthm-cable/symbiosis/rng"
	"github.com/pthm-cable/symbiosis/sponge"
)

// Seeder places the initial symbionts and the first arrival.
type Seeder struct {
	Count         int
	Cumulative    []float64 // cumulative clade proportions, last entry 1
	Placement     config.Placement
	AllowArrivals bool
	ArrivalMean   float64
}

// NewSeeder builds a seeder from the configuration.
func NewSeeder(cfg *config.Config) *Seeder {
	return &Seeder{
		Count:         cfg.NumInitialSymbionts,
		Cumulative:    cfg.Derived.CumulativeProportions,
		Placement:     cfg.InitialPlacement,
		AllowArrivals: cfg.AllowArrivals,
		ArrivalMean:   cfg.AvgTimeBetweenArrivals,
	}
}

// Seed schedules the first arrival (when arrivals are allowed) and settles
// Count symbionts at time 0, split across clades by config.SeedBands and
// placed according to the placement policy. Configs that pass validation
// never run out of room in a band.
func (sd *Seeder) Seed(host Host, grid *sponge.Grid, streams *rng.Streams, queue *event.Queue, ledger *Ledger) error {
	if sd.AllowArrivals {
		queue.Push(event.Event{
			Time: streams.Exponential(sd.ArrivalMean, rng.Arrivals),
			Kind: event.Arrival,
		})
	}

	pick := func(n int) int { return streams.IntN(n, rng.Placement) }
	n := 0
	for _, band := range config.SeedBands(sd.Count, sd.Cumulative) {
		for i := 0; i < band.Count; i++ {
			var cell sponge.Cell
			var err error
			switch sd.Placement {
			case config.Horizontal:
				cell, err = grid.FindOpenCellWithin(
					int(float64(grid.Rows())*band.Lo), int(float64(grid.Rows())*band.Hi),
					0, grid.Cols(), pick)
			case config.Vertical:
				cell, err = grid.FindOpenCellWithin(
					0, grid.Rows(),
					int(float64(grid.Cols())*band.Lo), int(float64(grid.Cols())*band.Hi), pick)
			default:
				cell, err = grid.FindOpenCell(pick)
			}
			if err != nil {
				return fmt.Errorf("seeding symbiont %d of clade %d: %w", n, band.Clade, err)
			}

			id, err := host.Settle(band.Clade, cell, 0)
			if err != nil {
				return fmt.Errorf("seeding symbiont %d: %w", n, err)
			}
			queue.Push(host.Next(id).For(id))
			ledger.Add(band.Clade)
			n++
		}
	}
	return nil
}
