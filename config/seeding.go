package config

import "fmt"

// SeedBand is the share of the host one clade is seeded into, bounded by
// cumulative proportions Lo and Hi.
type SeedBand struct {
	Clade  int
	Count  int
	Lo, Hi float64
}

// Width is the number of rows (or columns) of dim the band spans.
func (b SeedBand) Width(dim int) int {
	return int(float64(dim)*b.Hi) - int(float64(dim)*b.Lo)
}

// SeedBands splits count initial symbionts across clades. The n-th symbiont
// goes to the first clade whose cumulative proportion is at least n/count.
// Clades with a zero proportion never receive a symbiont.
func SeedBands(count int, cumulative []float64) []SeedBand {
	bands := make([]SeedBand, len(cumulative))
	prev := 0.0
	for i, c := range cumulative {
		bands[i] = SeedBand{Clade: i, Lo: prev, Hi: c}
		prev = c
	}
	if len(bands) == 0 {
		return bands
	}

	last := len(bands) - 1
	clade := 0
	for n := 0; n < count; n++ {
		for clade < last && (bands[clade].Hi <= bands[clade].Lo ||
			float64(n)/float64(count) > bands[clade].Hi) {
			clade++
		}
		bands[clade].Count++
	}
	return bands
}

// checkSeedBands reports banded placements whose bands cannot hold the
// symbionts assigned to them.
func (c *Config) checkSeedBands() []error {
	var span, across int
	var axis string
	switch c.InitialPlacement {
	case Horizontal:
		span, across, axis = c.NumRows, c.NumCols, "rows"
	case Vertical:
		span, across, axis = c.NumCols, c.NumRows, "columns"
	default:
		return nil
	}

	var errs []error
	for _, b := range SeedBands(c.NumInitialSymbionts, c.Derived.CumulativeProportions) {
		if b.Count == 0 {
			continue
		}
		if room := b.Width(span) * across; b.Count > room {
			errs = append(errs, fmt.Errorf(
				"CLADE_PROPORTIONS[%d]: %d initial symbionts do not fit in %s placement band of %d %s (%d cells)",
				b.Clade, b.Count, c.InitialPlacement, b.Width(span), axis, room))
		}
	}
	return errs
}
