package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/symbiosis/telemetry"
)

// progress draws a one-line progress bar, redrawn once per percent.
type progress struct {
	w    io.Writer
	end  float64
	last int
}

func newProgress(w io.Writer, end float64) *progress {
	return &progress{w: w, end: end, last: -1}
}

const barWidth = 40

// Update is called with every population row.
func (p *progress) Update(row telemetry.PopulationRow) {
	pct := 100
	if p.end > 0 && row.Time < p.end {
		pct = int(100 * row.Time / p.end)
	}
	if pct == p.last {
		return
	}
	p.last = pct

	filled := pct * barWidth / 100
	bar := make([]byte, barWidth)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = ' '
		}
	}
	fmt.Fprintf(p.w, "\rProgress: |%s| %3d%%  day %s  population %s",
		bar, pct, humanize.Comma(int64(row.Time)), humanize.Comma(int64(row.Total)))
	if pct == 100 {
		fmt.Fprintln(p.w)
	}
}
