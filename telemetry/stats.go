package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/symbiosis/event"
)

// WindowStats holds event counts between two consecutive population rows.
type WindowStats struct {
	WindowStart float64 `csv:"-"`
	WindowEnd   float64 `csv:"day"`
	Population  int     `csv:"population"`

	// Colonization from outside
	ArrivalsAttempted int     `csv:"arrivals_attempted"`
	ArrivalsAccepted  int     `csv:"arrivals_accepted"`
	AcceptanceRate    float64 `csv:"acceptance_rate"`

	// Division outcomes
	Divisions      int `csv:"divisions"`
	Births         int `csv:"births"`
	Evictions      int `csv:"evictions"`
	InfectsOutside int `csv:"infects_outside"`
	NoAffinity     int `csv:"no_affinity"`

	// Terminal events
	Digestions  int `csv:"digestions"`
	Escapes     int `csv:"escapes"`
	Denouements int `csv:"denouements"`
}

// ReasonStats summarizes residence times for one exit reason.
type ReasonStats struct {
	Reason        event.ExitReason
	Count         int
	MeanResidence float64
	StdResidence  float64
}

// Summary accumulates residence times by exit reason over a run.
type Summary struct {
	residence map[event.ExitReason][]float64
	perClade  map[int]int
}

// NewSummary creates an empty summary.
func NewSummary() *Summary {
	return &Summary{
		residence: make(map[event.ExitReason][]float64),
		perClade:  make(map[int]int),
	}
}

// Add folds one exit record into the summary.
func (s *Summary) Add(rec ExitRecord) {
	s.residence[rec.ReasonCode] = append(s.residence[rec.ReasonCode], rec.ResidenceTime)
	s.perClade[rec.Clade]++
}

// Count returns the number of records seen.
func (s *Summary) Count() int {
	var n int
	for _, xs := range s.residence {
		n += len(xs)
	}
	return n
}

// CladeCount returns the number of records seen for a clade.
func (s *Summary) CladeCount(clade int) int {
	return s.perClade[clade]
}

// Stats returns per-reason residence statistics ordered by reason.
func (s *Summary) Stats() []ReasonStats {
	out := make([]ReasonStats, 0, len(s.residence))
	for reason, xs := range s.residence {
		rs := ReasonStats{Reason: reason, Count: len(xs)}
		if len(xs) > 1 {
			rs.MeanResidence, rs.StdResidence = stat.MeanStdDev(xs, nil)
		} else if len(xs) == 1 {
			rs.MeanResidence = xs[0]
		}
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reason < out[j].Reason })
	return out
}

// Log writes the summary using slog.
func (s *Summary) Log() {
	for _, rs := range s.Stats() {
		slog.Info("exit summary",
			"reason", rs.Reason.String(),
			"count", rs.Count,
			"mean_residence", rs.MeanResidence,
			"std_residence", rs.StdResidence,
		)
	}
}
