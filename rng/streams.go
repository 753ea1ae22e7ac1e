// Package rng provides named, independent pseudo-random streams. Each model
// process draws from its own stream so that changing how often one process
// samples does not perturb the others.
package rng

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Stream names an independent random stream.
type Stream uint8

const (
	Arrivals     Stream = iota // inter-arrival times
	Clade                      // clade of an arriving candidate
	Placement                  // cell selection
	Affinity                   // colonization checks
	G0                         // G0 phase durations
	G1SG2M                     // G1/S/G2/M phase durations
	Denouement                 // voluntary departure clocks
	HostResponse               // digestion/escape clocks and fates
	Contention                 // who moves at division, and where
	numStreams
)

var streamNames = [...]string{
	Arrivals:     "arrivals",
	Clade:        "clade",
	Placement:    "placement",
	Affinity:     "affinity",
	G0:           "g0",
	G1SG2M:       "g1sg2m",
	Denouement:   "denouement",
	HostResponse: "host_response",
	Contention:   "contention",
}

func (s Stream) String() string {
	if s < numStreams {
		return streamNames[s]
	}
	return fmt.Sprintf("Stream(%d)", uint8(s))
}

// Streams holds one PCG generator per named stream.
type Streams struct {
	seed uint64
	src  [numStreams]*rand.PCG
	rnd  [numStreams]*rand.Rand
}

// New seeds every stream from the run seed. Stream i uses the PCG pair
// (seed, i), so streams never share state.
func New(seed uint64) *Streams {
	s := &Streams{seed: seed}
	for i := range s.src {
		s.src[i] = rand.NewPCG(seed, uint64(i)+1)
		s.rnd[i] = rand.New(s.src[i])
	}
	return s
}

// Seed returns the seed the streams were built from.
func (s *Streams) Seed() uint64 {
	return s.seed
}

// Exponential draws from an exponential distribution with the given mean.
func (s *Streams) Exponential(mean float64, st Stream) float64 {
	return distuv.Exponential{Rate: 1 / mean, Src: s.src[st]}.Rand()
}

// Gamma draws from a gamma distribution with the given shape and mean.
func (s *Streams) Gamma(shape, mean float64, st Stream) float64 {
	return distuv.Gamma{Alpha: shape, Beta: shape / mean, Src: s.src[st]}.Rand()
}

// Bernoulli returns true with probability p.
func (s *Streams) Bernoulli(p float64, st Stream) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return distuv.Bernoulli{P: p, Src: s.src[st]}.Rand() == 1
}

// Choose returns an index drawn with probability proportional to weights.
func (s *Streams) Choose(weights []float64, st Stream) int {
	if len(weights) == 1 {
		return 0
	}
	return int(distuv.NewCategorical(weights, s.src[st]).Rand())
}

// IntN returns a uniform integer in [0, n).
func (s *Streams) IntN(n int, st Stream) int {
	return s.rnd[st].IntN(n)
}
