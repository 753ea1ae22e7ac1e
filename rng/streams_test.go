package rng

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestStreamsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		x := a.Exponential(2, Arrivals)
		y := b.Exponential(2, Arrivals)
		if x != y {
			t.Fatalf("draw %d: %v != %v for identical seeds", i, x, y)
		}
	}
}

func TestStreamsIndependent(t *testing.T) {
	a, b := New(42), New(42)

	// Draining one stream on a must not shift another stream's sequence.
	for i := 0; i < 50; i++ {
		a.IntN(100, Placement)
	}
	for i := 0; i < 20; i++ {
		if x, y := a.Exponential(1, Arrivals), b.Exponential(1, Arrivals); x != y {
			t.Fatalf("draw %d: arrivals stream perturbed by placement draws", i)
		}
	}
}

func TestExponentialMean(t *testing.T) {
	s := New(1)
	xs := make([]float64, 20000)
	for i := range xs {
		xs[i] = s.Exponential(3, Arrivals)
	}
	if m := stat.Mean(xs, nil); math.Abs(m-3) > 0.15 {
		t.Errorf("mean = %v, want ~3", m)
	}
}

func TestGammaMean(t *testing.T) {
	s := New(2)
	xs := make([]float64, 20000)
	for i := range xs {
		xs[i] = s.Gamma(4, 2, G0)
	}
	if m := stat.Mean(xs, nil); math.Abs(m-2) > 0.1 {
		t.Errorf("mean = %v, want ~2", m)
	}
}

func TestBernoulliBounds(t *testing.T) {
	s := New(3)
	for i := 0; i < 100; i++ {
		if s.Bernoulli(0, Affinity) {
			t.Fatal("p=0 returned true")
		}
		if !s.Bernoulli(1, Affinity) {
			t.Fatal("p=1 returned false")
		}
	}
}

func TestChooseRespectsZeroWeights(t *testing.T) {
	s := New(4)
	for i := 0; i < 500; i++ {
		if got := s.Choose([]float64{0, 1, 0}, Clade); got != 1 {
			t.Fatalf("Choose = %d, want 1", got)
		}
	}
}
