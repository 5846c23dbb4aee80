package taps

import (
	"math"
	"testing"
)

func sum(h []float64) float64 {
	s := 0.0
	for _, v := range h {
		s += v
	}
	return s
}

func TestApplyWindowsNormalizeToUnitSum(t *testing.T) {
	windows := []struct {
		name  string
		apply func([]float64)
	}{
		{"hamming", ApplyHamming},
		{"hann", ApplyHann},
		{"blackmann-harris", ApplyBlackmannHarris},
		{"flat-top", ApplyFlatTop},
	}

	for _, w := range windows {
		t.Run(w.name, func(t *testing.T) {
			h := make([]float64, 65)
			for i := range h {
				h[i] = 1
			}
			w.apply(h)
			if got := sum(h); math.Abs(got-1) > 1e-9 {
				t.Fatalf("sum(%s) = %v, want 1", w.name, got)
			}
		})
	}
}

func TestRRCInitCenterIsPeak(t *testing.T) {
	h := make([]float64, 101)
	RRCInit(h, 8, 0.35)

	center := h[50]
	for i, v := range h {
		if i == 50 {
			continue
		}
		if v > center {
			t.Fatalf("tap %d (%v) exceeds center tap %v", i, v, center)
		}
	}
}

func TestHilbertIsAntisymmetricAroundCenter(t *testing.T) {
	h := make([]float64, 65)
	HilbertInit(h)

	center := (len(h) - 1) / 2
	for n := 1; n < 10; n++ {
		lo := h[center-n]
		hi := h[center+n]
		if math.Abs(lo+hi) > 1e-9 {
			t.Fatalf("h[%d]=%v and h[%d]=%v are not antisymmetric", center-n, lo, center+n, hi)
		}
	}
	if h[center] != 0 {
		t.Fatalf("Hilbert center tap should be zero, got %v", h[center])
	}
}

func TestBrickwallLPPeaksAtCenter(t *testing.T) {
	h := make([]float64, 129)
	BrickwallLPInit(h, 0.2)

	center := (len(h) - 1) / 2
	for i, v := range h {
		if math.Abs(v) > h[center]+1e-9 && i != center {
			t.Fatalf("tap %d (%v) exceeds center tap %v", i, v, h[center])
		}
	}
}
