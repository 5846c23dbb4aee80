// Package taps builds FIR tap arrays (RRC, brickwall, Hilbert) and window
// functions (Hamming, Hann, Blackmann-Harris, flat-top) shared by the IIR
// factories, the Costas arm filter, and the channel detector's window.
package taps

import (
	"math"

	"github.com/cwsl/specttunerd/sampling"
)

const (
	hammingAlpha = 0.54
	hammingBeta  = 1 - hammingAlpha

	hannAlpha = 0.5
	hannBeta  = 1 - hannAlpha
)

// threshold mirrors SUFLOAT_THRESHOLD, the epsilon below which the RRC
// formula's removable singularities are taken at their limit.
const threshold = 1e-6

func hammingWeight(i, size int) sampling.F {
	return hammingAlpha - hammingBeta*math.Cos(2*math.Pi*sampling.F(i)/sampling.F(size-1))
}

func hannWeight(i, size int) sampling.F {
	return hannAlpha - hannBeta*math.Cos(2*math.Pi*sampling.F(i)/sampling.F(size-1))
}

// blackmannHarrisWeight is the 4-term Blackmann-Harris window, used both as
// an FIR window (taps package) and as the specttuner channel filter's
// frequency-domain shaping window.
func blackmannHarrisWeight(i, size int) sampling.F {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	x := 2 * math.Pi * sampling.F(i) / sampling.F(size-1)
	return a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x)
}

// flatTopWeight is the 5-term flat-top window.
func flatTopWeight(i, size int) sampling.F {
	const (
		a0 = 0.21557895
		a1 = 0.41663158
		a2 = 0.277263158
		a3 = 0.083578947
		a4 = 0.006947368
	)
	x := 2 * math.Pi * sampling.F(i) / sampling.F(size-1)
	return a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x) + a4*math.Cos(4*x)
}

// applyWindowRaw multiplies h by the window shape without renormalizing
// the result's sum, the right behavior when h is a filter's impulse
// response being tapered (brickwall, Hilbert) rather than a window
// function whose own sum must equal one (RRC, detector window_func).
func applyWindowRaw(h []sampling.F, weight func(i, size int) sampling.F) {
	for i := range h {
		h[i] *= weight(i, len(h))
	}
}

func applyWindow(h []sampling.F, weight func(i, size int) sampling.F) {
	size := len(h)
	norm := sampling.F(0)
	for i := range h {
		h[i] *= weight(i, size)
		norm += h[i]
	}
	if norm != 0 {
		for i := range h {
			h[i] /= norm
		}
	}
}

func applyWindowComplex(h []sampling.C, weight func(i, size int) sampling.F) {
	size := len(h)
	norm := sampling.F(0)
	weights := make([]sampling.F, size)
	for i := range h {
		weights[i] = weight(i, size)
		norm += weights[i]
	}
	if norm == 0 {
		norm = 1
	}
	for i := range h {
		h[i] *= complex(weights[i]/norm, 0)
	}
}

// ApplyHamming multiplies h in place by a Hamming window, normalized so
// the window coefficients sum to one.
func ApplyHamming(h []sampling.F) { applyWindow(h, hammingWeight) }

// ApplyHammingComplex is the complex-array counterpart used by the channel
// detector's window_func buffer.
func ApplyHammingComplex(h []sampling.C) { applyWindowComplex(h, hammingWeight) }

// ApplyHann multiplies h in place by a Hann window, normalized to unit sum.
func ApplyHann(h []sampling.F) { applyWindow(h, hannWeight) }

// ApplyHannComplex is the complex-array counterpart.
func ApplyHannComplex(h []sampling.C) { applyWindowComplex(h, hannWeight) }

// ApplyBlackmannHarris multiplies h in place by a 4-term Blackmann-Harris
// window, normalized to unit sum.
func ApplyBlackmannHarris(h []sampling.F) { applyWindow(h, blackmannHarrisWeight) }

// ApplyBlackmannHarrisComplex is the complex-array counterpart, used both
// by the channel detector (NONLINEAR_DIFF mode) and by specttuner's channel
// filter-response construction.
func ApplyBlackmannHarrisComplex(h []sampling.C) { applyWindowComplex(h, blackmannHarrisWeight) }

// ApplyFlatTop multiplies h in place by a 5-term flat-top window,
// normalized to unit sum.
func ApplyFlatTop(h []sampling.F) { applyWindow(h, flatTopWeight) }

// ApplyFlatTopComplex is the complex-array counterpart.
func ApplyFlatTopComplex(h []sampling.C) { applyWindowComplex(h, flatTopWeight) }

// RRCInit fills h with a root-raised-cosine response of the given span
// (size taps), symbol period T (in samples) and roll-off beta, centered at
// size/2, then applies a Hamming window. Ported from su_taps_rrc_init,
// including its two removable-singularity special cases.
func RRCInit(h []sampling.F, T, beta sampling.F) {
	size := len(h)
	sqrtT := math.Sqrt(T)

	for i := range h {
		rt := (sampling.F(i) - sampling.F(size)/2) / T
		f := 4 * beta * rt
		dem := sqrtT * math.Pi * rt * (1 - f*f)
		num := math.Sin(math.Pi*rt*(1-beta)) + 4*beta*rt*math.Cos(math.Pi*rt*(1+beta))

		switch {
		case math.Abs(rt) < threshold:
			h[i] = (1 - beta + 4*beta/math.Pi) / sqrtT
		case math.Abs(dem) < threshold:
			h[i] = beta / math.Sqrt(2*T) * (
				(1+2/math.Pi)*math.Sin(math.Pi/(4*beta)) +
					(1-2/math.Pi)*math.Cos(math.Pi/(4*beta)))
		default:
			h[i] = num / dem
		}
	}

	ApplyHamming(h)
}

// sinc is the normalized sinc function, sin(pi*x)/(pi*x), with sinc(0)=1.
func sinc(x sampling.F) sampling.F {
	if math.Abs(x) < threshold {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// BrickwallLPInit fills h with a windowed-sinc low-pass response at cutoff
// fc (normalized, half-cycles-per-sample), then applies a Hamming window.
// Not present in the retrieved original source (taps.c only implements
// Hamming/Hann/RRC); built from the standard windowed-sinc low-pass
// construction spec.md §4.3 describes.
func BrickwallLPInit(h []sampling.F, fc sampling.F) {
	size := len(h)
	center := sampling.F(size-1) / 2
	for i := range h {
		h[i] = fc * sinc(fc*(sampling.F(i)-center))
	}
	applyWindowRaw(h, hammingWeight)
}

// BrickwallBPInit fills h with a windowed-sinc bandpass response of
// bandwidth bw (normalized) centered at ifNorm (normalized), by modulating
// a low-pass prototype up to the intermediate frequency. Not present in the
// retrieved original source; built from the construction spec.md §4.3/§4.4
// describes ("windowed-sinc bandpass centered at if_norm").
func BrickwallBPInit(h []sampling.F, bw, ifNorm sampling.F) {
	size := len(h)
	center := sampling.F(size-1) / 2
	for i := range h {
		t := sampling.F(i) - center
		h[i] = bw * sinc(bw*t) * math.Cos(math.Pi*ifNorm*t)
	}
	applyWindowRaw(h, hammingWeight)
}

// HilbertInit fills h with a standard FIR Hilbert transformer: zero at
// even taps, 2/(pi*n) at odd taps (n measured from center), windowed by
// Hamming. Not present in the retrieved original source; built from the
// standard FIR-Hilbert construction spec.md §4.3 names.
func HilbertInit(h []sampling.F) {
	size := len(h)
	center := (size - 1) / 2
	for i := range h {
		n := i - center
		if n%2 == 0 {
			h[i] = 0
		} else {
			h[i] = 2 / (math.Pi * sampling.F(n))
		}
	}
	applyWindowRaw(h, hammingWeight)
}
