// Package fourier is the project's sole FFT backend collaborator: every
// core package that needs a transform (specttuner's overlap-save analysis/
// synthesis, detect's spectrum/autocorrelation modes) goes through a Plan
// here rather than importing gonum directly, so the backend stays
// swappable. Grounded on the teacher's own gonum dsp/fourier usage in
// audio_extensions/sstv/fft.go, generalized from that file's one-shot
// real-input radix-2 helper to a reusable complex-to-complex forward/
// inverse plan (specttuner and detect both need the inverse transform,
// which the teacher's helper never exercised).
package fourier

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwsl/specttunerd/sampling"
)

type C = sampling.C

// Plan is a reusable complex-to-complex FFT of a fixed length.
type Plan struct {
	n    int
	cfft *fourier.CmplxFFT
}

// NewPlan builds a plan for transforms of length n.
func NewPlan(n int) *Plan {
	return &Plan{n: n, cfft: fourier.NewCmplxFFT(n)}
}

// Len returns the transform length this plan was built for.
func (p *Plan) Len() int { return p.n }

// Forward computes the DFT of src into dst (allocating dst if nil) and
// returns it.
func (p *Plan) Forward(dst, src []C) []C {
	return p.cfft.Coefficients(dst, src)
}

// Inverse computes the inverse DFT of src into dst (allocating dst if nil)
// and returns it, scaled by 1/n so that Inverse(Forward(x)) == x. gonum's
// Sequence is unnormalized, so the 1/n factor is applied here.
func (p *Plan) Inverse(dst, src []C) []C {
	out := p.cfft.Sequence(dst, src)
	scale := C(complex(1/float64(p.n), 0))
	for i := range out {
		out[i] *= scale
	}
	return out
}
