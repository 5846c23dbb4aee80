// Package iir implements direct-form-II recursive filters: the general
// ring-buffered evaluator shared by every Butterworth/FIR filter in the
// signal chain, plus the factory functions that design their coefficients
// (Butterworth via the bilinear-transform coefficient recurrences, RRC/
// Hilbert/brickwall as pure-FIR instances built on the taps package).
package iir

import (
	"github.com/cwsl/specttunerd/sampling"
	"github.com/cwsl/specttunerd/taps"
)

// F and C alias the project-wide sample types, matching every other core
// package.
type F = sampling.F
type C = sampling.C

// Filter is a direct-form-II recursive filter: y[n] = sum(b[i]*x[n-i]) -
// sum(a[i]*y[n-i], i>=1), with a[0] implicit as 1. A zero y_size (len(a)==0)
// makes it a pure FIR filter. Ported from su_iir_filt_t, minus the VOLK
// double-length ring optimization, which is an implementation detail of the
// C evaluator and has no bearing on the filter's public contract.
type Filter struct {
	b []F
	a []F

	x    []C
	xPtr int

	y    []C
	yPtr int

	currY C
	gain  F
}

// newFilter builds a Filter from already-designed a/b coefficient arrays.
// a may be nil/empty for a pure FIR filter.
func newFilter(a, b []F) *Filter {
	f := &Filter{
		b:    b,
		a:    a,
		x:    make([]C, len(b)),
		gain: 1,
	}
	if len(a) > 0 {
		f.y = make([]C, len(a))
	}
	return f
}

func (f *Filter) pushX(x C) {
	f.x[f.xPtr] = x
	f.xPtr++
	if f.xPtr >= len(f.x) {
		f.xPtr = 0
	}
}

func (f *Filter) pushY(y C) {
	if len(f.y) == 0 {
		return
	}
	f.y[f.yPtr] = y
	f.yPtr++
	if f.yPtr >= len(f.y) {
		f.yPtr = 0
	}
}

func (f *Filter) eval() C {
	var y C

	p := f.xPtr - 1
	for i := 0; i < len(f.x); i++ {
		if p < 0 {
			p += len(f.x)
		}
		y += complex(f.b[i], 0) * f.x[p]
		p--
	}

	if len(f.y) > 0 {
		p = f.yPtr - 1
		for i := 1; i < len(f.y); i++ {
			if p < 0 {
				p += len(f.y)
			}
			y -= complex(f.a[i], 0) * f.y[p]
			p--
		}
	}

	return y
}

// Feed pushes one input sample through the filter and returns the
// gain-scaled output.
func (f *Filter) Feed(x C) C {
	f.pushX(x)
	y := f.eval()
	f.pushY(y)
	f.currY = y
	return complex(f.gain, 0) * y
}

// FeedBulk feeds an entire buffer through the filter in order, returning the
// gain-scaled outputs.
func (f *Filter) FeedBulk(x []C) []C {
	out := make([]C, len(x))
	for i, v := range x {
		out[i] = f.Feed(v)
	}
	return out
}

// Get returns the gain-scaled result of the most recent Feed call.
func (f *Filter) Get() C {
	return complex(f.gain, 0) * f.currY
}

// Reset clears the delay lines and ring pointers.
func (f *Filter) Reset() {
	for i := range f.x {
		f.x[i] = 0
	}
	for i := range f.y {
		f.y[i] = 0
	}
	f.xPtr, f.yPtr = 0, 0
	f.currY = 0
}

// SetGain changes the output scaling factor applied by Feed/Get.
func (f *Filter) SetGain(gain F) {
	f.gain = gain
}

// NewButterworthLPF designs an n-pole Butterworth lowpass filter with
// normalized cutoff fc (half-cycles-per-sample). Ported from
// su_iir_bwlpf_init.
func NewButterworthLPF(n int, fc F) *Filter {
	a := dcofBWLP(n, fc)
	b := ccofBWLP(n)
	scaling := sfBWLP(n, fc)
	for i := range b {
		b[i] *= scaling
	}
	return newFilter(a, b)
}

// NewButterworthHPF designs an n-pole Butterworth highpass filter with
// normalized cutoff fc. Ported from su_iir_bwhpf_init.
func NewButterworthHPF(n int, fc F) *Filter {
	a := dcofBWHP(n, fc)
	b := ccofBWHP(n)
	scaling := sfBWHP(n, fc)
	for i := range b {
		b[i] *= scaling
	}
	return newFilter(a, b)
}

// NewButterworthBPF designs an n-pole (2n-order) Butterworth bandpass filter
// between normalized edges f1 and f2. Ported from su_iir_bwbpf_init.
func NewButterworthBPF(n int, f1, f2 F) *Filter {
	a := dcofBWBP(n, f1, f2)
	b := ccofBWBP(n)
	scaling := sfBWBP(n, f1, f2)
	for i := range b {
		b[i] *= scaling
	}
	return newFilter(a, b)
}

// NewFIR builds a pure-FIR filter directly from caller-supplied taps, with
// no y delay line. Used by collaborators (e.g. the Costas loop's arm
// filter) that design their own tap arrays rather than going through one of
// the named factories below.
func NewFIR(b []F) *Filter {
	return newFilter(nil, append([]F(nil), b...))
}

// NewRRC builds an n-tap pure-FIR root-raised-cosine filter with symbol
// period T (in samples) and roll-off beta. Ported from su_iir_rrc_init.
func NewRRC(n int, T, beta F) *Filter {
	b := make([]F, n)
	taps.RRCInit(b, T, beta)
	return newFilter(nil, b)
}

// NewHilbert builds an n-tap pure-FIR Hilbert transformer. Ported from
// su_iir_hilbert_init.
func NewHilbert(n int) *Filter {
	b := make([]F, n)
	taps.HilbertInit(b)
	return newFilter(nil, b)
}

// NewBrickwallBP builds an n-tap pure-FIR bandpass filter of bandwidth bw
// centered at normalized frequency ifNorm. Ported from
// su_iir_brickwall_bp_init.
func NewBrickwallBP(n int, bw, ifNorm F) *Filter {
	b := make([]F, n)
	taps.BrickwallBPInit(b, bw, ifNorm)
	return newFilter(nil, b)
}

// NewBrickwallLP builds an n-tap pure-FIR lowpass filter at normalized
// cutoff fc. Ported from su_iir_brickwall_lp_init.
func NewBrickwallLP(n int, fc F) *Filter {
	b := make([]F, n)
	taps.BrickwallLPInit(b, fc)
	return newFilter(nil, b)
}
