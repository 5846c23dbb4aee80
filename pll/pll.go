// Package pll implements a basic second-order phase-locked loop and a
// Costas carrier-recovery loop (BPSK/QPSK) built on top of ncqo and iir.
package pll

import (
	"fmt"
	"math"

	"github.com/cwsl/specttunerd/iir"
	"github.com/cwsl/specttunerd/ncqo"
	"github.com/cwsl/specttunerd/sampling"
	"github.com/cwsl/specttunerd/taps"
)

type F = sampling.F
type C = sampling.C

// PLL is a second-order phase-locked loop tracking a real-valued input
// tone. Ported from su_pll_t/su_pll_feed.
type PLL struct {
	alpha F
	beta  F
	lock  F
	osc   *ncqo.NCQO
}

// NewPLL creates a PLL with initial frequency hint fhint (normalized) and
// loop bandwidth fc (normalized). Ported from su_pll_init: alpha is the
// loop's angular bandwidth, beta its square root.
func NewPLL(fhint, fc F) *PLL {
	alpha := sampling.Norm2AngFreq(fc)
	return &PLL{
		alpha: alpha,
		beta:  math.Sqrt(alpha),
		osc:   ncqo.New(fhint),
	}
}

// Feed advances the loop by one real-valued input sample. Ported from
// su_pll_feed: the NCQO's in-phase/quadrature outputs furnish the error
// (projection against Q) and lock (projection against I) signals, and the
// loop pulls the oscillator's angular frequency and phase toward them.
func (p *PLL) Feed(x F) {
	s := p.osc.Read()

	err := -x * imagF(s)
	lck := x * realF(s)

	p.lock += p.beta * (2*lck - p.lock)

	if p.osc.GetAngFreq() > -p.alpha*err {
		p.osc.IncAngFreq(p.alpha * err)
	}
	p.osc.IncPhase(p.beta * err)
}

// Lock returns the current lock indicator (higher is closer to locked).
func (p *PLL) Lock() F { return p.lock }

// Frequency returns the oscillator's tracked normalized frequency.
func (p *PLL) Frequency() F { return p.osc.GetFreq() }

func realF(z C) F { return F(real(z)) }
func imagF(z C) F { return F(imag(z)) }

// CostasKind selects the error-detector formula used by a Costas loop.
type CostasKind int

const (
	// CostasBPSK tracks a BPSK carrier (error taken directly from the
	// classic Costas-loop BPSK formula).
	CostasBPSK CostasKind = iota
	// CostasQPSK tracks a QPSK carrier (error from Tytgat's time-domain
	// QPSK Costas model).
	CostasQPSK
)

// Costas is a QPSK/BPSK Costas carrier-recovery loop. Ported from
// su_costas_t/su_costas_feed. 8PSK is not implemented: the algorithm it is
// grounded on never wires an error formula for that case either.
type Costas struct {
	kind CostasKind
	a    F
	b    F
	lock F

	arm    *iir.Filter
	z      C
	y      C
	yAlpha C

	gain F
	osc  *ncqo.NCQO
}

// NewCostas builds a Costas loop of the given kind, with initial frequency
// hint fhint, arm (lowpass) filter bandwidth armBW and tap count armOrder,
// and loop bandwidth loopBW. Ported from su_costas_init. armOrder below 2
// degenerates to a single unity tap, matching the source's fallback.
func NewCostas(kind CostasKind, fhint, armBW F, armOrder int, loopBW F) (*Costas, error) {
	if kind != CostasBPSK && kind != CostasQPSK {
		return nil, fmt.Errorf("pll: unsupported costas kind %d (only BPSK and QPSK carrier recovery are implemented)", kind)
	}

	a := sampling.Norm2AngFreq(loopBW)

	var armTaps []F
	if armOrder < 2 {
		armTaps = []F{1}
	} else {
		armTaps = make([]F, armOrder)
		taps.BrickwallLPInit(armTaps, armBW)
	}

	return &Costas{
		kind:   kind,
		a:      a,
		b:      0.25 * a * a,
		yAlpha: 1,
		arm:    iir.NewFIR(armTaps),
		osc:    ncqo.New(fhint),
		gain:   1,
	}, nil
}

// SetLoopGain sets the loop's gain (unused by Feed directly but kept for
// parity with su_costas_set_loop_gain, which callers use to scale external
// consumers of the demodulated signal).
func (c *Costas) SetLoopGain(gain F) { c.gain = gain }

// Feed advances the loop by one complex baseband sample and returns the
// smoothed demodulation result (costas->y in the source, which the header
// declares as the function's return value).
func (c *Costas) Feed(x C) C {
	s := c.osc.Read()

	// s = cos(wt) + j*sin(wt); Q is 90 degrees ahead of I, so the mix
	// multiplies by the conjugate.
	c.z = c.arm.Feed(conjC(s) * x)

	var e F
	switch c.kind {
	case CostasBPSK:
		e = -realF(c.z) * imagF(c.z)
	case CostasQPSK:
		l := sampling.Sgn(c.z)
		e = realF(l)*imagF(c.z) - imagF(l)*realF(c.z)
	}

	c.lock += c.a * (1 - e - c.lock)
	c.y += c.yAlpha * (c.z - c.y)

	// IIR loop filter suggested by Eric Hagemann.
	c.osc.IncAngFreq(c.b * e)
	c.osc.IncPhase(c.a * e)

	return c.y
}

// Lock returns the current lock indicator.
func (c *Costas) Lock() F { return c.lock }

// ArmOutput returns the arm filter's most recent output (pre-demodulation).
func (c *Costas) ArmOutput() C { return c.z }

// Frequency returns the loop oscillator's tracked normalized frequency.
func (c *Costas) Frequency() F { return c.osc.GetFreq() }

func conjC(z C) C { return complex(real(z), -imag(z)) }
