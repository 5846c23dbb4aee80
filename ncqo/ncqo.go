// Package ncqo implements a numerically-controlled quadrature oscillator:
// a running phase accumulator that produces cos+j*sin at a settable
// normalized frequency, with an optional precomputed ring for the "fixed
// frequency" fast path.
package ncqo

import (
	"math"

	"github.com/cwsl/specttunerd/sampling"
)

// PrecalcLen is the size of the precomputed phi/sin/cos ring used by a
// fixed-frequency oscillator (SU_NCQO_PRECALC_BUFFER_LEN in the source).
const PrecalcLen = 1024

// NCQO is a numerically-controlled quadrature oscillator. The zero value
// is not ready for use; construct with New or NewFixed.
type NCQO struct {
	phi   sampling.F
	omega sampling.F
	fnor  sampling.F

	cos, sin   sampling.F
	cosUpdated bool
	sinUpdated bool

	fixed   bool
	ring    []ringEntry
	ringPos int
}

type ringEntry struct {
	phi, sin, cos sampling.F
}

// New creates a variable-frequency oscillator at normalized frequency
// fnor (half-cycles-per-sample), phase zero.
func New(fnor sampling.F) *NCQO {
	o := &NCQO{}
	o.SetFreq(fnor)
	o.cos, o.sin = 1, 0
	o.cosUpdated, o.sinUpdated = true, true
	return o
}

// NewFixed creates a fixed-frequency oscillator: inc_phase and set_phase
// are forbidden (they no-op, matching the source's SU_ERROR-and-return
// behavior) and step advances through a precomputed ring of PrecalcLen
// (phi, sin, cos) triples, regenerated transparently whenever the ring
// wraps.
func NewFixed(fnor sampling.F) *NCQO {
	o := &NCQO{fixed: true}
	o.omega = sampling.Norm2AngFreq(fnor)
	o.fnor = fnor
	o.populateRing()
	return o
}

func (o *NCQO) populateRing() {
	o.ring = make([]ringEntry, PrecalcLen)
	phi := o.phi
	for i := 0; i < PrecalcLen; i++ {
		o.ring[i] = ringEntry{phi: phi, sin: math.Sin(phi), cos: math.Cos(phi)}
		phi = advancePhase(phi, o.omega)
	}
	o.phi = phi
	o.ringPos = 0
}

func advancePhase(phi, omega sampling.F) sampling.F {
	phi += omega
	if phi >= 2*math.Pi {
		phi -= 2 * math.Pi
	} else if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi
}

// Step advances the oscillator by one sample without computing sin/cos.
func (o *NCQO) Step() {
	if o.fixed {
		o.ringPos++
		if o.ringPos == PrecalcLen {
			o.populateRing()
		}
		return
	}
	o.phi = advancePhase(o.phi, o.omega)
	o.cosUpdated = false
	o.sinUpdated = false
}

// SetPhase forces the current phase, wrapped into [0, 2*pi). A no-op on a
// fixed oscillator.
func (o *NCQO) SetPhase(phi sampling.F) {
	if o.fixed {
		return
	}
	o.phi = phi - 2*math.Pi*math.Floor(phi/(2*math.Pi))
	o.cosUpdated, o.sinUpdated = false, false
}

// GetPhase returns the current phase in [0, 2*pi).
func (o *NCQO) GetPhase() sampling.F {
	if o.fixed {
		return o.ring[o.ringPos].phi
	}
	return o.phi
}

// IncPhase adds delta to the current phase. A no-op on a fixed oscillator
// (matching the source's "cannot increase phase on a fixed NCQO" error
// path, which logs and returns without mutating state).
func (o *NCQO) IncPhase(delta sampling.F) {
	if o.fixed {
		return
	}
	o.phi += delta
	if o.phi < 0 || o.phi >= 2*math.Pi {
		o.phi -= 2 * math.Pi * math.Floor(o.phi/(2*math.Pi))
	}
	o.cosUpdated, o.sinUpdated = false, false
}

// GetI returns cos(phi) at the current position without stepping,
// memoized so repeated calls at the same phase are free.
func (o *NCQO) GetI() sampling.F {
	if o.fixed {
		return o.ring[o.ringPos].cos
	}
	if !o.cosUpdated {
		o.cos = math.Cos(o.phi)
		o.cosUpdated = true
	}
	return o.cos
}

// GetQ returns sin(phi) at the current position without stepping.
func (o *NCQO) GetQ() sampling.F {
	if o.fixed {
		return o.ring[o.ringPos].sin
	}
	if !o.sinUpdated {
		o.sin = math.Sin(o.phi)
		o.sinUpdated = true
	}
	return o.sin
}

// Get returns cos(phi) + j*sin(phi) at the current position.
func (o *NCQO) Get() sampling.C {
	return complex(o.GetI(), o.GetQ())
}

// ReadI steps then returns cos(phi).
func (o *NCQO) ReadI() sampling.F {
	o.Step()
	return o.GetI()
}

// ReadQ steps then returns sin(phi).
func (o *NCQO) ReadQ() sampling.F {
	o.Step()
	return o.GetQ()
}

// Read steps then returns cos(phi) + j*sin(phi).
func (o *NCQO) Read() sampling.C {
	o.Step()
	return o.Get()
}

// SetAngFreq sets the normalized angular frequency (radians/sample)
// directly. On a fixed oscillator this regenerates the precalc ring at
// the new frequency, the ring's only purpose being to cache sin/cos for
// one fixed omega.
func (o *NCQO) SetAngFreq(omega sampling.F) {
	o.omega = omega
	o.fnor = sampling.Ang2NormFreq(omega)
	if o.fixed {
		o.populateRing()
	}
}

// IncAngFreq adds delta (radians/sample) to the current angular frequency.
func (o *NCQO) IncAngFreq(delta sampling.F) {
	o.SetAngFreq(o.omega + delta)
}

// GetAngFreq returns the current angular frequency (radians/sample).
func (o *NCQO) GetAngFreq() sampling.F {
	return o.omega
}

// SetFreq sets the normalized frequency (half-cycles-per-sample).
func (o *NCQO) SetFreq(fnor sampling.F) {
	o.SetAngFreq(sampling.Norm2AngFreq(fnor))
}

// IncFreq adds delta (half-cycles-per-sample) to the current frequency.
func (o *NCQO) IncFreq(delta sampling.F) {
	o.SetFreq(o.fnor + delta)
}

// GetFreq returns the current normalized frequency (half-cycles-per-sample).
func (o *NCQO) GetFreq() sampling.F {
	return o.fnor
}

// Fixed reports whether this oscillator is in fixed-frequency (precalc
// ring) mode.
func (o *NCQO) Fixed() bool {
	return o.fixed
}

// CopyFrom overwrites o with src's full state (phase, frequency, and the
// precalc ring if src is fixed). Used to snapshot an oscillator before
// retuning it, so a caller can keep mixing with the old frequency during a
// phase-continuous handover to the new one.
func (o *NCQO) CopyFrom(src *NCQO) {
	*o = *src
}
