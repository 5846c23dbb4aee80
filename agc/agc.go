// Package agc implements a hang AGC (automatic gain control) inspired by
// GQRX's: a dual fast/slow envelope follower over a magnitude-history
// window, applied to a delayed copy of the complex baseband signal so the
// gain decision can "see ahead" of the sample it scales.
package agc

import (
	"math"

	"github.com/cwsl/specttunerd/sampling"
)

type F = sampling.F
type C = sampling.C

// rescale is SU_AGC_RESCALE, applied to every AGC output regardless of
// which averager won.
const rescale F = 0.7

// Params configures a new AGC. Ported from struct su_agc_params; the
// defaults match su_agc_params_INITIALIZER.
type Params struct {
	Threshold      F // AGC knee, in dB
	SlopeFactor    F // Gain slope, 0..10
	HangMax        uint
	DelayLineSize  uint
	MagHistorySize uint

	FastRiseT F // time constants (in samples) for transient spikes
	FastFallT F

	SlowRiseT F // time constants (in samples) for steady signals
	SlowFallT F
}

// DefaultParams returns the source's default tuning (su_agc_params_INITIALIZER).
func DefaultParams() Params {
	return Params{
		Threshold:      -100,
		SlopeFactor:    6,
		HangMax:        100,
		DelayLineSize:  20,
		MagHistorySize: 20,
		FastRiseT:      2,
		FastFallT:      4,
		SlowRiseT:      20,
		SlowFallT:      40,
	}
}

// AGC is a hang automatic gain control over complex baseband samples.
// Ported from su_agc_t/su_agc_feed.
type AGC struct {
	enabled bool

	knee      F
	gainSlope F
	fixedGain F
	hangMax   uint
	hangN     uint

	delayLine []C
	delayPtr  int

	magHistory []F
	magPtr     int

	peak F

	fastAlphaRise, fastAlphaFall, fastLevel F
	slowAlphaRise, slowAlphaFall, slowLevel F
}

// New builds an AGC from params, enabled by default.
func New(params Params) *AGC {
	a := &AGC{
		delayLine:      make([]C, params.DelayLineSize),
		magHistory:     make([]F, params.MagHistorySize),
		knee:           params.Threshold,
		hangMax:        params.HangMax,
		gainSlope:      params.SlopeFactor * 1e-2,
		fastAlphaRise:  1 - math.Exp(-1/params.FastRiseT),
		fastAlphaFall:  1 - math.Exp(-1/params.FastFallT),
		slowAlphaRise:  1 - math.Exp(-1/params.SlowRiseT),
		slowAlphaFall:  1 - math.Exp(-1/params.SlowFallT),
		enabled:        true,
	}
	a.fixedGain = sampling.MagRaw(a.knee * (a.gainSlope - 1))
	return a
}

// SetEnabled turns the AGC on or off. Disabled, Feed is a pure delay line
// with unity gain.
func (a *AGC) SetEnabled(enabled bool) { a.enabled = enabled }

// Enabled reports whether the AGC is currently adjusting gain.
func (a *AGC) Enabled() bool { return a.enabled }

// Peak returns the current peak magnitude (dBFS) seen in the history
// window, exposed for diagnostics/telemetry.
func (a *AGC) Peak() F { return a.peak }

// Feed pushes x through the delay line and magnitude history and returns
// the gain-adjusted sample that was pushed delay-line-size samples ago.
// Ported from su_agc_feed:
//  1. push x into the delay line, pop the oldest delayed sample
//  2. push |x| in dBFS into the magnitude history, pop the oldest entry
//  3. recompute the running peak (full rescan only if the peak itself aged out)
//  4. update the fast and slow envelope followers toward the peak
//  5. apply hang logic to the slow follower's decay
//  6. scale the delayed sample by whichever follower reports the larger level
func (a *AGC) Feed(x C) C {
	xDelayed := a.delayLine[a.delayPtr]
	a.delayLine[a.delayPtr] = x
	a.delayPtr++
	if a.delayPtr >= len(a.delayLine) {
		a.delayPtr = 0
	}

	if !a.enabled {
		return xDelayed
	}

	xDBFS := sampling.DB(sampling.Abs(x)) - sampling.MaxRefDB

	xDBFSDelayed := a.magHistory[a.magPtr]
	a.magHistory[a.magPtr] = xDBFS
	a.magPtr++
	if a.magPtr >= len(a.magHistory) {
		a.magPtr = 0
	}

	if xDBFS > a.peak {
		a.peak = xDBFS
	} else if a.peak == xDBFSDelayed {
		a.peak = sampling.MinRefDB
		for _, m := range a.magHistory {
			if a.peak < m {
				a.peak = m
			}
		}
	}

	peakDelta := a.peak - a.fastLevel
	if peakDelta > 0 {
		a.fastLevel += a.fastAlphaRise * peakDelta
	} else {
		a.fastLevel += a.fastAlphaFall * peakDelta
	}

	peakDelta = a.peak - a.slowLevel
	if peakDelta > 0 {
		a.slowLevel += a.slowAlphaRise * peakDelta
		a.hangN = 0
	} else if a.hangN >= a.hangMax {
		a.slowLevel += a.slowAlphaFall * peakDelta
	} else {
		a.hangN++
	}

	level := math.Max(a.fastLevel, a.slowLevel)

	var gain F
	if level < a.knee {
		gain = a.fixedGain
	} else {
		gain = sampling.MagRaw(level * (a.gainSlope - 1))
	}

	return xDelayed * C(complex(gain*rescale, 0))
}
