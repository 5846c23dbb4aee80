// Package softtune implements a software tuner: an NCQO local-oscillator
// mixer that shifts a channel of interest down to baseband, a Butterworth
// antialias filter, and a decimator, used as the channel detector's
// optional pre-translation stage. Grounded on
// original_source/sigutils/softtune.h's struct sigutils_softtuner and
// sigutils_channel layout; the header only declares su_softtuner_feed/read
// (no retrieved .c body), so the feed/read bodies below are reconstructed
// from the field names and the antialias constants the header does define,
// not ported line-by-line like iir/coef/ncqo were.
package softtune

import (
	"github.com/cwsl/specttunerd/iir"
	"github.com/cwsl/specttunerd/ncqo"
	"github.com/cwsl/specttunerd/sampling"
)

type F = sampling.F
type C = sampling.C

// antialiasExtraBW and antialiasOrder mirror SU_SOFTTUNER_ANTIALIAS_EXTRA_BW
// and SU_SOFTTUNER_ANTIALIAS_ORDER. The header defines EXTRA_BW as "extra
// bandwidth given to antialias filter" without specifying the formula that
// consumes it; it is applied here as a safety-margin divisor on the
// decimated Nyquist rate (decimation 4, extra_bw 2 cuts off at half the
// decimated Nyquist, leaving a 2x margin against aliasing).
const (
	antialiasExtraBW F = 2
	antialiasOrder   int = 4
)

// Channel describes a detected channel of interest: its frequency extent,
// signal/noise levels, and age/presence bookkeeping. Ported from struct
// sigutils_channel; shared between the channel detector (which produces
// these) and the tuner (which consumes them via AdjustToChannel).
type Channel struct {
	Fc      F // central frequency, Hz
	FLo     F // lower edge, Hz
	FHi     F // upper edge, Hz
	BW      F // equivalent bandwidth, Hz
	SNR     F
	S0      F // peak signal power
	N0      F // noise level
	Ft      F // tuner frequency actually used, Hz
	Age     uint
	Present uint
}

// Params configures a Tuner. Ported from struct sigutils_softtuner_params.
type Params struct {
	SampRate   uint
	Decimation uint
	Fc         F // center frequency to tune to, Hz
	BW         F // channel bandwidth, Hz
}

// AdjustToChannel derives tuner params that isolate the given channel:
// center frequency at the channel's fc, bandwidth at the channel's bw, and
// decimation chosen so the post-decimation rate still comfortably covers
// the channel with the antialias headroom above. Ported in spirit from
// su_softtuner_params_adjust_to_channel (declared, body not retrieved).
func AdjustToChannel(params *Params, channel *Channel) {
	params.Fc = channel.Fc
	params.BW = channel.BW

	if channel.BW <= 0 || params.SampRate == 0 {
		params.Decimation = 1
		return
	}

	decim := F(params.SampRate) / (channel.BW * F(antialiasExtraBW))
	d := uint(decim)
	if d < 1 {
		d = 1
	}
	params.Decimation = d
}

// Tuner mixes, filters and decimates a stream down to a narrowband channel
// around params.Fc. Ported from su_softtuner_t.
type Tuner struct {
	params Params

	lo        *ncqo.NCQO
	antialias *iir.Filter
	filtered  bool

	decimPtr uint
	output   []C
}

// New builds a Tuner from params. Ported from su_softtuner_init.
func New(params Params) *Tuner {
	t := &Tuner{params: params}
	t.lo = ncqo.New(sampling.Abs2NormFreq(F(params.SampRate), params.Fc))

	if params.Decimation > 1 {
		cutoff := (1.0 / F(params.Decimation)) / antialiasExtraBW
		t.antialias = iir.NewButterworthLPF(antialiasOrder, cutoff)
		t.filtered = true
	}

	return t
}

// SetFc retunes the local oscillator to a new center frequency, matching
// su_channel_detector_set_fc's SU_ABS2NORM_FREQ re-init.
func (t *Tuner) SetFc(fc F) {
	t.params.Fc = fc
	t.lo = ncqo.New(sampling.Abs2NormFreq(F(t.params.SampRate), fc))
}

// Feed mixes, filters and decimates size input samples, appending any
// produced output samples to the internal queue. Returns the number of
// input samples consumed (always len(input)). Ported from
// su_softtuner_feed.
func (t *Tuner) Feed(input []C) int {
	for _, x := range input {
		s := t.lo.Read()
		mixed := x * complex(real(s), -imag(s))

		var sample C
		if t.filtered {
			sample = t.antialias.Feed(mixed)
		} else {
			sample = mixed
		}

		t.decimPtr++
		if t.decimPtr >= t.params.Decimation {
			t.decimPtr = 0
			t.output = append(t.output, sample)
		}
	}
	return len(input)
}

// Read drains up to len(out) produced samples into out, returning the
// count copied. Ported from su_softtuner_read.
func (t *Tuner) Read(out []C) int {
	n := copy(out, t.output)
	t.output = t.output[n:]
	return n
}

// Pending returns the number of produced samples waiting to be read.
func (t *Tuner) Pending() int { return len(t.output) }
