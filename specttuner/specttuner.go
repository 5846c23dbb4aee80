// Package specttuner implements the overlap-save frequency-domain
// multi-channel tuner: a single big FFT of the incoming stream is sliced
// per open channel into a narrowband spectrum, optionally brought back to
// the time domain through a per-channel filter response, and delivered to
// the channel's callback. Grounded on
// original_source/src/sigutils/specttuner.c and its header
// src/include/sigutils/specttuner.h in full.
//
// The C source shares one 3/2-sized ring buffer between overlapping EVEN
// and ODD halves: every window_size/2 input samples it runs an FFT over
// the most recent window_size samples and toggles between the two halves,
// which is what lets each channel's inverse transform overlap-add against
// the previous call's tail without ever re-running the big FFT more than
// once per half-window of input.
package specttuner

import (
	"fmt"
	"math"

	"github.com/cwsl/specttunerd/fourier"
	"github.com/cwsl/specttunerd/ncqo"
	"github.com/cwsl/specttunerd/sampling"
	"github.com/cwsl/specttunerd/taps"
)

type F = sampling.F
type C = sampling.C

// Domain selects whether a channel delivers time-domain samples (the
// narrowband spectrum is brought back through an inverse transform first)
// or raw frequency-domain bins (the IFFT is skipped entirely).
type Domain int

const (
	TimeDomain Domain = iota
	FreqDomain
)

// Params configures a Specttuner.
type Params struct {
	// WindowSize is the big FFT length. Must be even.
	WindowSize int
	// EarlyWindowing applies the analysis window before the main FFT
	// instead of deferring it to each channel's overlap-add step. Cheaper
	// per channel, at the cost of reapplying the window to every channel
	// identically regardless of its own filter shape.
	EarlyWindowing bool
}

// ChannelParams configures an open channel.
type ChannelParams struct {
	// F0 is the channel center frequency, radians/sample, in [0, 2*pi).
	F0 F
	// DeltaF is an additional frequency offset added to F0 before
	// centering (used to track slow drift without re-deriving F0).
	DeltaF F
	// BW is the channel bandwidth, radians/sample.
	BW F
	// Guard is the ratio between the allocated FFT bins and BW; must be
	// >= 1. A guard of 1 allocates exactly BW bins, starving the filter
	// transition band; library users generally want some margin.
	Guard F
	// Precise enables the local-oscillator correction that compensates
	// for FFT bin quantization of the channel center frequency.
	Precise bool
	// Domain selects time-domain or frequency-domain delivery.
	Domain Domain
	// OnData is called with every block of samples the channel produces.
	// Returning false is treated as a channel failure and propagated
	// back to the feeder.
	OnData func(ch *Channel, data []C) bool
	// OnFreqChanged, if set, is notified whenever SetChannelFreq takes
	// effect (on the next ODD-state pass after being requested).
	OnFreqChanged func(ch *Channel, oldF0, newF0 F)
}

// Channel is an open narrowband extraction channel.
type Channel struct {
	params ChannelParams
	index  int
	oldF0  F

	pendingFreq bool

	center int
	size   int
	width  int
	halfw  int
	halfsz int
	offset int // kept for parity with the source geometry; unused downstream

	decimation int
	k          F
	gain       F

	window []F
	h      []C

	fft  []C
	ifft [2][]C
	plan *fourier.Plan

	lo, oldLo *ncqo.NCQO
}

// Index returns the channel's slot in its tuner, or -1 if closed.
func (ch *Channel) Index() int { return ch.index }

// Width returns the channel's allocated bin count.
func (ch *Channel) Width() int { return ch.width }

// Size returns the channel's own (decimated) FFT size.
func (ch *Channel) Size() int { return ch.size }

// Gain returns the channel's output gain multiplier.
func (ch *Channel) Gain() F { return ch.gain }

// SetGain sets the channel's output gain multiplier.
func (ch *Channel) SetGain(gain F) { ch.gain = gain }

// Decimation returns window_size / channel_size, the channel's decimation
// factor relative to the tuner's sample rate.
func (ch *Channel) Decimation() int { return ch.decimation }

// BW returns the channel's actual (quantized) bandwidth, radians/sample.
func (ch *Channel) BW() F {
	return 2 * math.Pi * F(ch.width) / (F(ch.size) * F(ch.decimation))
}

// F0 returns the channel's configured center frequency.
func (ch *Channel) F0() F { return ch.params.F0 }

// DeltaF returns the channel's configured frequency offset.
func (ch *Channel) DeltaF() F { return ch.params.DeltaF }

// EffectiveFreq returns F0+DeltaF wrapped into [0, 2*pi).
func (ch *Channel) EffectiveFreq() F {
	ef := math.Mod(ch.params.F0+ch.params.DeltaF, 2*math.Pi)
	if ef < 0 {
		ef += 2 * math.Pi
	}
	return ef
}

// Specttuner is the overlap-save multi-channel tuner.
type Specttuner struct {
	params   Params
	halfSize int
	buffer   []C
	fft      []C
	wfunc    []F

	state bool // false = EVEN, true = ODD
	p     int
	ready bool

	plan     *fourier.Plan
	channels []*Channel
}

// New builds a Specttuner. WindowSize must be even.
func New(params Params) (*Specttuner, error) {
	if params.WindowSize&1 != 0 {
		return nil, fmt.Errorf("%w: window size must be even, got %d", ErrInvalidArgument, params.WindowSize)
	}

	s := &Specttuner{params: params}
	s.halfSize = params.WindowSize / 2
	fullSize := 3 * s.halfSize

	s.buffer = make([]C, fullSize)
	s.fft = make([]C, params.WindowSize)
	s.plan = fourier.NewPlan(params.WindowSize)

	if params.EarlyWindowing {
		s.wfunc = make([]F, params.WindowSize)
		for i := range s.wfunc {
			v := math.Sin(math.Pi * F(i) / F(params.WindowSize))
			s.wfunc[i] = v * v
		}
	}

	return s, nil
}

// WindowSize returns the tuner's main window size (the base rate divisor
// every open channel's own decimation is relative to).
func (s *Specttuner) WindowSize() int { return s.params.WindowSize }

// unnormalizedInverse runs the plan's inverse transform and undoes its
// built-in 1/N scaling, matching FFTW's unnormalized backward transform —
// the convention the ported filter-design and per-channel synthesis math
// below assumes.
func unnormalizedInverse(p *fourier.Plan, dst, src []C) []C {
	out := p.Inverse(dst, src)
	n := C(complex(float64(p.Len()), 0))
	for i := range out {
		out[i] *= n
	}
	return out
}

// updateChannelFilter (re)builds a channel's frequency-domain filter
// response h: an ideal brickwall response, windowed in the time domain to
// tame its sidelobes, then brought back to the frequency domain. Ported
// from su_specttuner_update_channel_filter.
func (s *Specttuner) updateChannelFilter(ch *Channel) {
	windowSize := s.params.WindowSize
	windowHalf := windowSize / 2

	for i := range ch.h {
		ch.h[i] = 0
	}
	for i := 0; i < ch.halfw; i++ {
		ch.h[i] = 1
		ch.h[windowSize-i-1] = 1
	}

	ch.h = unnormalizedInverse(s.plan, make([]C, windowSize), ch.h)

	k := C(complex(ch.k, 0))
	for i := 0; i < windowHalf; i++ {
		tmp := ch.h[i]
		ch.h[i] = k * ch.h[windowHalf+i]
		ch.h[windowHalf+i] = k * tmp
	}

	taps.ApplyBlackmannHarrisComplex(ch.h)

	for i := 0; i < windowHalf; i++ {
		ch.h[i], ch.h[windowHalf+i] = ch.h[windowHalf+i], ch.h[i]
	}

	ch.h = s.plan.Forward(make([]C, windowSize), ch.h)
}

// refreshChannelCenter re-derives a channel's FFT bin center from its
// (possibly just-changed) F0/DeltaF, and — in precise mode — adjusts the
// channel's local oscillator to correct for the remaining bin-quantization
// error. Ported from su_specttuner_refresh_channel_center.
func (s *Specttuner) refreshChannelCenter(ch *Channel) {
	windowSize := s.params.WindowSize
	rbw := 2 * math.Pi / F(windowSize)

	ef := ch.EffectiveFreq()
	center := int(2 * math.Floor(.5*(ef+rbw)/(2*math.Pi)*F(windowSize)))
	if center < 0 {
		center = 0
	}
	if center >= windowSize {
		center = windowSize - 2
	}
	ch.center = center

	if ch.params.Precise {
		off := F(ch.center)*rbw - ef
		off *= F(ch.decimation)
		ch.lo.SetAngFreq(off)
	}

	if ch.params.OnFreqChanged != nil {
		ch.params.OnFreqChanged(ch, ch.oldF0, ch.params.F0)
	}
}

// SetChannelFreq schedules a new center frequency for ch. The change takes
// effect on the next ODD-state pass, so any in-flight overlap-add keeps
// using the old frequency until the boundary between windows.
func (s *Specttuner) SetChannelFreq(ch *Channel, f0 F) {
	ch.oldF0 = ch.params.F0
	ch.params.F0 = f0
	ch.pendingFreq = true
}

// SetChannelDeltaF schedules a new frequency offset for ch, same timing as
// SetChannelFreq.
func (s *Specttuner) SetChannelDeltaF(ch *Channel, deltaF F) {
	ch.params.DeltaF = deltaF
	ch.pendingFreq = true
}

// SetChannelBandwidth resizes ch's allocated bin width and rebuilds its
// filter response. The new width must fit within the channel's own FFT
// size (set at OpenChannel time and never resized).
func (s *Specttuner) SetChannelBandwidth(ch *Channel, bw F) error {
	windowSize := s.params.WindowSize

	if bw > 2*math.Pi {
		bw = 2 * math.Pi
	}

	k := 1. / (2 * math.Pi / bw)
	width := int(math.Ceil(k * F(windowSize)))
	if width > windowSize {
		width = windowSize
	}

	if width > ch.size {
		return fmt.Errorf("%w: bandwidth %g needs %d bins, channel only has %d", ErrInvalidArgument, bw, width, ch.size)
	}
	if width <= 1 {
		return fmt.Errorf("%w: bandwidth %g too small", ErrInvalidArgument, bw)
	}

	ch.width = width
	ch.halfw = ch.width >> 1

	s.updateChannelFilter(ch)

	return nil
}

// newChannel sizes and allocates a channel. Ported from the
// su_specttuner_channel instancer.
func newChannel(owner *Specttuner, params ChannelParams) (*Channel, error) {
	windowSize := owner.params.WindowSize
	rbw := 2 * math.Pi / F(windowSize)

	if params.Guard < 1 {
		return nil, fmt.Errorf("%w: guard bandwidth smaller than channel bandwidth (guard = %g < 1)", ErrInvalidArgument, params.Guard)
	}
	if params.BW <= 0 {
		return nil, fmt.Errorf("%w: cannot open a zero-bandwidth channel", ErrInvalidArgument)
	}

	effectiveFreq := params.F0 + params.DeltaF
	if effectiveFreq < 0 || effectiveFreq >= 2*math.Pi {
		return nil, fmt.Errorf("%w: channel center frequency %g is outside the spectrum", ErrInvalidArgument, effectiveFreq)
	}

	corrbw := params.BW
	if corrbw > 2*math.Pi {
		corrbw = 2 * math.Pi
	}

	ch := &Channel{params: params, index: -1, gain: 1}

	actualBW := corrbw * params.Guard
	fullSpectrum := false
	if actualBW >= 2*math.Pi {
		actualBW = 2 * math.Pi
		fullSpectrum = true
	}

	var size, width, center int
	var k F

	center = int(2 * math.Floor(.5*(effectiveFreq+rbw)/(2*math.Pi)*F(windowSize)))

	if !fullSpectrum {
		k = 1. / (2 * math.Pi / actualBW)
		minSize := int(math.Ceil(k * F(windowSize)))

		n := 1
		for n < minSize {
			n <<= 1
		}
		size = n
		width = int(math.Ceil(F(minSize) / params.Guard))
	} else {
		k = 1. / (2 * math.Pi / params.BW)
		size = windowSize
		width = int(math.Ceil(k * F(windowSize)))
		if width > windowSize {
			width = windowSize
		}
	}

	if width <= 0 {
		return nil, fmt.Errorf("%w: degenerate channel width for bandwidth %g", ErrInvalidArgument, params.BW)
	}

	decimation := windowSize / size
	k = 1. / F(decimation*size)

	ch.center = center
	ch.size = size
	ch.width = width
	ch.halfw = width >> 1
	ch.halfsz = size >> 1
	ch.offset = size >> 2
	ch.decimation = decimation
	ch.k = k

	ch.oldLo = ncqo.New(0)
	if params.Precise {
		off := F(ch.center)*(2*math.Pi)/F(windowSize) - effectiveFreq
		off *= F(decimation)
		ch.lo = ncqo.New(sampling.Ang2NormFreq(off))
	} else {
		ch.lo = ncqo.New(0)
	}

	ch.window = make([]F, size)
	ch.h = make([]C, windowSize)
	ch.fft = make([]C, size)
	ch.ifft[0] = make([]C, size)
	ch.ifft[1] = make([]C, size)
	ch.plan = fourier.NewPlan(size)

	owner.updateChannelFilter(ch)

	if owner.params.EarlyWindowing {
		for i := range ch.window {
			ch.window[i] = 1
		}
	} else {
		for i := 0; i < size; i++ {
			v := math.Sin(math.Pi * F(i) / F(size))
			ch.window[i] = v * v
		}
	}

	return ch, nil
}

// OpenChannel opens a new narrowband extraction channel.
func (s *Specttuner) OpenChannel(params ChannelParams) (*Channel, error) {
	ch, err := newChannel(s, params)
	if err != nil {
		return nil, err
	}
	ch.index = len(s.channels)
	s.channels = append(s.channels, ch)
	return ch, nil
}

// CloseChannel closes a channel previously returned by OpenChannel.
func (s *Specttuner) CloseChannel(ch *Channel) error {
	if ch.index < 0 || ch.index >= len(s.channels) || s.channels[ch.index] != ch {
		return fmt.Errorf("%w: channel is not registered with this tuner", ErrInvalidArgument)
	}
	s.channels[ch.index] = nil
	ch.index = -1
	return nil
}

// runFFT computes the main spectrum for the half-window just filled.
// Ported from su_specttuner_run_fft (the FFTW-plan indirection that let
// the C source share one plan between two fixed input pointers collapses
// here to picking the right buffer slice before calling Forward).
func (s *Specttuner) runFFT() {
	n := s.params.WindowSize
	var src []C

	if s.params.EarlyWindowing {
		windowed := make([]C, n)
		if !s.state {
			for i := 0; i < n; i++ {
				windowed[i] = s.buffer[i] * C(complex(s.wfunc[i], 0))
			}
		} else {
			for i := 0; i < n; i++ {
				windowed[i] = s.buffer[i+s.halfSize] * C(complex(s.wfunc[i], 0))
			}
		}
		src = windowed
	} else {
		if !s.state {
			src = s.buffer[0:n]
		} else {
			src = s.buffer[s.halfSize : s.halfSize+n]
		}
	}

	s.fft = s.plan.Forward(s.fft, src)
}

// feedChannel extracts ch's narrowband slice from the main spectrum,
// applies its filter, and (for time-domain channels) inverse-transforms
// and overlap-adds it before invoking OnData. Ported from
// __su_specttuner_feed_channel.
func (s *Specttuner) feedChannel(ch *Channel) bool {
	windowSize := s.params.WindowSize

	bSign := 1
	if ch.center&2 != 0 {
		bSign = -1
	}

	changingFreqs := false
	if s.state && ch.pendingFreq {
		ch.pendingFreq = false
		ch.oldLo.CopyFrom(ch.lo)
		s.refreshChannelCenter(ch)
		changingFreqs = true
	}

	p := ch.center
	aSign := 1
	if ch.center&2 != 0 {
		aSign = -1
	}

	// Upper sideband.
	length := ch.halfw
	if p+length > windowSize {
		length = windowSize - p
	}
	copy(ch.fft[:length], s.fft[p:p+length])
	if length < ch.halfw {
		copy(ch.fft[length:ch.halfw], s.fft[:ch.halfw-length])
	}

	// Lower sideband.
	length = ch.halfw
	if p < length {
		length = p
	}
	copy(ch.fft[ch.size-length:ch.size], s.fft[p-length:p])
	if length < ch.halfw {
		copy(ch.fft[ch.size-ch.halfw:ch.size-length], s.fft[windowSize-(ch.halfw-length):windowSize])
	}

	if ch.params.Domain == FreqDomain {
		// Frequency-domain channels skip the IFFT entirely, and only
		// deliver on the EVEN pass (the ODD pass only exists to keep the
		// ring buffer's mirrored thirds current for the next EVEN pass).
		if !s.state {
			copy(ch.fft[ch.halfw:ch.halfw+ch.halfw], ch.fft[ch.size-ch.halfw:ch.size])
			k := C(complex(ch.k, 0))
			for i := 0; i < ch.width; i++ {
				ch.fft[i] *= k
			}
			if ch.params.OnData != nil {
				return ch.params.OnData(ch, ch.fft[:ch.width])
			}
			return true
		}
		return true
	}

	k := C(complex(ch.k, 0))
	for i := 0; i < ch.halfsz; i++ {
		ch.fft[i] *= k * ch.h[i]
		ch.fft[ch.size-i-1] *= k * ch.h[windowSize-i-1]
	}

	var curIdx, prevIdx int
	if s.state {
		curIdx, prevIdx = 1, 0
	} else {
		curIdx, prevIdx = 0, 1
	}

	ch.ifft[curIdx] = unnormalizedInverse(ch.plan, ch.ifft[curIdx], ch.fft)
	curr := ch.ifft[curIdx]
	prev := ch.ifft[prevIdx][ch.halfsz:]

	gain := C(complex(ch.gain, 0))

	switch {
	case ch.params.Precise && changingFreqs:
		if s.params.EarlyWindowing {
			for i := 0; i < ch.halfsz; i++ {
				phold := ch.oldLo.Read()
				phase := ch.lo.Read()
				curr[i] = gain * (phase*curr[i] + phold*prev[i])
			}
		} else {
			for i := 0; i < ch.halfsz; i++ {
				alpha := C(complex(ch.window[i], 0))
				beta := C(complex(ch.window[i+ch.halfsz], 0))
				phold := ch.oldLo.Read()
				phase := ch.lo.Read()
				curr[i] = gain * (phase*alpha*curr[i] + phold*beta*prev[i])
			}
		}
	case ch.params.Precise:
		if s.params.EarlyWindowing {
			for i := 0; i < ch.halfsz; i++ {
				phase := ch.lo.Read()
				curr[i] = gain * phase * (curr[i] + prev[i])
			}
		} else {
			for i := 0; i < ch.halfsz; i++ {
				alpha := C(complex(ch.window[i], 0))
				beta := C(complex(ch.window[i+ch.halfsz], 0))
				phase := ch.lo.Read()
				curr[i] = gain * phase * (alpha*curr[i] + beta*prev[i])
			}
		}
	default:
		if s.params.EarlyWindowing {
			a := C(complex(float64(aSign), 0))
			b := C(complex(float64(bSign), 0))
			for i := 0; i < ch.halfsz; i++ {
				curr[i] = gain * (a*curr[i] + b*prev[i])
			}
		} else {
			for i := 0; i < ch.halfsz; i++ {
				alpha := C(complex(float64(aSign)*ch.window[i], 0))
				beta := C(complex(float64(bSign)*ch.window[i+ch.halfsz], 0))
				curr[i] = gain * (alpha*curr[i] + beta*prev[i])
			}
		}
	}

	if ch.params.OnData != nil {
		return ch.params.OnData(ch, curr[:ch.halfsz])
	}
	return true
}

func (s *Specttuner) feedAllChannels() bool {
	ok := true
	for _, ch := range s.channels {
		if ch != nil {
			ok = s.feedChannel(ch) && ok
		}
	}
	return ok
}

// hasNewData reports whether the main spectrum has been refreshed since
// the last ack.
func (s *Specttuner) hasNewData() bool { return s.ready }

func (s *Specttuner) ackData() { s.ready = false }

// feedBulk copies up to len(buf) samples into the ring, mirroring the
// overlapping third when an ODD pass crosses the midpoint, and runs the
// main FFT if this completes a window. Returns the number of samples
// consumed (always > 0 given non-empty buf). Ported from
// __su_specttuner_feed_bulk.
func (s *Specttuner) feedBulk(buf []C) int {
	size := len(buf)
	n := s.params.WindowSize

	if size+s.p > n {
		size = n - s.p
	}

	if !s.state {
		copy(s.buffer[s.p:s.p+size], buf[:size])
	} else {
		copy(s.buffer[s.p+s.halfSize:s.p+s.halfSize+size], buf[:size])

		if s.p+size > s.halfSize {
			halfsz := s.p + size - s.halfSize
			pp := s.p
			if pp < s.halfSize {
				pp = s.halfSize
			}
			halfsz -= pp - s.halfSize

			if halfsz > 0 {
				copy(
					s.buffer[pp-s.halfSize:pp-s.halfSize+halfsz],
					s.buffer[pp+s.halfSize:pp+s.halfSize+halfsz],
				)
			}
		}
	}

	s.p += size

	if s.p == n {
		s.p = s.halfSize
		s.runFFT()
		s.state = !s.state
		s.ready = true
	}

	return size
}

// FeedBulkSingle feeds one contiguous chunk that must not itself overflow
// the window (FeedBulk handles chunking arbitrary sizes). Returns the
// number of samples consumed. If the chunk completes a window, every open
// channel is fed before returning.
func (s *Specttuner) FeedBulkSingle(buf []C) (int, error) {
	if s.ready {
		return 0, nil
	}

	got := s.feedBulk(buf)

	ok := true
	if s.ready {
		ok = s.feedAllChannels()
	}

	if !ok {
		return got, fmt.Errorf("%w: one or more channel callbacks failed", ErrCallbackRejected)
	}
	return got, nil
}

// FeedBulk feeds an arbitrary-length block of samples, chunking internally
// as needed and delivering to every open channel each time a window
// completes.
func (s *Specttuner) FeedBulk(buf []C) error {
	var firstErr error

	for len(buf) > 0 {
		got, err := s.FeedBulkSingle(buf)
		if s.hasNewData() {
			s.ackData()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if got <= 0 {
			break
		}
		buf = buf[got:]
	}

	return firstErr
}

// Trigger forces an immediate FFT pass and channel feed over whatever is
// currently in the ring buffer, assuming the caller has already populated
// it (including the mirrored third) themselves. Exposed for callers doing
// their own buffer management; FeedBulk is the normal entry point.
func (s *Specttuner) Trigger() bool {
	s.p = s.halfSize
	s.runFFT()
	s.state = !s.state
	s.ready = true
	return s.feedAllChannels()
}
