// Package detect implements the streaming channel and baud-rate detector:
// feed it a complex baseband stream and, depending on mode, it either
// maintains a running power spectrum, discovers occupied channels within
// that spectrum, or estimates a baud rate via autocorrelation or a
// nonlinear (squared-derivative) technique. Grounded in full on
// original_source/src/sigutils/detect.c and its header
// src/include/sigutils/detect.h.
package detect

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/google/uuid"

	"github.com/cwsl/specttunerd/fourier"
	"github.com/cwsl/specttunerd/sampling"
	"github.com/cwsl/specttunerd/softtune"
	"github.com/cwsl/specttunerd/taps"
)

type F = sampling.F
type C = sampling.C

// Mode selects what the detector does with each completed window.
type Mode int

const (
	ModeSpectrum Mode = iota
	ModeDiscovery
	ModeAutocorrelation
	ModeNonlinearDiff
	ModeOrderEstimation
)

// Window selects the analysis window function applied before each FFT
// (ignored in autocorrelation mode, which deliberately runs unwindowed).
type Window int

const (
	WindowNone Window = iota
	WindowHamming
	WindowHann
	WindowFlatTop
	WindowBlackmannHarris
)

// Tunables ported from detect.h's SU_CHANNEL_DETECTOR_* constants.
const (
	MinMajorityAge = 0  // FFT runs
	MinSNR       F = 6  // dB
	MinBW        F = 10 // Hz

	DefaultAlpha  F = 1e-2
	DefaultBeta   F = 1e-3
	DefaultGamma  F = 0.5
	MaxAge          = 40 // FFT runs
	PeakPSDAlpha  F = .25
	DCAlpha       F = 0.1
	AvgTimeWindow F = 10 // seconds
)

// Channel is a detected occupied channel. ID is stable across updates to
// the same channel (the C struct has no such identity since it never
// crosses a process boundary; a Go daemon streaming channel updates over a
// socket needs one).
type Channel struct {
	ID uuid.UUID

	Fc  F // center frequency, Hz
	FLo F // lower edge, Hz
	FHi F // upper edge, Hz
	BW  F // equivalent bandwidth, Hz
	SNR F // dB
	S0  F // peak signal power, dB
	N0  F // noise level, dB
	Ft  F // tuner frequency actually used, Hz

	Age     uint
	Present uint
}

// IsValid reports whether ch meets the minimum age/SNR/bandwidth bar to be
// considered a real channel rather than transient noise. Ported from the
// SU_CHANNEL_IS_VALID macro.
func (ch *Channel) IsValid() bool {
	return ch.Age > MinMajorityAge && ch.SNR > MinSNR && ch.BW > MinBW
}

func (ch *Channel) contains(fc F) bool {
	return fc >= ch.Fc-ch.BW*.5 && fc <= ch.Fc+ch.BW*.5
}

// PeakDetector flags samples that deviate from a sliding-window mean by
// more than a threshold multiple of the window's standard deviation.
// Ported from su_peak_detector_t / detect.c's su_peak_detector_feed.
type PeakDetector struct {
	size    uint
	thr2    F
	history []F
	p       uint
	count   uint
	accum   F
	invSize F
}

// NewPeakDetector builds a peak detector over a sliding window of size
// samples, flagging samples more than thres standard deviations from the
// window mean.
func NewPeakDetector(size uint, thres F) *PeakDetector {
	return &PeakDetector{
		size:    size,
		thr2:    thres * thres,
		history: make([]F, size),
		invSize: 1 / F(size),
	}
}

// Feed pushes one sample and returns +1 if it is a positive peak, -1 if a
// negative peak, or 0 otherwise (including while the history window is
// still filling).
func (pd *PeakDetector) Feed(x F) int {
	peak := 0

	if pd.count < pd.size {
		pd.history[pd.count] = x
		pd.count++
	} else {
		mean := pd.invSize * pd.accum

		var variance F
		for _, h := range pd.history {
			d := h - mean
			variance += d * d
		}
		variance *= pd.invSize

		x2 := x - mean
		x2 *= x2
		threshold := pd.thr2 * variance

		if x2 > threshold {
			if x > mean {
				peak = 1
			} else {
				peak = -1
			}
		}

		pd.accum -= pd.history[pd.p]
		pd.history[pd.p] = x
		pd.p++
		if pd.p == pd.size {
			pd.p = 0
		}
	}

	pd.accum += x
	return peak
}

// Params configures a Detector.
type Params struct {
	Mode       Mode
	SampRate   uint
	WindowSize uint
	Fc         F
	Decimation uint
	BW         F // antialias filter bandwidth, Hz; 0 disables pre-tuning filter
	MaxOrder   uint
	Tune       bool // whether the signal needs to be tuned to a channel first

	Window Window
	Alpha  F // PSD averaging ratio
	Beta   F // PSD envelope (max/min) averaging ratio
	Gamma  F // peak level averaging ratio
	SNR    F // minimum linear SNR to register a channel
	MaxAge uint

	PDSize   uint
	PDThres  F
	PDSignif F // dB
}

// DefaultParams returns the library's defaults, matching
// sigutils_channel_detector_params_INITIALIZER.
func DefaultParams() Params {
	return Params{
		Mode:       ModeSpectrum,
		SampRate:   8000,
		WindowSize: 8192,
		Decimation: 1,
		MaxOrder:   8,
		Window:     WindowBlackmannHarris,
		Alpha:      DefaultAlpha,
		Beta:       DefaultBeta,
		Gamma:      DefaultGamma,
		SNR:        2,
		MaxAge:     MaxAge,
		PDSize:     10,
		PDThres:    2,
		PDSignif:   10,
	}
}

// SuggestAlpha derives an averaging alpha from the sample rate, decimation
// and window size so the PSD settles over roughly AvgTimeWindow seconds of
// signal, and clamps decimation to at least 1. Ported from
// su_channel_params_adjust.
func SuggestAlpha(params *Params) {
	if params.Decimation < 1 {
		params.Decimation = 1
	}

	equivFs := F(params.SampRate) / F(params.Decimation)
	alpha := F(params.WindowSize) / (equivFs * AvgTimeWindow)
	if alpha > 1 {
		alpha = 1
	}
	params.Alpha = alpha
}

// AdjustParamsToChannel retunes params to isolate channel, deriving
// decimation/bandwidth/center frequency the same way a softtune.Tuner
// would, then re-deriving alpha via SuggestAlpha. Ported from
// su_channel_params_adjust_to_channel.
func AdjustParamsToChannel(params *Params, channel *Channel) {
	tunerParams := softtune.Params{SampRate: params.SampRate}
	sc := softtune.Channel{Fc: channel.Fc, BW: channel.BW}
	softtune.AdjustToChannel(&tunerParams, &sc)

	params.Decimation = tunerParams.Decimation
	params.BW = tunerParams.BW
	params.Fc = tunerParams.Fc

	SuggestAlpha(params)
}

// Detector is a streaming channel/baud-rate detector.
type Detector struct {
	params Params

	tuner    *softtune.Tuner
	tunerBuf []C

	ptr          uint
	fftIssued    bool
	nextToWindow uint
	iters        uint

	windowFunc []F
	window     []C
	plan       *fourier.Plan
	fft        []C

	// result holds the detector's mode-specific per-bin output: power
	// spectral density in Spectrum/Discovery/NonlinearDiff modes,
	// smoothed squared-magnitude autocorrelation in Autocorrelation mode.
	result []F

	ifft []C // Autocorrelation mode only

	spmax, spmin []F // Discovery mode only
	n0           F
	dc           C

	channels []*Channel

	baud F
	prev C            // NonlinearDiff mode only
	pd   *PeakDetector // NonlinearDiff mode only

	reqSamples uint
}

// New builds a Detector. params.Alpha must be positive and SampRate,
// Decimation positive.
func New(params Params) (*Detector, error) {
	if params.Alpha <= 0 {
		return nil, fmt.Errorf("%w: alpha must be positive", ErrInvalidArgument)
	}
	if params.SampRate == 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive", ErrInvalidArgument)
	}
	if params.WindowSize == 0 {
		return nil, fmt.Errorf("%w: window size must be positive", ErrInvalidArgument)
	}
	if params.Decimation == 0 {
		return nil, fmt.Errorf("%w: decimation must be positive", ErrInvalidArgument)
	}

	d := &Detector{params: params}

	d.window = make([]C, params.WindowSize)
	d.windowFunc = make([]F, params.WindowSize)
	if err := d.initWindowFunc(); err != nil {
		return nil, err
	}

	d.fft = make([]C, params.WindowSize)
	d.result = make([]F, params.WindowSize)
	d.plan = fourier.NewPlan(int(params.WindowSize))

	switch params.Mode {
	case ModeSpectrum, ModeOrderEstimation:
		// No extra allocation.
	case ModeDiscovery:
		d.spmax = make([]F, params.WindowSize)
		d.spmin = make([]F, params.WindowSize)
	case ModeAutocorrelation:
		d.ifft = make([]C, params.WindowSize)
	case ModeNonlinearDiff:
		d.pd = NewPeakDetector(params.PDSize, params.PDThres)
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrUnsupportedMode, params.Mode)
	}

	if params.Tune {
		tunerParams := softtune.Params{
			SampRate:   params.SampRate,
			Decimation: params.Decimation,
			Fc:         params.Fc,
			BW:         params.BW,
		}
		d.tuner = softtune.New(tunerParams)
	}

	return d, nil
}

func (d *Detector) initWindowFunc() error {
	for i := range d.windowFunc {
		d.windowFunc[i] = 1
	}

	if d.params.Window == WindowNone {
		return nil
	}

	buf := make([]C, len(d.windowFunc))
	for i := range buf {
		buf[i] = complex(d.windowFunc[i], 0)
	}

	switch d.params.Window {
	case WindowHamming:
		taps.ApplyHammingComplex(buf)
	case WindowHann:
		taps.ApplyHannComplex(buf)
	case WindowFlatTop:
		taps.ApplyFlatTopComplex(buf)
	case WindowBlackmannHarris:
		taps.ApplyBlackmannHarrisComplex(buf)
	default:
		return fmt.Errorf("%w: unsupported window function %d", ErrInvalidArgument, d.params.Window)
	}

	for i := range d.windowFunc {
		d.windowFunc[i] = real(buf[i])
	}
	return nil
}

// SetParams updates the detector's parameters in place. Returns an error
// (refusing the update) if the change would require reallocating FFT
// buffers — window size, window function, or the antialias filter's shape
// — since that is cheaper to handle by constructing a new Detector.
// Ported from su_channel_detector_set_params.
func (d *Detector) SetParams(params Params) error {
	if params.Alpha <= 0 {
		return fmt.Errorf("%w: alpha must be positive", ErrInvalidArgument)
	}
	if params.SampRate == 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidArgument)
	}
	if params.Decimation == 0 {
		return fmt.Errorf("%w: decimation must be positive", ErrInvalidArgument)
	}
	if params.WindowSize != d.params.WindowSize {
		return fmt.Errorf("%w: window size cannot be changed in place", ErrInvalidArgument)
	}
	if params.Window != d.params.Window {
		return fmt.Errorf("%w: window function cannot be changed in place", ErrInvalidArgument)
	}
	if params.BW != d.params.BW {
		return fmt.Errorf("%w: antialias bandwidth cannot be changed in place", ErrInvalidArgument)
	}
	if params.BW > 0 && params.SampRate != d.params.SampRate {
		return fmt.Errorf("%w: sample rate cannot be changed in place while an antialias filter is active", ErrInvalidArgument)
	}

	d.params = params

	if params.Tune && d.tuner != nil {
		d.tuner.SetFc(params.Fc)
	}

	return nil
}

// ReqSamples returns the number of samples the detector needs before it
// can perform detection (currently always 0: this detector can act as
// soon as its first window completes).
func (d *Detector) ReqSamples() uint { return d.reqSamples }

// Iters returns the number of completed FFT windows.
func (d *Detector) Iters() uint { return d.iters }

// DC returns the detector's current estimate of the signal's DC
// component (Discovery mode only; zero elsewhere).
func (d *Detector) DC() C { return d.dc }

// Baud returns the most recent baud-rate estimate (Autocorrelation/
// NonlinearDiff modes only; zero elsewhere).
func (d *Detector) Baud() F { return d.baud }

// N0 returns the current linear noise floor estimate (Discovery mode
// only; zero elsewhere).
func (d *Detector) N0() F { return d.n0 }

// Spectrum copies the detector's current per-bin result (power spectral
// density in Spectrum/Discovery/NonlinearDiff modes, autocorrelation in
// Autocorrelation mode) into dst, growing dst if needed, and returns it.
func (d *Detector) Spectrum(dst []F) []F {
	if cap(dst) < len(d.result) {
		dst = make([]F, len(d.result))
	}
	dst = dst[:len(d.result)]
	copy(dst, d.result)
	return dst
}

// WindowPtr returns how many samples of the current window have been
// filled so far.
func (d *Detector) WindowPtr() uint { return d.ptr }

// WindowSize returns the configured FFT window size.
func (d *Detector) WindowSize() uint { return d.params.WindowSize }

// Rewind discards any partially-filled window and resets the iteration
// counter.
func (d *Detector) Rewind() {
	d.ptr = 0
	d.iters = 0
}

// Channels returns the detector's currently tracked channels (Discovery
// mode only). The returned slice is a copy of the tracking list's
// pointers; entries are never nil.
func (d *Detector) Channels() []*Channel {
	out := make([]*Channel, 0, len(d.channels))
	for _, ch := range d.channels {
		if ch != nil {
			out = append(out, ch)
		}
	}
	return out
}

// LookupChannel returns the tracked channel whose span contains fc, or nil.
func (d *Detector) LookupChannel(fc F) *Channel {
	for _, ch := range d.channels {
		if ch != nil && ch.contains(fc) {
			return ch
		}
	}
	return nil
}

// LookupValidChannel is like LookupChannel but only considers channels
// that pass IsValid.
func (d *Detector) LookupValidChannel(fc F) *Channel {
	for _, ch := range d.channels {
		if ch != nil && ch.IsValid() && ch.contains(fc) {
			return ch
		}
	}
	return nil
}

func (d *Detector) channelListClear() {
	d.channels = nil
}

func (d *Detector) channelCollect() {
	for i, ch := range d.channels {
		if ch == nil {
			continue
		}
		ch.Age++
		if ch.Age > 2*ch.Present {
			d.channels[i] = nil
		}
	}
}

// assertChannel registers a newly-observed channel span, merging it into
// the first tracked channel whose span contains its center frequency (averaging
// geometry with a weight that slows down as the channel ages) or creating
// a new one. Ported from su_channel_detector_assert_channel.
func (d *Detector) assertChannel(new *Channel) {
	chan_ := d.LookupChannel(new.Fc)

	if chan_ == nil {
		chan_ = &Channel{
			ID:  uuid.New(),
			BW:  new.BW,
			Fc:  new.Fc,
			FLo: new.FLo,
			FHi: new.FHi,
		}
		d.channels = append(d.channels, chan_)
	} else {
		chan_.Present++

		// The source computes an extra blend factor here that is never
		// actually used (assigned, then shadowed by this hardcoded
		// 1/(age+1) in every branch) — not ported.
		w := F(1) / F(chan_.Age+1)

		chan_.BW += w * (new.BW - chan_.BW)
		chan_.FLo += w * (new.FLo - chan_.FLo)
		chan_.FHi += w * (new.FHi - chan_.FHi)
		chan_.Fc += w * (new.Fc - chan_.Fc)
	}

	chan_.S0 = new.S0
	chan_.N0 = new.N0
	chan_.SNR = new.S0 - new.N0
}

// findChannels scans the current power spectrum for runs of bins above the
// squelch threshold and asserts a channel for each run, using the lag-one
// autocorrelation-style centroid technique to estimate the center
// frequency. Ported from su_channel_detector_find_channels.
func (d *Detector) findChannels() {
	squelch := d.params.SNR * d.n0

	n := d.params.WindowSize
	fs := F(d.params.SampRate)

	var acc C
	var peakS0, power F
	var newCh Channel
	inChannel := false

	for i := uint(0); i < n; i++ {
		psd := d.result[i]
		nfreq := 2 * F(i) / F(n)

		if !inChannel {
			if psd > squelch {
				inChannel = true
				acc = C(complex(psd, 0)) * cmplx.Exp(complex(0, math.Pi*float64(nfreq)))
				peakS0 = psd
				power = psd
				newCh.FLo = sampling.Norm2AbsFreq(fs, nfreq)
			}
			continue
		}

		if psd > squelch {
			acc += C(complex(psd, 0)) * cmplx.Exp(complex(0, math.Pi*float64(nfreq)))
			power += psd
			if psd > peakS0 {
				peakS0 += d.params.Gamma * (psd - peakS0)
			}
		} else {
			inChannel = false

			newCh.FHi = sampling.Norm2AbsFreq(fs, nfreq)
			newCh.S0 = sampling.PowerDB(peakS0)
			newCh.N0 = sampling.PowerDB(d.n0)
			newCh.BW = sampling.Norm2AbsFreq(fs, 2*power/(peakS0*F(n)))
			newCh.Fc = sampling.Norm2AbsFreq(fs, sampling.Ang2NormFreq(cmplx.Phase(acc)))

			d.assertChannel(&newCh)
		}
	}
}

// performDiscovery updates the running spectral envelope (spmax/spmin),
// re-estimates the noise floor, and (after the first run) looks for
// channels. Ported from su_channel_detector_perform_discovery.
func (d *Detector) performDiscovery() {
	n := d.params.WindowSize

	if d.iters == 0 {
		d.iters++
		copy(d.spmax, d.result)
		copy(d.spmin, d.result)

		if d.n0 == 0 {
			n0 := F(math.Inf(1))
			for _, psd := range d.result {
				if psd < n0 {
					n0 = psd
				}
			}
			d.n0 = n0
		}
		return
	}
	d.iters++

	beta := d.params.Beta
	detectorEnabled := d.reqSamples == 0

	var n0 F
	var valid uint
	minPwr := F(math.Inf(1))
	minPwrBin := -1

	for i := uint(0); i < n; i++ {
		psd := d.result[i]

		if psd < d.spmin[i] {
			d.spmin[i] = psd
		} else {
			d.spmin[i] += beta * (psd - d.spmin[i])
		}

		if psd > d.spmax[i] {
			d.spmax[i] = psd
		} else {
			d.spmax[i] += beta * (psd - d.spmax[i])
		}

		if detectorEnabled {
			if d.spmin[i] < d.n0 && d.n0 < d.spmax[i] {
				n0 += psd
				valid++
			}
			if psd < minPwr {
				minPwrBin = int(i)
				minPwr = psd
			}
		}
	}

	if detectorEnabled {
		if valid != 0 {
			d.n0 = n0 / F(valid)
		} else if minPwrBin != -1 {
			d.n0 = .5 * (d.spmin[minPwrBin] + d.spmax[minPwrBin])
		}
	}

	if d.iters >= d.params.MaxAge {
		d.iters = 0
		d.channelListClear()
	}

	d.findChannels()
	d.channelCollect()
}

// findBaudrateFromAcorr locates the first valley in the smoothed
// autocorrelation and converts its lag into a baud-rate estimate. Ported
// from su_channel_detector_find_baudrate_from_acorr.
func (d *Detector) findBaudrateFromAcorr() {
	n := int(d.params.WindowSize)
	dtau := F(d.params.Decimation) / F(d.params.SampRate)

	i := 1
	var prev, this, next F
	for ; i < n-1; i++ {
		prev = d.result[i-1]
		this = d.result[i]
		next = d.result[i+1]
		if this < next && this < prev {
			break
		}
	}

	if i == n-1 {
		d.baud = 0
		return
	}

	var tau F
	if prev < next {
		norm := 1 / (prev + this)
		tau = norm * dtau * (prev*F(i) + this*F(i-1))
	} else {
		norm := 1 / (next + this)
		tau = norm * dtau * (next*F(i) + this*F(i+1))
	}

	d.baud = 1 / tau
}

// guessBaudrate measures the significance of the spectral peak at bin
// against its surrounding local minima and, if significant enough,
// estimates the baud rate from the phase centroid between those minima.
// Ported from su_channel_detector_guess_baudrate.
func (d *Detector) guessBaudrate(equivFs F, bin int, signif F) bool {
	n := int(d.params.WindowSize)
	hi, lo := -1, -1

	for j := bin + 1; j < n; j++ {
		if d.result[j] > d.result[j-1] {
			hi = j
			break
		}
	}
	for j := bin - 1; j >= 0; j-- {
		if d.result[j] > d.result[j+1] {
			lo = j
			break
		}
	}

	if hi == -1 || lo == -1 {
		return false
	}

	floor := .5 * (d.result[hi] + d.result[lo])
	if sampling.DB(d.result[bin]/floor) <= signif {
		return false
	}

	var acc C
	for j := lo + 1; j < hi; j++ {
		acc += cmplx.Exp(complex(0, 2*math.Pi*float64(j)/float64(n))) * C(complex(d.result[j], 0))
	}
	d.baud = sampling.Norm2AbsFreq(equivFs, sampling.Ang2NormFreq(cmplx.Phase(acc)))
	return true
}

// findBaudrateNonlinear looks for the second-largest spectral peak past
// the DC lobe (the symbol-rate line in a squared-derivative spectrum). If
// that peak isn't significant enough, it falls back to a sliding peak
// detector run from PDSize bins below the antialias band edge (or from bin
// 1 when BW is zero) up to half the spectrum. Ported from
// su_channel_detector_find_baudrate_nonlinear.
func (d *Detector) findBaudrateNonlinear() {
	n := int(d.params.WindowSize)
	equivFs := F(d.params.SampRate) / F(d.params.Decimation)
	dbaud := equivFs / F(n)

	d.baud = 0

	i := 1
	for i < n/2 && d.result[i] < d.result[i-1] {
		i++
	}

	maxIdx := -1
	var max F
	for ; i < n/2; i++ {
		if d.result[i] > max {
			maxIdx = i
			max = d.result[i]
		}
	}

	if maxIdx != -1 {
		if d.guessBaudrate(equivFs, maxIdx, d.params.PDSignif) {
			return
		}
	}

	var start int
	if d.params.BW != 0 {
		startbin := int(math.Ceil(.5*d.params.BW/dbaud)) - int(d.params.PDSize)
		if startbin < 0 {
			// This configuration makes nonlinear detection impossible;
			// fail silently, matching the source.
			return
		}
		start = startbin
	} else {
		start = 1
	}

	for i := start; i < n/2; i++ {
		if d.pd.Feed(sampling.DB(d.result[i])) > 0 {
			if d.guessBaudrate(equivFs, i, d.params.PDSignif) {
				break
			}
		}
	}
}

// applyWindow multiplies the newly-filled portion of the window buffer by
// the precomputed window function, tracking how much has already been
// windowed so repeated calls within the same window don't redo work.
// Ported from su_channel_detector_apply_window.
func (d *Detector) applyWindow() {
	for i := d.nextToWindow; i < d.ptr; i++ {
		d.window[i] *= C(complex(d.windowFunc[i], 0))
	}
	d.nextToWindow = d.ptr
}

// unnormalizedInverse undoes fourier.Plan.Inverse's 1/N scaling to
// match FFTW's unnormalized backward transform, the convention
// exec_fft's autocorrelation averaging assumes.
func unnormalizedInverse(p *fourier.Plan, dst, src []C) []C {
	out := p.Inverse(dst, src)
	n := C(complex(float64(p.Len()), 0))
	for i := range out {
		out[i] *= n
	}
	return out
}

// ExecFFT runs the mode-specific FFT pass over the just-completed window.
// Idempotent: calling it more than once between window completions is a
// no-op, matching the source's fft_issued latch (feed_bulk's caller never
// needs to call this directly; it exists for callers that want to force a
// partial-window analysis).
func (d *Detector) ExecFFT() error {
	if d.fftIssued {
		return nil
	}
	d.fftIssued = true

	n := d.params.WindowSize
	wsizeinv := 1 / F(n)

	switch d.params.Mode {
	case ModeSpectrum:
		d.iters++
		d.applyWindow()
		d.fft = d.plan.Forward(d.fft, d.window)

		for i := range d.result {
			d.result[i] = wsizeinv * real(d.fft[i]*cmplx.Conj(d.fft[i]))
		}
		return nil

	case ModeDiscovery:
		d.applyWindow()
		d.fft = d.plan.Forward(d.fft, d.window)

		d.dc += C(complex(DCAlpha, 0)) * (d.fft[0]/C(complex(F(n), 0)) - d.dc)

		for i := range d.result {
			psd := wsizeinv * real(d.fft[i]*cmplx.Conj(d.fft[i]))
			d.result[i] += d.params.Alpha * (psd - d.result[i])
		}

		d.performDiscovery()
		return nil

	case ModeAutocorrelation:
		// No window function here: the fast-autocorrelation technique
		// needs the raw samples' own spectrum.
		d.fft = d.plan.Forward(d.fft, d.window)
		for i := range d.fft {
			d.fft[i] *= cmplx.Conj(d.fft[i])
		}
		d.ifft = unnormalizedInverse(d.plan, d.ifft, d.fft)

		for i := range d.result {
			ac := real(d.ifft[i] * cmplx.Conj(d.ifft[i]))
			d.result[i] += d.params.Alpha * (ac - d.result[i])
		}

		d.findBaudrateFromAcorr()
		return nil

	case ModeNonlinearDiff:
		taps.ApplyBlackmannHarrisComplex(d.window)
		d.fft = d.plan.Forward(d.fft, d.window)

		for i := range d.result {
			psd := real(d.fft[i] * cmplx.Conj(d.fft[i]))
			psd /= F(n)
			d.result[i] += d.params.Alpha * (psd - d.result[i])
		}

		d.findBaudrateNonlinear()
		return nil

	default:
		return fmt.Errorf("%w: mode %d not implemented", ErrUnsupportedMode, d.params.Mode)
	}
}

// feedInternal pushes one (already-tuned) sample into the window buffer,
// running ExecFFT whenever a window completes. Ported from
// su_channel_detector_feed_internal.
func (d *Detector) feedInternal(x C) error {
	if d.params.Mode == ModeNonlinearDiff {
		diff := (x - d.prev) * C(complex(F(d.params.SampRate), 0))
		d.prev = x
		x = diff * cmplx.Conj(diff)
	}

	d.window[d.ptr] = x - d.dc
	d.ptr++
	d.fftIssued = false

	if d.ptr == d.params.WindowSize {
		if err := d.ExecFFT(); err != nil {
			return err
		}
		d.ptr = 0
		d.nextToWindow = 0
	}

	return nil
}

// FeedBulk feeds size samples (optionally through the pre-tuning softtune
// stage) and returns how many were consumed before any error.
func (d *Detector) FeedBulk(signal []C) (int, error) {
	tuned := signal

	if d.params.Tune && d.tuner != nil {
		d.tuner.Feed(signal)
		n := d.tuner.Pending()
		if cap(d.tunerBuf) < n {
			d.tunerBuf = make([]C, n)
		}
		d.tunerBuf = d.tunerBuf[:n]
		got := d.tuner.Read(d.tunerBuf)
		tuned = d.tunerBuf[:got]
	}

	for i, x := range tuned {
		if err := d.feedInternal(x); err != nil {
			return i, err
		}
	}

	return len(tuned), nil
}

// Feed feeds a single sample.
func (d *Detector) Feed(x C) error {
	_, err := d.FeedBulk([]C{x})
	return err
}
