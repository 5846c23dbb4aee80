// Package sampling collects the frequency-unit conversions shared by every
// DSP stage: normalized frequency (fnor, half-cycles-per-sample), angular
// frequency (omega), normalized baud (bnor), and the dB helpers used by the
// AGC and channel detector.
package sampling

import "math"

// F is the floating-point kind the library is parameterized over. The
// original C library picks single or double at build time; here we fix on
// float64, matching the teacher's own use of float64 throughout its DSP
// code paths (biquad.go, spectrum_analyzer.go).
type F = float64

// C is the complex counterpart of F.
type C = complex128

// MaxRefDB and MinRefDB bound the dBFS scale used by the AGC magnitude
// history (SUFLOAT_MAX_REF_DB / SUFLOAT_MIN_REF_DB in the source).
const (
	MaxRefDB F = 0
	MinRefDB F = -300
)

// minRefMag is added before taking a logarithm so DB/PowerDB never see a
// literal zero (SUFLOAT_MIN_REF_MAG in the source).
const minRefMag F = 1e-20

// Ang2NormFreq converts an angular frequency (radians/sample) to a
// normalized frequency (half-cycles-per-sample).
func Ang2NormFreq(omega F) F {
	return omega / math.Pi
}

// Norm2AngFreq converts fnor to omega: omega = pi*fnor.
func Norm2AngFreq(fnor F) F {
	return math.Pi * fnor
}

// Abs2NormFreq converts an absolute frequency in Hz to fnor: fnor = 2*f/fs.
func Abs2NormFreq(fs F, f F) F {
	return 2 * f / fs
}

// Norm2AbsFreq converts fnor back to an absolute frequency in Hz.
func Norm2AbsFreq(fs F, fnor F) F {
	return fnor * fs / 2
}

// DB converts a linear amplitude ratio to decibels: 20*log10(x).
func DB(x F) F {
	return 20 * math.Log10(x+minRefMag)
}

// PowerDB converts a linear power ratio to decibels: 10*log10(x). Distinct
// from DB because a power and an amplitude differ by a factor of two in
// log space (SU_DB vs SU_POWER_DB in the source).
func PowerDB(x F) F {
	return 10 * math.Log10(x+minRefMag)
}

// MagRaw converts a dB value back to a linear magnitude: 10^(x/20).
func MagRaw(dB F) F {
	return math.Pow(10, dB/20)
}

// Abs is the complex modulus, |z|.
func Abs(z C) F {
	return math.Hypot(real(z), imag(z))
}

// Abs2NormBaud converts an absolute symbol rate in Hz to a normalized baud
// (symbols per sample): bnor = baud/fs.
func Abs2NormBaud(fs F, baud F) F {
	return baud / fs
}

// Norm2AbsBaud converts a normalized baud back to an absolute symbol rate
// in Hz: baud = bnor*fs.
func Norm2AbsBaud(fs F, bnor F) F {
	return bnor * fs
}

// Sgn returns the complex "sign": the sign of the real part plus j times
// the sign of the imaginary part, each independently clamped to {-1,0,1}.
// Used by the QPSK Costas error formula (SU_C_SGN in the source).
func Sgn(z C) C {
	return complex(sgn1(real(z)), sgn1(imag(z)))
}

func sgn1(x F) F {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
