package iir

import (
	"math"
	"testing"
)

// TestLinearity checks that feeding a*x1+b*x2 produces (within floating
// tolerance) a*y1+b*y2, sample by sample, for a stateful recursive filter -
// the defining property of an LTI system.
func TestLinearity(t *testing.T) {
	const n = 256
	x1 := make([]C, n)
	x2 := make([]C, n)
	for i := range x1 {
		x1[i] = C(complex(math.Sin(0.05*float64(i)), math.Cos(0.03*float64(i))))
		x2[i] = C(complex(math.Sin(0.11*float64(i)+1), math.Cos(0.07*float64(i)+2)))
	}

	const a, b = 0.6, -1.4
	mix := make([]C, n)
	for i := range mix {
		mix[i] = C(a)*x1[i] + C(b)*x2[i]
	}

	f1 := NewButterworthLPF(4, 0.3)
	f2 := NewButterworthLPF(4, 0.3)
	f3 := NewButterworthLPF(4, 0.3)

	y1 := f1.FeedBulk(x1)
	y2 := f2.FeedBulk(x2)
	ymix := f3.FeedBulk(mix)

	for i := range ymix {
		want := C(a)*y1[i] + C(b)*y2[i]
		if cmplxAbs(ymix[i]-want) > 1e-6 {
			t.Fatalf("sample %d: filter(a*x1+b*x2) = %v, want %v", i, ymix[i], want)
		}
	}
}

func cmplxAbs(z C) float64 {
	return math.Hypot(real(z), imag(z))
}

// TestButterworthLPFAttenuatesAboveCutoff feeds a tone at the Nyquist
// frequency through a 5-pole Butterworth filter with cutoff 0.25 and checks
// the steady-state output has settled to at least 40dB below the input
// amplitude.
func TestButterworthLPFAttenuatesAboveCutoff(t *testing.T) {
	const nsamp = 32768
	f := NewButterworthLPF(5, 0.25)

	var outSumSq, outSumSqTail float64
	const tailStart = nsamp - 4096

	for i := 0; i < nsamp; i++ {
		phase := math.Pi * float64(i)
		x := C(complex(math.Cos(phase), math.Sin(phase)))
		y := f.Feed(x)
		mag2 := real(y)*real(y) + imag(y)*imag(y)
		outSumSq += mag2
		if i >= tailStart {
			outSumSqTail += mag2
		}
	}

	inRMS := 1.0 // unit-magnitude input tone
	outRMS := math.Sqrt(outSumSqTail / float64(nsamp-tailStart))

	attenuationDB := 20 * math.Log10(outRMS/inRMS)
	if attenuationDB > -40 {
		t.Fatalf("steady-state attenuation = %v dB, want <= -40dB", attenuationDB)
	}
}

// TestPureFIRHasNoFeedback checks that RRC/Hilbert/brickwall filters carry
// no y-history (y_size==0 in the source's terms).
func TestPureFIRHasNoFeedback(t *testing.T) {
	filters := map[string]*Filter{
		"rrc":         NewRRC(101, 8, 0.35),
		"hilbert":     NewHilbert(65),
		"brickwallBP": NewBrickwallBP(65, 0.1, 0.25),
		"brickwallLP": NewBrickwallLP(65, 0.2),
	}
	for name, f := range filters {
		if len(f.y) != 0 {
			t.Fatalf("%s: expected pure-FIR filter to have no y delay line, got len %d", name, len(f.y))
		}
	}
}

// TestResetClearsState verifies Reset zeroes delay lines so a subsequent
// Feed matches a fresh filter's first output.
func TestResetClearsState(t *testing.T) {
	f := NewButterworthLPF(3, 0.2)
	fresh := NewButterworthLPF(3, 0.2)

	for i := 0; i < 50; i++ {
		f.Feed(C(complex(float64(i), -float64(i))))
	}
	f.Reset()

	got := f.Feed(1)
	want := fresh.Feed(1)
	if cmplxAbs(got-want) > 1e-12 {
		t.Fatalf("post-reset output = %v, want %v", got, want)
	}
}

func TestSetGainScalesOutput(t *testing.T) {
	f := NewButterworthLPF(2, 0.3)
	f.Feed(1)
	base := f.Get()

	f.SetGain(2)
	scaled := f.Get()

	if cmplxAbs(scaled-2*base) > 1e-12 {
		t.Fatalf("scaled output = %v, want %v", scaled, 2*base)
	}
}
