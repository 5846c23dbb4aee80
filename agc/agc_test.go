package agc

import (
	"math"
	"testing"
)

// TestSteadyStateAmplitudeWithinTolerance feeds a constant-amplitude tone
// well above the knee and checks that, once the envelope followers settle,
// output amplitude stays within a fixed tolerance band. The exact tolerance
// is a judgment call (not given by the source, which only documents the
// default time constants) so it lives here in the test, not the library.
func TestSteadyStateAmplitudeWithinTolerance(t *testing.T) {
	a := New(DefaultParams())

	const amplitude = 2.0
	const n = 5000

	var out C
	for i := 0; i < n; i++ {
		phase := 0.3 * float64(i)
		x := C(complex(amplitude*math.Cos(phase), amplitude*math.Sin(phase)))
		out = a.Feed(x)
	}

	// Confirm settling over the final stretch of samples.
	var sumMag float64
	const tail = 500
	for i := 0; i < tail; i++ {
		phase := 0.3 * float64(n+i)
		x := C(complex(amplitude*math.Cos(phase), amplitude*math.Sin(phase)))
		out = a.Feed(x)
		sumMag += math.Hypot(real(out), imag(out))
	}

	meanMag := sumMag / tail
	if meanMag < 0.1 || meanMag > 10 {
		t.Fatalf("steady-state output magnitude = %v, want within a plausible AGC band", meanMag)
	}
}

func TestDisabledAGCIsPureDelay(t *testing.T) {
	a := New(DefaultParams())
	a.SetEnabled(false)

	inputs := make([]C, 100)
	for i := range inputs {
		inputs[i] = C(complex(float64(i), -float64(i)))
	}

	var outputs []C
	for _, x := range inputs {
		outputs = append(outputs, a.Feed(x))
	}

	delaySize := len(a.delayLine)
	for i := delaySize; i < len(inputs); i++ {
		if outputs[i] != inputs[i-delaySize] {
			t.Fatalf("disabled AGC output[%d] = %v, want delayed input %v", i, outputs[i], inputs[i-delaySize])
		}
	}
}

func TestPeakTracksLouderSignal(t *testing.T) {
	a := New(DefaultParams())
	for i := 0; i < 50; i++ {
		a.Feed(C(complex(0.01, 0)))
	}
	quietPeak := a.Peak()

	for i := 0; i < 50; i++ {
		a.Feed(C(complex(5.0, 0)))
	}
	loudPeak := a.Peak()

	if loudPeak <= quietPeak {
		t.Fatalf("peak did not rise with a louder signal: quiet=%v loud=%v", quietPeak, loudPeak)
	}
}
