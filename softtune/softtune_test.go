package softtune

import (
	"math"
	"testing"
)

func TestTunerDecimatesByConfiguredFactor(t *testing.T) {
	params := Params{SampRate: 48000, Decimation: 4, Fc: 0, BW: 3000}
	tu := New(params)

	n := 4000
	input := make([]C, n)
	for i := range input {
		input[i] = C(complex(math.Cos(0.01*float64(i)), math.Sin(0.01*float64(i))))
	}

	tu.Feed(input)

	want := n / 4
	if tu.Pending() < want-1 || tu.Pending() > want+1 {
		t.Fatalf("pending = %d, want close to %d", tu.Pending(), want)
	}
}

func TestTunerShiftsTargetFrequencyToBaseband(t *testing.T) {
	const sampRate = 48000
	const targetHz = 6000.0

	params := Params{SampRate: sampRate, Decimation: 1, Fc: targetHz, BW: 2000}
	tu := New(params)

	n := 2000
	input := make([]C, n)
	for i := range input {
		phase := 2 * math.Pi * targetHz * float64(i) / sampRate
		input[i] = C(complex(math.Cos(phase), math.Sin(phase)))
	}
	tu.Feed(input)

	out := make([]C, tu.Pending())
	tu.Read(out)

	// After mixing the target tone down to DC, later samples should have a
	// near-constant phase (slowly varying at most), unlike the original
	// rotating tone.
	tail := out[len(out)-200:]
	var sumReal, sumImag float64
	for _, v := range tail {
		sumReal += real(v)
		sumImag += imag(v)
	}
	meanMag := math.Hypot(sumReal/float64(len(tail)), sumImag/float64(len(tail)))
	if meanMag < 0.3 {
		t.Fatalf("mean magnitude after mixing to baseband = %v, want a coherent (non-cancelling) residual", meanMag)
	}
}

func TestAdjustToChannelSetsFcAndBW(t *testing.T) {
	params := Params{SampRate: 48000}
	ch := Channel{Fc: 10000, BW: 3000}
	AdjustToChannel(&params, &ch)

	if params.Fc != ch.Fc {
		t.Fatalf("Fc = %v, want %v", params.Fc, ch.Fc)
	}
	if params.BW != ch.BW {
		t.Fatalf("BW = %v, want %v", params.BW, ch.BW)
	}
	if params.Decimation < 1 {
		t.Fatalf("Decimation = %d, want >= 1", params.Decimation)
	}
}
