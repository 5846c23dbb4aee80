package pll

import (
	"math"
	"testing"
)

func TestPLLLocksOntoTone(t *testing.T) {
	const targetFreq = 0.1
	p := NewPLL(targetFreq+0.01, 0.02)

	const n, tail = 20000, 1000
	var sumFreq float64
	for i := 0; i < n; i++ {
		x := math.Cos(math.Pi * targetFreq * float64(i))
		p.Feed(x)
		if i >= n-tail {
			sumFreq += p.Frequency()
		}
	}

	// A real-valued input leaves a ripple at twice the tone frequency on the
	// oscillator's instantaneous frequency, so compare its mean over the tail.
	meanFreq := sumFreq / tail
	if math.Abs(meanFreq-targetFreq) > 5e-3 {
		t.Fatalf("mean tracked frequency = %v, want close to %v", meanFreq, targetFreq)
	}
	if p.Lock() <= 0 {
		t.Fatalf("lock indicator = %v, want positive once locked", p.Lock())
	}
}

func TestNewCostasRejects8PSK(t *testing.T) {
	if _, err := NewCostas(CostasKind(99), 0.1, 0.05, 16, 0.01); err == nil {
		t.Fatalf("expected an error for an unsupported costas kind")
	}
}

func TestCostasBPSKLocksFrequency(t *testing.T) {
	const carrierFreq = 0.12
	c, err := NewCostas(CostasBPSK, carrierFreq+0.005, 0.05, 16, 0.01)
	if err != nil {
		t.Fatalf("NewCostas: %v", err)
	}

	bits := []float64{1, -1, 1, 1, -1, -1, 1, -1}
	const samplesPerSymbol = 64

	for i := 0; i < 40000; i++ {
		bit := bits[(i/samplesPerSymbol)%len(bits)]
		phase := math.Pi * carrierFreq * float64(i)
		x := complex(bit*math.Cos(phase), bit*math.Sin(phase))
		c.Feed(x)
	}

	if math.Abs(c.Frequency()-carrierFreq) > 0.01 {
		t.Fatalf("tracked frequency = %v, want close to %v", c.Frequency(), carrierFreq)
	}
}

func TestCostasQPSKLocksFrequency(t *testing.T) {
	const carrierFreq = 0.08
	c, err := NewCostas(CostasQPSK, carrierFreq+0.004, 0.05, 16, 0.008)
	if err != nil {
		t.Fatalf("NewCostas: %v", err)
	}

	symbols := []complex128{1 + 1i, 1 - 1i, -1 + 1i, -1 - 1i}
	const samplesPerSymbol = 64

	for i := 0; i < 60000; i++ {
		sym := symbols[(i/samplesPerSymbol)%len(symbols)]
		phase := math.Pi * carrierFreq * float64(i)
		rot := complex(math.Cos(phase), math.Sin(phase))
		x := complex(real(sym), imag(sym)) * rot
		c.Feed(x)
	}

	if math.Abs(c.Frequency()-carrierFreq) > 0.01 {
		t.Fatalf("tracked frequency = %v, want close to %v", c.Frequency(), carrierFreq)
	}
}
