package sampler

import (
	"math"
	"testing"
)

func TestSamplerInterpolatesAtSymbolBoundary(t *testing.T) {
	const bnor = 1.0 / 8.0
	s := NewSampler(bnor)

	sampledCount := 0
	for i := 0; i < 1000; i++ {
		v := C(complex(float64(i), 0))
		if s.Feed(&v) {
			sampledCount++
		}
	}

	// At period=8 we expect roughly one symbol every 8 input samples.
	want := 1000 / 8
	if sampledCount < want-2 || sampledCount > want+2 {
		t.Fatalf("got %d symbol boundaries, want close to %d", sampledCount, want)
	}
}

func TestClockDetectorConvergesToBaudRate(t *testing.T) {
	const trueBaud = 0.1
	cd := NewClockDetector(1, trueBaud*1.05)

	symbols := []float64{1, -1, 1, 1, -1, -1, 1, -1, -1, 1}
	samplesPerSymbol := int(math.Round(1 / trueBaud))

	for i := 0; i < 200000; i++ {
		idx := (i / samplesPerSymbol) % len(symbols)
		val := C(complex(symbols[idx], 0))
		cd.Feed(val)
	}

	if math.Abs(cd.Baud()-trueBaud) > 0.01 {
		t.Fatalf("tracked baud = %v, want close to %v", cd.Baud(), trueBaud)
	}
}

func TestClockDetectorSetBnorLimitsRejectsInverted(t *testing.T) {
	cd := NewClockDetector(1, 0.1)
	if err := cd.SetBnorLimits(0.5, 0.1); err == nil {
		t.Fatalf("expected an error for lo > hi")
	}
}

func TestClockDetectorReadDrainsQueue(t *testing.T) {
	cd := NewClockDetector(1, 0.25)
	for i := 0; i < 400; i++ {
		cd.Feed(C(complex(float64(i%2)*2-1, 0)))
	}

	if cd.Pending() == 0 {
		t.Fatalf("expected some recovered symbols")
	}

	buf := make([]C, cd.Pending())
	n := cd.Read(buf)
	if n != len(buf) {
		t.Fatalf("Read returned %d, want %d", n, len(buf))
	}
	if cd.Pending() != 0 {
		t.Fatalf("expected queue to be drained, got %d pending", cd.Pending())
	}
}
