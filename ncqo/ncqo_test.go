package ncqo

import (
	"math"
	"testing"
)

func TestUnitCircle(t *testing.T) {
	o := New(0.137)
	for i := 0; i < 10000; i++ {
		z := o.Read()
		mag := math.Hypot(real(z), imag(z))
		if math.Abs(mag-1) > 1e-9 {
			t.Fatalf("step %d: |z| = %v, want 1", i, mag)
		}
		arg := math.Atan2(imag(z), real(z))
		if arg < -math.Pi-1e-9 || arg > math.Pi+1e-9 {
			t.Fatalf("step %d: arg(z) = %v out of [-pi, pi]", i, arg)
		}
	}
}

func TestStepAdvancesPhaseByOmega(t *testing.T) {
	o := New(0.2)
	omega := o.GetAngFreq()
	p0 := o.GetPhase()
	o.Step()
	p1 := o.GetPhase()

	want := p0 + omega
	for want >= 2*math.Pi {
		want -= 2 * math.Pi
	}
	if math.Abs(p1-want) > 1e-9 {
		t.Fatalf("phase after step = %v, want %v", p1, want)
	}
}

func TestFixedOscillatorRingConsistentWithPhi(t *testing.T) {
	o := NewFixed(0.05)
	for i := 0; i < PrecalcLen*3; i++ {
		phi := o.GetPhase()
		wantCos := math.Cos(phi)
		wantSin := math.Sin(phi)
		if math.Abs(o.GetI()-wantCos) > 1e-9 || math.Abs(o.GetQ()-wantSin) > 1e-9 {
			t.Fatalf("ring entry at step %d inconsistent with phi=%v", i, phi)
		}
		o.Step()
	}
}

func TestFixedOscillatorRejectsPhaseMutation(t *testing.T) {
	o := NewFixed(0.1)
	before := o.GetPhase()
	o.IncPhase(1.0)
	o.SetPhase(2.0)
	if o.GetPhase() != before {
		t.Fatalf("fixed oscillator phase should be unaffected by IncPhase/SetPhase")
	}
}

func TestMemoizedGetDoesNotRecomputeAcrossCalls(t *testing.T) {
	o := New(0.3)
	o.Step()
	a := o.GetI()
	b := o.GetI()
	if a != b {
		t.Fatalf("GetI should be stable without an intervening Step")
	}
}
