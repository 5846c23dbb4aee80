package specttuner

import (
	"math"
	"testing"
)

func tone(n int, fnor F, amp F) []C {
	out := make([]C, n)
	for i := range out {
		phase := math.Pi * fnor * float64(i)
		out[i] = C(complex(amp*math.Cos(phase), amp*math.Sin(phase)))
	}
	return out
}

func TestOpenChannelRejectsZeroBandwidth(t *testing.T) {
	s, err := New(Params{WindowSize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.OpenChannel(ChannelParams{F0: 0, BW: 0, Guard: 2}); err == nil {
		t.Fatalf("expected error opening a zero-bandwidth channel")
	}
}

func TestOpenChannelRejectsGuardBelowOne(t *testing.T) {
	s, err := New(Params{WindowSize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.OpenChannel(ChannelParams{F0: 0, BW: 0.2, Guard: 0.5}); err == nil {
		t.Fatalf("expected error opening a channel with guard < 1")
	}
}

func TestOpenChannelRejectsOutOfRangeCenter(t *testing.T) {
	s, err := New(Params{WindowSize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.OpenChannel(ChannelParams{F0: 7, BW: 0.2, Guard: 2}); err == nil {
		t.Fatalf("expected error opening a channel outside [0, 2*pi)")
	}
}

// TestSingleChannelExtractsTargetTone feeds a mix of two tones and checks
// that a channel centered on one of them passes a non-trivial steady-state
// amplitude. It does not measure how far the other tone is rejected.
func TestSingleChannelExtractsTargetTone(t *testing.T) {
	const windowSize = 512
	s, err := New(Params{WindowSize: windowSize})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var produced []C
	ch, err := s.OpenChannel(ChannelParams{
		F0:      math.Pi / 2, // quarter of the normalized spectrum
		BW:      0.3,
		Guard:   2,
		Precise: true,
		Domain:  TimeDomain,
		OnData: func(_ *Channel, data []C) bool {
			produced = append(produced, data...)
			return true
		},
	})
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	if ch.Width() <= 0 {
		t.Fatalf("channel width = %d, want > 0", ch.Width())
	}

	n := windowSize * 40
	target := tone(n, 0.5, 1.0)   // fnor=0.5 -> angfreq = pi*0.5 = pi/2
	interferer := tone(n, 1.5, 1.0)
	mix := make([]C, n)
	for i := range mix {
		mix[i] = target[i] + interferer[i]
	}

	if err := s.FeedBulk(mix); err != nil {
		t.Fatalf("FeedBulk: %v", err)
	}

	if len(produced) == 0 {
		t.Fatalf("channel produced no output")
	}

	// Steady-state tail should carry a non-trivial amplitude: the target
	// tone's energy should have come through the channel filter.
	tail := produced[len(produced)/2:]
	var sumSq float64
	for _, v := range tail {
		sumSq += real(v)*real(v) + imag(v)*imag(v)
	}
	rms := math.Sqrt(sumSq / float64(len(tail)))
	if rms < 0.05 {
		t.Fatalf("extracted channel rms = %v, want a non-trivial recovered amplitude", rms)
	}
}

func TestSetChannelBandwidthRejectsTooWide(t *testing.T) {
	const windowSize = 256
	s, err := New(Params{WindowSize: windowSize})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ch, err := s.OpenChannel(ChannelParams{F0: 0, BW: 0.2, Guard: 2})
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}

	if err := s.SetChannelBandwidth(ch, 2*math.Pi*float64(ch.Size())+1); err == nil {
		t.Fatalf("expected error widening channel beyond its own FFT size")
	}
}

func TestCloseChannelThenReuseFailsCleanly(t *testing.T) {
	s, err := New(Params{WindowSize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ch, err := s.OpenChannel(ChannelParams{F0: 0, BW: 0.2, Guard: 2})
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	if err := s.CloseChannel(ch); err != nil {
		t.Fatalf("CloseChannel: %v", err)
	}
	if err := s.CloseChannel(ch); err == nil {
		t.Fatalf("expected error closing an already-closed channel")
	}
}

func TestFeedBulkHandlesArbitraryChunkSizes(t *testing.T) {
	const windowSize = 128
	s, err := New(Params{WindowSize: windowSize})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var calls int
	_, err = s.OpenChannel(ChannelParams{
		F0:    0,
		BW:    1.0,
		Guard: 1.5,
		OnData: func(_ *Channel, _ []C) bool {
			calls++
			return true
		},
	})
	if err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}

	in := tone(windowSize*10+37, 0.3, 1.0)
	// Feed in small, irregularly-sized chunks.
	for i := 0; i < len(in); {
		chunk := 17
		if i+chunk > len(in) {
			chunk = len(in) - i
		}
		if err := s.FeedBulk(in[i : i+chunk]); err != nil {
			t.Fatalf("FeedBulk: %v", err)
		}
		i += chunk
	}

	if calls == 0 {
		t.Fatalf("expected at least one channel callback across chunked feeding")
	}
}
