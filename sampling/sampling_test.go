package sampling

import (
	"math"
	"testing"
)

func TestFrequencyRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		fs   F
		fnor F
	}{
		{"baseband", 8000, 0.05},
		{"nyquist", 48000, 1.0},
		{"dc", 44100, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := Norm2AbsFreq(c.fs, c.fnor)
			got := Abs2NormFreq(c.fs, f)
			if math.Abs(got-c.fnor) > 1e-9 {
				t.Fatalf("round trip mismatch: got %v want %v", got, c.fnor)
			}

			omega := Norm2AngFreq(c.fnor)
			if math.Abs(Ang2NormFreq(omega)-c.fnor) > 1e-9 {
				t.Fatalf("ang round trip mismatch")
			}
		})
	}
}

func TestDBAndMagRawInverse(t *testing.T) {
	for _, mag := range []F{0.001, 0.5, 1, 2, 10} {
		db := DB(mag)
		back := MagRaw(db)
		if math.Abs(back-mag) > 1e-6 {
			t.Fatalf("MagRaw(DB(%v)) = %v, want %v", mag, back, mag)
		}
	}
}

func TestPowerDBHalfOfDB(t *testing.T) {
	// For the same ratio x, amplitude dB is exactly twice power dB.
	x := F(4.0)
	if math.Abs(DB(x)-2*PowerDB(x)) > 1e-6 {
		t.Fatalf("DB(%v)=%v should be 2*PowerDB=%v", x, DB(x), 2*PowerDB(x))
	}
}

func TestSgn(t *testing.T) {
	got := Sgn(complex(-3.0, 2.0))
	want := complex(-1.0, 1.0)
	if got != want {
		t.Fatalf("Sgn(-3+2i) = %v, want %v", got, want)
	}
	if Sgn(0) != 0 {
		t.Fatalf("Sgn(0) should be 0")
	}
}
