package iir

import "math"

// binomialMult multiplies together n binomials (x+p[i]) and returns the
// resulting polynomial's n coefficients a[0..n-1], for
// x^n + a[0]*x^(n-1) + ... + a[n-1]. Ported from su_binomial_mult; complex128
// arithmetic replaces the source's interleaved real/imaginary float pairs.
func binomialMult(p []complex128) []complex128 {
	n := len(p)
	a := make([]complex128, n)
	for i := 0; i < n; i++ {
		for j := i; j > 0; j-- {
			a[j] += p[i] * a[j-1]
		}
		a[0] += p[i]
	}
	return a
}

// trinomialMult multiplies together n trinomials (x^2+b[i]*x+c[i]) and
// returns the resulting polynomial's 2n coefficients. Ported from
// su_trinomial_mult.
func trinomialMult(b, c []complex128) []complex128 {
	n := len(b)
	a := make([]complex128, 2*n)
	a[0] = b[0]
	a[1] = c[0]

	for i := 1; i < n; i++ {
		a[2*i+1] += c[i] * a[2*i-1]
		for j := 2 * i; j > 1; j-- {
			a[j] += b[i]*a[j-1] + c[i]*a[j-2]
		}
		a[1] += b[i]*a[0] + c[i]
		a[0] += b[i]
	}

	return a
}

// shiftToReal mirrors the source's "dcof[1]=dcof[0]; dcof[0]=1; dcof[k] =
// dcof[2k-2] for k=3.." reshuffle, which (once the interleaved real/imaginary
// bookkeeping is unwound) simply prepends a leading 1 and keeps the real part
// of each complex coefficient.
func shiftToReal(a []complex128) []F {
	out := make([]F, len(a)+1)
	out[0] = 1
	for k := 1; k <= len(a); k++ {
		out[k] = real(a[k-1])
	}
	return out
}

// dcofBWLP calculates the denominator coefficients of an n-pole Butterworth
// lowpass filter with normalized cutoff fcf, in the form expected by Filter
// (a[0..n] returned, with a[0]=1). Ported from su_dcof_bwlp.
func dcofBWLP(n int, fcf F) []F {
	theta := math.Pi * fcf
	st := math.Sin(theta)
	ct := math.Cos(theta)

	rcof := make([]complex128, n)
	for k := 0; k < n; k++ {
		parg := math.Pi * F(2*k+1) / F(2*n)
		sparg := math.Sin(parg)
		cparg := math.Cos(parg)
		a := 1 + st*sparg
		rcof[k] = complex(-ct/a, -st*cparg/a)
	}

	return shiftToReal(binomialMult(rcof))
}

// dcofBWHP calculates the denominator coefficients of a Butterworth highpass
// filter. The pole locations are identical to the lowpass case (su_dcof_bwhp
// is a direct alias of su_dcof_bwlp in the source).
func dcofBWHP(n int, fcf F) []F {
	return dcofBWLP(n, fcf)
}

// dcofBWBP calculates the denominator coefficients of an n-pole Butterworth
// bandpass filter between normalized edges f1f and f2f. Ported from
// su_dcof_bwbp.
func dcofBWBP(n int, f1f, f2f F) []F {
	cp := math.Cos(math.Pi * (f2f + f1f) / 2)
	theta := math.Pi * (f2f - f1f) / 2
	st := math.Sin(theta)
	ct := math.Cos(theta)
	s2t := 2 * st * ct
	c2t := 2*ct*ct - 1

	rcof := make([]complex128, n)
	tcof := make([]complex128, n)
	for k := 0; k < n; k++ {
		parg := math.Pi * F(2*k+1) / F(2*n)
		sparg := math.Sin(parg)
		cparg := math.Cos(parg)
		a := 1 + s2t*sparg
		rcof[k] = complex(c2t/a, s2t*cparg/a)
		tcof[k] = complex(-2*cp*(ct+st*sparg)/a, -2*cp*st*cparg/a)
	}

	return shiftToReal(trinomialMult(tcof, rcof))
}

// ccofBWLP calculates the numerator coefficients of an n-pole Butterworth
// lowpass filter (binomial coefficients of (x+1)^n). Ported from
// su_ccof_bwlp, including its integer-truncating recurrence.
func ccofBWLP(n int) []F {
	ccof := make([]F, n+1)
	ccof[0] = 1
	ccof[1] = F(n)
	m := n / 2

	for i := 2; i <= m; i++ {
		ccof[i] = F((n - i + 1) * int(ccof[i-1]) / i)
		ccof[n-i] = ccof[i]
	}

	ccof[n-1] = F(n)
	ccof[n] = 1

	return ccof
}

// ccofBWHP calculates the numerator coefficients of a Butterworth highpass
// filter by negating the odd-indexed lowpass coefficients. Ported from
// su_ccof_bwhp.
func ccofBWHP(n int) []F {
	ccof := ccofBWLP(n)
	for i := range ccof {
		if i&1 != 0 {
			ccof[i] = -ccof[i]
		}
	}
	return ccof
}

// ccofBWBP calculates the numerator coefficients of a Butterworth bandpass
// filter by spreading the highpass coefficients across even indices. Ported
// from su_ccof_bwbp.
func ccofBWBP(n int) []F {
	tcof := ccofBWHP(n)
	ccof := make([]F, 2*n+1)
	for i := 0; i < n; i++ {
		ccof[2*i] = tcof[i]
		ccof[2*i+1] = 0
	}
	ccof[2*n] = tcof[n]
	return ccof
}

// sfBWLP calculates the scaling factor that normalizes an n-pole Butterworth
// lowpass filter's response to a unit peak. Ported from su_sf_bwlp.
func sfBWLP(n int, fcf F) F {
	omega := math.Pi * fcf
	fomega := math.Sin(omega)
	parg0 := math.Pi / F(2*n)

	sf := F(1)
	for k := 0; k < n/2; k++ {
		sf *= 1 + fomega*math.Sin(F(2*k+1)*parg0)
	}

	fomega = math.Sin(omega / 2)
	if n&1 != 0 {
		sf *= fomega + math.Cos(omega/2)
	}

	return math.Pow(fomega, F(n)) / sf
}

// sfBWHP calculates the scaling factor for a Butterworth highpass filter.
// Ported from su_sf_bwhp.
func sfBWHP(n int, fcf F) F {
	omega := math.Pi * fcf
	fomega := math.Sin(omega)
	parg0 := math.Pi / F(2*n)

	sf := F(1)
	for k := 0; k < n/2; k++ {
		sf *= 1 + fomega*math.Sin(F(2*k+1)*parg0)
	}

	fomega = math.Cos(omega / 2)
	if n&1 != 0 {
		sf *= fomega + math.Sin(omega/2)
	}

	return math.Pow(fomega, F(n)) / sf
}

// sfBWBP calculates the scaling factor for a Butterworth bandpass filter.
// Ported from su_sf_bwbp.
func sfBWBP(n int, f1f, f2f F) F {
	ctt := 1 / math.Tan(math.Pi*(f2f-f1f)/2)
	sfr, sfi := F(1), F(0)

	for k := 0; k < n; k++ {
		parg := math.Pi * F(2*k+1) / F(2*n)
		sparg := ctt + math.Sin(parg)
		cparg := math.Cos(parg)
		a := (sfr + sfi) * (sparg - cparg)
		b := sfr * sparg
		c := -sfi * cparg
		sfr = b - c
		sfi = a - b - c
	}

	return 1 / sfr
}
