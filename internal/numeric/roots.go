// Package numeric holds small general-purpose numeric utilities.
package numeric

import "math"

// Func is a scalar function of one real variable.
type Func func(x float64) float64

const (
	newtonIterations = 60
	bisectIterations = 120
	tolerance        = 1e-7

	// Bisection bounds chosen for rate-style roots: a rate can approach
	// but never reach -100%, and anything past 1000% is out of range.
	bisectLower = -0.999
	bisectUpper = 10.0

	derivativeStep = 1e-6
)

// FindRoot solves f(x) = 0. It runs Newton-Raphson from the given
// guess for up to 60 iterations; when the iteration diverges, stalls,
// or its derivative vanishes, it falls back to bisection over
// (bisectLower, bisectUpper) for up to 120 iterations. The second
// return is false when no root was bracketed, in which case the caller
// should treat the result as undefined rather than an error.
func FindRoot(f Func, guess float64) (float64, bool) {
	x := guess
	for i := 0; i < newtonIterations; i++ {
		fx := f(x)
		if math.IsNaN(fx) || math.IsInf(fx, 0) {
			break
		}
		if math.Abs(fx) < tolerance {
			return x, true
		}

		d := derivative(f, x)
		if math.Abs(d) < 1e-12 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}

		next := x - fx/d
		if math.IsNaN(next) || math.IsInf(next, 0) {
			break
		}
		if math.Abs(next-x) < tolerance {
			return next, true
		}
		x = next
	}

	return bisect(f, bisectLower, bisectUpper)
}

// bisect narrows a sign change over [lo, hi]. Requires f to change
// sign across the interval; reports false otherwise.
func bisect(f Func, lo, hi float64) (float64, bool) {
	flo, fhi := f(lo), f(hi)
	if flo == 0 {
		return lo, true
	}
	if fhi == 0 {
		return hi, true
	}
	if flo*fhi > 0 || math.IsNaN(flo) || math.IsNaN(fhi) {
		return 0, false
	}

	for i := 0; i < bisectIterations; i++ {
		mid := (lo + hi) / 2
		fm := f(mid)
		if math.Abs(fm) < tolerance || (hi-lo)/2 < tolerance {
			return mid, true
		}
		if flo*fm < 0 {
			hi = mid
		} else {
			lo, flo = mid, fm
		}
	}
	return (lo + hi) / 2, true
}

// derivative approximates f'(x) with a central difference.
func derivative(f Func, x float64) float64 {
	return (f(x+derivativeStep) - f(x-derivativeStep)) / (2 * derivativeStep)
}
