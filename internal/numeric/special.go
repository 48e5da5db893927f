package numeric

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Digamma computes psi(x), the logarithmic derivative of the gamma function
func Digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// Trigamma computes psi'(x) via the Hurwitz zeta function
func Trigamma(x float64) float64 {
	return mathext.Zeta(2, x)
}

// Tetragamma computes psi''(x) via the Hurwitz zeta function
func Tetragamma(x float64) float64 {
	return -2 * mathext.Zeta(3, x)
}

// TrigammaInverse solves trigamma(y) = x for y. Newton's method is applied
// to 1/trigamma(y), which is nearly linear in y, so convergence is fast and
// monotone from the starting point 0.5 + 1/x.
func TrigammaInverse(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return math.NaN()
	}
	if x > 1e7 {
		return 1 / math.Sqrt(x)
	}
	if x < 1e-6 {
		return 1 / x
	}

	y := 0.5 + 1/x
	for iter := 0; iter < 50; iter++ {
		tri := Trigamma(y)
		dif := tri * (1 - tri/x) / Tetragamma(y)
		y += dif
		if -dif/y < 1e-8 {
			break
		}
	}
	return y
}
