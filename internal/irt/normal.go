package irt

import "math"

// Abramowitz & Stegun 26.2.17 coefficients.
const (
	asP  = 0.2316419
	asB1 = 0.319381530
	asB2 = -0.356563782
	asB3 = 1.781477937
	asB4 = -1.821255978
	asB5 = 1.330274429
)

// NormalCDF is the standard normal distribution function, using the
// Abramowitz-Stegun rational approximation (|error| < 7.5e-8).
func NormalCDF(x float64) float64 {
	z := math.Abs(x)
	t := 1 / (1 + asP*z)
	poly := t * (asB1 + t*(asB2+t*(asB3+t*(asB4+t*asB5))))
	upper := math.Exp(-z*z/2) / math.Sqrt(2*math.Pi) * poly
	if x >= 0 {
		return 1 - upper
	}
	return upper
}

// TwoSidedP returns 2*(1-Φ(|t|)).
func TwoSidedP(t float64) float64 {
	return 2 * (1 - NormalCDF(math.Abs(t)))
}
