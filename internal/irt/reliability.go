package irt

import "math"

// Summary carries the variance decomposition of a calibration.
type Summary struct {
	VariancePersons float64 `json:"variance_persons"`
	VarianceItems   float64 `json:"variance_items"`
	// mean p(1-p) over all observations, the error variance estimate
	AvgModelVariance float64 `json:"avg_model_variance"`
	Reliability      float64 `json:"reliability"`
}

// Variance is the population variance (divisor n). Empty input gives 0.
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return ss / float64(len(xs))
}

//
// Reliability derives person/item variance and the separation
// reliability varPersons / (varPersons + avgVar).
//
func Reliability(st *CalibrationState, obs []Observation) Summary {
	sum := Summary{
		VariancePersons: Variance(st.Theta),
		VarianceItems:   Variance(st.B),
	}

	if len(obs) > 0 {
		var total float64
		for _, o := range obs {
			p := st.Prob(o.StudentID, o.ItemID)
			total += p * (1 - p)
		}
		sum.AvgModelVariance = total / float64(len(obs))
	}

	den := sum.VariancePersons + sum.AvgModelVariance
	if math.Abs(den) < 1e-12 {
		den = 1e-6
	}
	sum.Reliability = sum.VariancePersons / den
	return sum
}

// Rounded returns the summary rounded to 3 decimals.
func (s Summary) Rounded() Summary {
	return Summary{
		VariancePersons:  Round(s.VariancePersons, 3),
		VarianceItems:    Round(s.VarianceItems, 3),
		AvgModelVariance: Round(s.AvgModelVariance, 3),
		Reliability:      Round(s.Reliability, 3),
	}
}
