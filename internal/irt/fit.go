package irt

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// floor on the binomial variance when standardizing residuals
const minVariance = 1e-8

// TStatistic selects how the fit t-statistics are approximated.
type TStatistic int

const (
	// TZero reports t = 0 for both mean squares (p = 1).
	TZero TStatistic = iota
	// TMeanResidual reports the mean standardized residual as t.
	TMeanResidual
	// TWilsonHilferty applies the cube-root transform with q = sqrt(2/n).
	TWilsonHilferty
)

func (t TStatistic) String() string {
	switch t {
	case TMeanResidual:
		return "mean"
	case TWilsonHilferty:
		return "wh"
	default:
		return "zero"
	}
}

// ParseTStatistic accepts "zero" (or ""), "mean" and "wh".
func ParseTStatistic(s string) (TStatistic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return TZero, nil
	case "mean", "mean-residual":
		return TMeanResidual, nil
	case "wh", "wilson-hilferty":
		return TWilsonHilferty, nil
	}
	return TZero, errors.Errorf("unknown t-statistic mode %q", s)
}

type FitOptions struct {
	TStatistic TStatistic
}

// FitRow holds the item fit statistics, rounded to 2 decimals.
type FitRow struct {
	ItemID  string  `json:"item_id"`
	Outfit  float64 `json:"outfit"`
	OutfitT float64 `json:"outfit_t"`
	OutfitP float64 `json:"outfit_p"`
	Infit   float64 `json:"infit"`
	InfitT  float64 `json:"infit_t"`
	InfitP  float64 `json:"infit_p"`
}

//
// FitStatistics computes outfit (unweighted) and infit (information
// weighted) mean squares of the standardized residuals for every item
// of the state, in item order.
//
func FitStatistics(st *CalibrationState, obs []Observation, opts FitOptions) []FitRow {

	type acc struct {
		n       int
		sumZ    float64
		sumZ2   float64
		sumVar  float64
		sumVarZ float64
	}
	accs := make([]acc, len(st.Items))

	for _, o := range obs {
		i, ok := st.itemIdx[o.ItemID]
		if !ok {
			continue
		}
		p := st.Prob(o.StudentID, o.ItemID)
		varp := p * (1 - p)
		z := (o.Response - p) / math.Sqrt(math.Max(varp, minVariance))

		a := &accs[i]
		a.n++
		a.sumZ += z
		a.sumZ2 += z * z
		a.sumVar += varp
		a.sumVarZ += varp * z * z
	}

	rows := make([]FitRow, len(st.Items))
	for i, id := range st.Items {
		a := accs[i]
		var outfit, infit, meanZ float64
		if a.n > 0 {
			outfit = a.sumZ2 / float64(a.n)
			infit = a.sumVarZ / math.Max(a.sumVar, minVariance)
			meanZ = a.sumZ / float64(a.n)
		}

		var outT, inT float64
		switch opts.TStatistic {
		case TMeanResidual:
			outT, inT = meanZ, meanZ
		case TWilsonHilferty:
			outT = wilsonHilferty(outfit, a.n)
			inT = wilsonHilferty(infit, a.n)
		}

		rows[i] = FitRow{
			ItemID:  id,
			Outfit:  Round(outfit, 2),
			OutfitT: Round(outT, 2),
			OutfitP: Round(TwoSidedP(outT), 2),
			Infit:   Round(infit, 2),
			InfitT:  Round(inT, 2),
			InfitP:  Round(TwoSidedP(inT), 2),
		}
	}
	return rows
}

func wilsonHilferty(ms float64, n int) float64 {
	if n == 0 {
		return 0
	}
	q := math.Sqrt(2 / float64(n))
	return (math.Cbrt(ms)-1)*(3/q) + q/3
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(x*p) / p
	if r == 0 {
		// no negative zero in reports
		return 0
	}
	return r
}
