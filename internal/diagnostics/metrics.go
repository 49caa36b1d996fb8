package diagnostics

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Metrics summarises how far predicted scores are from actual scores.
// Errors are predicted minus actual.
type Metrics struct {
	MAE               float64 `json:"mae"`
	MAPE              float64 `json:"mape"`
	MSE               float64 `json:"mse"`
	RMSE              float64 `json:"rmse"`
	R2                float64 `json:"r2"`
	ExplainedVariance float64 `json:"explainedVariance"`
	MeanError         float64 `json:"meanError"`
}

//
// Evaluate computes the prediction error metrics. MAPE only sums over
// non-zero actuals but is still averaged over every pair. When the
// actuals have no spread R2 and explained variance are reported as 0.
//
func Evaluate(preds, actuals []float64) (Metrics, error) {
	n := len(preds)
	if n == 0 {
		return Metrics{}, errors.New("no predictions to evaluate")
	}
	if n != len(actuals) {
		return Metrics{}, errors.Errorf("%d predictions but %d actual scores", n, len(actuals))
	}

	var sumAbs, sumAbsPct, sumSq, sumErr, sumActual float64
	for i := range preds {
		e := preds[i] - actuals[i]
		sumAbs += math.Abs(e)
		if actuals[i] != 0 {
			sumAbsPct += math.Abs(e / actuals[i])
		}
		sumSq += e * e
		sumErr += e
		sumActual += actuals[i]
	}
	fn := float64(n)
	meanActual := sumActual / fn

	var sst float64
	for _, a := range actuals {
		sst += (a - meanActual) * (a - meanActual)
	}

	m := Metrics{
		MAE:       sumAbs / fn,
		MAPE:      sumAbsPct / fn * 100,
		MSE:       sumSq / fn,
		MeanError: sumErr / fn,
	}
	m.RMSE = math.Sqrt(m.MSE)
	if sst > 0 {
		m.R2 = 1 - sumSq/sst
		m.ExplainedVariance = 1 - (sumSq/fn)/(sst/fn)
	}
	return m, nil
}

// GroupError is the residual summary for one group (a student, a format...).
type GroupError struct {
	Key   string  `json:"key"`
	RMSE  float64 `json:"rmse"`
	Bias  float64 `json:"bias"`
	Count int     `json:"count"`
}

//
// GroupErrors aggregates residuals by key, returning one entry per key
// sorted by key. Empty keys are skipped.
//
func GroupErrors(keys []string, residuals []float64) ([]GroupError, error) {
	if len(keys) != len(residuals) {
		return nil, errors.Errorf("%d keys but %d residuals", len(keys), len(residuals))
	}

	type acc struct {
		sumSq, sum float64
		n          int
	}
	groups := make(map[string]*acc)
	for i, k := range keys {
		if k == "" {
			continue
		}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.sumSq += residuals[i] * residuals[i]
		a.sum += residuals[i]
		a.n++
	}

	out := make([]GroupError, 0, len(groups))
	for k, a := range groups {
		out = append(out, GroupError{
			Key:   k,
			RMSE:  math.Sqrt(a.sumSq / float64(a.n)),
			Bias:  a.sum / float64(a.n),
			Count: a.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Residuals returns preds[i] - actuals[i].
func Residuals(preds, actuals []float64) ([]float64, error) {
	if len(preds) != len(actuals) {
		return nil, errors.Errorf("%d predictions but %d actual scores", len(preds), len(actuals))
	}
	out := make([]float64, len(preds))
	for i := range preds {
		out[i] = preds[i] - actuals[i]
	}
	return out, nil
}
