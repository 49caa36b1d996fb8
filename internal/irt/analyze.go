package irt

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Estimate is one calibrated parameter, kept in input order.
type Estimate struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// Report is everything the calibration core hands to its callers.
type Report struct {
	Theta   map[string]float64 `json:"theta"`
	B       map[string]float64 `json:"b"`
	Persons []Estimate         `json:"persons"`
	Items   []Estimate         `json:"items"`
	FitRows []FitRow           `json:"fit_rows"`

	Reliability      float64 `json:"reliability"`
	VariancePersons  float64 `json:"variance_persons"`
	VarianceItems    float64 `json:"variance_items"`
	AvgModelVariance float64 `json:"avg_model_variance"`

	Observations int           `json:"observations"`
	Iterations   int           `json:"iterations"`
	Converged    bool          `json:"converged"`
	MaxDelta     float64       `json:"max_delta"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

type AnalyzeOptions struct {
	Engine Config
	Fit    FitOptions
}

//
// Analyze runs the full core pipeline on a prediction batch:
// normalize, calibrate, then fit statistics and reliability.
//
func Analyze(ctx context.Context, preds []Prediction, opts AnalyzeOptions) (*Report, error) {

	start := time.Now()

	obs, err := Normalize(preds)
	if err != nil {
		return nil, err
	}

	st, err := NewEngine(opts.Engine).Calibrate(ctx, NewInput(obs))
	if err != nil {
		return nil, errors.Wrap(err, "calibration failed")
	}

	summary := Reliability(st, obs).Rounded()

	rep := &Report{
		Theta:            st.AbilityMap(),
		B:                st.DifficultyMap(),
		Persons:          make([]Estimate, len(st.Students)),
		Items:            make([]Estimate, len(st.Items)),
		FitRows:          FitStatistics(st, obs, opts.Fit),
		Reliability:      summary.Reliability,
		VariancePersons:  summary.VariancePersons,
		VarianceItems:    summary.VarianceItems,
		AvgModelVariance: summary.AvgModelVariance,
		Observations:     len(obs),
		Iterations:       st.Iterations,
		Converged:        st.Converged,
		MaxDelta:         st.MaxDelta,
	}
	for s, id := range st.Students {
		rep.Persons[s] = Estimate{ID: id, Value: st.Theta[s]}
	}
	for i, id := range st.Items {
		rep.Items[i] = Estimate{ID: id, Value: st.B[i]}
	}
	rep.Elapsed = time.Since(start)

	return rep, nil
}

// Abilities returns theta values in student order.
func (r *Report) Abilities() []float64 {
	return values(r.Persons)
}

// Difficulties returns b values in item order.
func (r *Report) Difficulties() []float64 {
	return values(r.Items)
}

func values(es []Estimate) []float64 {
	out := make([]float64, len(es))
	for i, e := range es {
		out[i] = e.Value
	}
	return out
}
