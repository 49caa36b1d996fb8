package irt

import (
	"context"
	"math"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
)

const (
	DefaultMaxIterations = 80
	DefaultTolerance     = 1e-4

	// below this accumulated Fisher information a parameter is not updated
	minInformation = 1e-8
)

// Config controls a calibration run.
type Config struct {
	MaxIterations int
	Tolerance     float64
	// optional, per-iteration debug output and a completion line
	Logger *log.Logger
	// optional, called after both parameter blocks have been updated and centered
	OnIteration func(IterationStats)
}

// IterationStats describes the state at the end of one iteration.
type IterationStats struct {
	Iteration int
	MaxDelta  float64
	MeanTheta float64
	MeanB     float64
}

// Input is the calibration problem: observations plus the
// student and item sets whose order fixes the summation order.
type Input struct {
	Observations []Observation
	Students     []string
	Items        []string
}

//
// NewInput derives the student and item sets from the observations,
// in order of first appearance.
//
func NewInput(obs []Observation) Input {
	in := Input{Observations: obs}
	seenS := make(map[string]bool)
	seenI := make(map[string]bool)
	for _, o := range obs {
		if !seenS[o.StudentID] {
			seenS[o.StudentID] = true
			in.Students = append(in.Students, o.StudentID)
		}
		if !seenI[o.ItemID] {
			seenI[o.ItemID] = true
			in.Items = append(in.Items, o.ItemID)
		}
	}
	return in
}

// Probability is the Rasch logistic link P(theta, b) = 1/(1+exp(-(theta-b))).
func Probability(theta, b float64) float64 {
	return 1 / (1 + math.Exp(-(theta - b)))
}

//
// Engine estimates person abilities and item difficulties by joint
// maximum likelihood, alternating one Fisher-scoring step over all
// persons with one over all items. An Engine holds only its
// configuration; every Calibrate call starts from fresh parameters.
//
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() Config {
	return e.cfg
}

//
// Calibrate runs the alternating Fisher-scoring loop until the largest
// parameter change in an iteration drops below the tolerance, or the
// iteration limit is reached. The context is checked between iterations.
//
func (e *Engine) Calibrate(ctx context.Context, in Input) (*CalibrationState, error) {

	if len(in.Observations) == 0 {
		return nil, invalidInput("no observations to calibrate")
	}
	if len(in.Students) == 0 {
		return nil, invalidInput("empty student set")
	}
	if len(in.Items) == 0 {
		return nil, invalidInput("empty item set")
	}

	st := newState(in.Students, in.Items)

	// observation index lists per student / item, kept in input order
	n := len(in.Observations)
	obsS := make([]int, n)
	obsI := make([]int, n)
	y := make([]float64, n)
	byStudent := make([][]int, len(st.Students))
	byItem := make([][]int, len(st.Items))
	for k, o := range in.Observations {
		s, ok := st.studentIdx[o.StudentID]
		if !ok {
			return nil, invalidInput("observation references unknown student " + o.StudentID)
		}
		i, ok := st.itemIdx[o.ItemID]
		if !ok {
			return nil, invalidInput("observation references unknown item " + o.ItemID)
		}
		obsS[k], obsI[k], y[k] = s, i, o.Response
		byStudent[s] = append(byStudent[s], k)
		byItem[i] = append(byItem[i], k)
	}

	for iter := 1; iter <= e.cfg.MaxIterations; iter++ {
		maxDelta := 0.0

		// persons
		for s, ks := range byStudent {
			var grad, info float64
			for _, k := range ks {
				p := Probability(st.Theta[s], st.B[obsI[k]])
				grad += y[k] - p
				info += p * (1 - p)
			}
			if info > minInformation {
				d := grad / info
				st.Theta[s] += d
				maxDelta = math.Max(maxDelta, math.Abs(d))
			}
		}
		center(st.Theta)

		// items; probability falls as difficulty rises, hence the sign
		for i, ks := range byItem {
			var grad, info float64
			for _, k := range ks {
				p := Probability(st.Theta[obsS[k]], st.B[i])
				grad -= y[k] - p
				info += p * (1 - p)
			}
			if info > minInformation {
				d := grad / info
				st.B[i] += d
				maxDelta = math.Max(maxDelta, math.Abs(d))
			}
		}
		center(st.B)

		st.Iterations = iter
		st.MaxDelta = maxDelta
		if e.cfg.OnIteration != nil {
			e.cfg.OnIteration(IterationStats{
				Iteration: iter,
				MaxDelta:  maxDelta,
				MeanTheta: mean(st.Theta),
				MeanB:     mean(st.B),
			})
		}
		if e.cfg.Logger != nil {
			e.cfg.Logger.Debugf("calibration iteration %d: max delta %.6g", iter, maxDelta)
		}

		if maxDelta < e.cfg.Tolerance {
			st.Converged = true
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "calibration stopped after %d iterations", iter)
		}
	}

	if e.cfg.Logger != nil {
		e.cfg.Logger.Infof("calibration finished: %d students, %d items, %d iterations, converged=%t",
			len(st.Students), len(st.Items), st.Iterations, st.Converged)
	}

	return st, nil
}

func center(xs []float64) {
	m := mean(xs)
	for i := range xs {
		xs[i] -= m
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
