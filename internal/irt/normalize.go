package irt

import "math"

// widening applied to a degenerate (all-equal) prediction range
const rangeEpsilon = 1e-6

// Prediction is one raw (student, item, predicted score) triple
// handed over by the score predictor.
type Prediction struct {
	StudentID string  `json:"studentId"`
	ItemID    string  `json:"itemId"`
	Score     float64 `json:"score"`
}

// Observation is a prediction rescaled into a [0,1] pseudo-response.
type Observation struct {
	StudentID      string  `json:"studentId"`
	ItemID         string  `json:"itemId"`
	PredictedScore float64 `json:"predictedScore"`
	Response       float64 `json:"response"`
}

//
// Normalize maps every predicted score linearly onto [0,1] using the
// min and max of the whole batch. When every score is equal the range
// is widened by rangeEpsilon so all responses come out as 0.
//
func Normalize(preds []Prediction) ([]Observation, error) {
	if len(preds) == 0 {
		return nil, invalidInput("no observations to calibrate")
	}

	pMin, pMax := math.Inf(1), math.Inf(-1)
	for _, p := range preds {
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
			return nil, invalidInput("non-finite predicted score for student " + p.StudentID + ", item " + p.ItemID)
		}
		pMin = math.Min(pMin, p.Score)
		pMax = math.Max(pMax, p.Score)
	}
	if pMax == pMin {
		pMax = pMin + rangeEpsilon
	}
	// a range wider than float64 can hold is rescaled by the largest magnitude first
	scale := 1.0
	if math.IsInf(pMax-pMin, 0) {
		scale = math.Max(math.Abs(pMin), math.Abs(pMax))
	}
	lo := pMin / scale
	span := pMax/scale - lo
	if span <= 0 {
		// pMin too large for the widening to register
		span = rangeEpsilon
	}

	obs := make([]Observation, len(preds))
	for i, p := range preds {
		obs[i] = Observation{
			StudentID:      p.StudentID,
			ItemID:         p.ItemID,
			PredictedScore: p.Score,
			Response:       clamp01((p.Score/scale - lo) / span),
		}
	}
	return obs, nil
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
