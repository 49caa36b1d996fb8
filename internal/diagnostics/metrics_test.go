package diagnostics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	preds := []float64{2, 4, 5, 1}
	actuals := []float64{1, 4, 6, 0}
	// errors: 1, 0, -1, 1

	m, err := Evaluate(preds, actuals)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, m.MAE, 1e-12)
	assert.InDelta(t, 0.75, m.MSE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.75), m.RMSE, 1e-12)
	assert.InDelta(t, 0.25, m.MeanError, 1e-12)
	// |1/1| + 0 + |-1/6|, zero actual skipped, averaged over 4
	assert.InDelta(t, (1+1.0/6)/4*100, m.MAPE, 1e-9)

	// mean actual 2.75, SST = 3.0625+1.5625+10.5625+7.5625 = 22.75
	assert.InDelta(t, 1-3/22.75, m.R2, 1e-12)
	assert.InDelta(t, m.R2, m.ExplainedVariance, 1e-12)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate(nil, nil)
	assert.Error(t, err)

	_, err = Evaluate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestEvaluate_ConstantActuals(t *testing.T) {
	m, err := Evaluate([]float64{1, 3}, []float64{2, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.R2)
	assert.Equal(t, 0.0, m.ExplainedVariance)
	assert.Equal(t, 1.0, m.RMSE)
}

func TestGroupErrors(t *testing.T) {
	keys := []string{"mcq", "essay", "mcq", "", "essay"}
	res := []float64{1, -2, -1, 5, 0}

	groups, err := GroupErrors(keys, res)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "essay", groups[0].Key)
	assert.Equal(t, 2, groups[0].Count)
	assert.InDelta(t, math.Sqrt(2), groups[0].RMSE, 1e-12)
	assert.InDelta(t, -1, groups[0].Bias, 1e-12)

	assert.Equal(t, "mcq", groups[1].Key)
	assert.InDelta(t, 1, groups[1].RMSE, 1e-12)
	assert.InDelta(t, 0, groups[1].Bias, 1e-12)

	_, err = GroupErrors([]string{"a"}, nil)
	assert.Error(t, err)
}

func TestResiduals(t *testing.T) {
	r, err := Residuals([]float64{1, 2}, []float64{0.5, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1}, r)

	_, err = Residuals([]float64{1}, nil)
	assert.Error(t, err)
}
