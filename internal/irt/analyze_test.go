package irt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	preds := []Prediction{
		{"s1", "i1", 0.9}, {"s1", "i2", 0.5}, {"s1", "i3", 0.7},
		{"s2", "i1", 0.6}, {"s2", "i2", 0.2}, {"s2", "i3", 0.3},
		{"s3", "i1", 0.7}, {"s3", "i2", 0.3}, {"s3", "i3", 0.6},
	}

	rep, err := Analyze(context.Background(), preds, AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 9, rep.Observations)
	assert.True(t, rep.Converged)
	assert.Len(t, rep.Theta, 3)
	assert.Len(t, rep.B, 3)
	require.Len(t, rep.FitRows, 3)
	assert.Equal(t, []string{"i1", "i2", "i3"}, []string{rep.FitRows[0].ItemID, rep.FitRows[1].ItemID, rep.FitRows[2].ItemID})

	for k, e := range rep.Persons {
		assert.Equal(t, rep.Theta[e.ID], e.Value)
		assert.Equal(t, rep.Abilities()[k], e.Value)
	}
	assert.InDelta(t, 0, mean(rep.Difficulties()), 1e-9)

	assert.Equal(t, Round(rep.Reliability, 3), rep.Reliability)
	assert.GreaterOrEqual(t, rep.Reliability, 0.0)
	assert.LessOrEqual(t, rep.Reliability, 1.0)
	assert.Equal(t, Round(rep.VariancePersons, 3), rep.VariancePersons)
	assert.Greater(t, rep.Theta["s1"], rep.Theta["s2"])
}

func TestReport_JSONFieldNames(t *testing.T) {
	rep, err := Analyze(context.Background(), []Prediction{{"s1", "i1", 1}, {"s2", "i1", 0}}, AnalyzeOptions{})
	require.NoError(t, err)

	raw, err := json.Marshal(rep)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, k := range []string{"theta", "b", "fit_rows", "reliability", "variance_persons",
		"variance_items", "avg_model_variance", "max_delta", "elapsed_ns"} {
		assert.Contains(t, fields, k)
	}
	for k := range fields {
		assert.Equal(t, strings.ToLower(k), k, "field %s is not snake_case", k)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := Analyze(context.Background(), nil, AnalyzeOptions{})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "no observations to calibrate")
}

func TestWriteFitCSV(t *testing.T) {
	rows := []FitRow{
		{ItemID: "i1", Outfit: 1.2, OutfitT: 0, OutfitP: 1, Infit: 0.95, InfitT: 0, InfitP: 1},
		{ItemID: "item, two", Outfit: 0.5, OutfitT: -1.25, OutfitP: 0.21, Infit: 0.6, InfitT: -1, InfitP: 0.32},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteFitCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "item_id,outfit,outfit_t,outfit_p,infit,infit_t,infit_p", lines[0])
	assert.Equal(t, "i1,1.20,0.00,1.00,0.95,0.00,1.00", lines[1])
	assert.Equal(t, `"item, two",0.50,-1.25,0.21,0.60,-1.00,0.32`, lines[2])
}
