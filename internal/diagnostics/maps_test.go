package diagnostics

import (
	"testing"

	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKidmap(t *testing.T) {
	km := Kidmap([]irt.Prediction{
		{StudentID: "s2", ItemID: "i1", Score: 1},
		{StudentID: "s1", ItemID: "i2", Score: 2},
		{StudentID: "s2", ItemID: "i1", Score: 3},
	})

	assert.Equal(t, []string{"s2", "s1"}, km.Students)
	assert.Equal(t, []string{"i1", "i2"}, km.Items)

	require.NotNil(t, km.Cells[0][0])
	assert.Equal(t, 2.0, *km.Cells[0][0])
	assert.Nil(t, km.Cells[0][1])
	assert.Nil(t, km.Cells[1][0])
	require.NotNil(t, km.Cells[1][1])
	assert.Equal(t, 2.0, *km.Cells[1][1])
}

func TestWrightMap(t *testing.T) {
	bins, err := WrightMap([]float64{-2, -1, 0, 2}, []float64{-0.5, 1.9}, 4)
	require.NoError(t, err)
	require.Len(t, bins, 4)

	assert.Equal(t, -2.0, bins[0].Lower)
	assert.Equal(t, 2.0, bins[3].Upper)

	var persons, items int
	for _, b := range bins {
		persons += b.Persons
		items += b.Items
	}
	assert.Equal(t, 4, persons)
	assert.Equal(t, 2, items)

	// lower edges are inclusive, the max lands in the last bin
	assert.Equal(t, 1, bins[0].Persons)
	assert.Equal(t, 1, bins[1].Persons)
	assert.Equal(t, 1, bins[1].Items)
	assert.Equal(t, 1, bins[3].Persons)
	assert.Equal(t, 1, bins[3].Items)
}

func TestWrightMap_Degenerate(t *testing.T) {
	bins, err := WrightMap([]float64{0, 0}, []float64{0}, 3)
	require.NoError(t, err)
	assert.Equal(t, -0.5, bins[0].Lower)
	assert.Equal(t, 0.5, bins[2].Upper)
	assert.Equal(t, 2, bins[1].Persons)

	_, err = WrightMap(nil, nil, 3)
	assert.Error(t, err)
	_, err = WrightMap([]float64{1}, nil, 0)
	assert.Error(t, err)
}
