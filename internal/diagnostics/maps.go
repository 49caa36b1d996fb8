package diagnostics

import (
	"math"

	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/pkg/errors"
)

// KidmapMatrix is a student x item grid of mean predicted scores.
// Cells without any prediction are nil.
type KidmapMatrix struct {
	Students []string     `json:"students"`
	Items    []string     `json:"items"`
	Cells    [][]*float64 `json:"cells"`
}

//
// Kidmap arranges predictions into a student x item grid, students
// and items in order of first appearance. Repeated pairs are averaged.
//
func Kidmap(preds []irt.Prediction) KidmapMatrix {
	km := KidmapMatrix{}
	sIdx := make(map[string]int)
	iIdx := make(map[string]int)
	for _, p := range preds {
		if _, ok := sIdx[p.StudentID]; !ok {
			sIdx[p.StudentID] = len(km.Students)
			km.Students = append(km.Students, p.StudentID)
		}
		if _, ok := iIdx[p.ItemID]; !ok {
			iIdx[p.ItemID] = len(km.Items)
			km.Items = append(km.Items, p.ItemID)
		}
	}

	sums := make([][]float64, len(km.Students))
	counts := make([][]int, len(km.Students))
	for s := range sums {
		sums[s] = make([]float64, len(km.Items))
		counts[s] = make([]int, len(km.Items))
	}
	for _, p := range preds {
		s, i := sIdx[p.StudentID], iIdx[p.ItemID]
		sums[s][i] += p.Score
		counts[s][i]++
	}

	km.Cells = make([][]*float64, len(km.Students))
	for s := range km.Cells {
		km.Cells[s] = make([]*float64, len(km.Items))
		for i := range km.Cells[s] {
			if counts[s][i] == 0 {
				continue
			}
			v := sums[s][i] / float64(counts[s][i])
			km.Cells[s][i] = &v
		}
	}
	return km
}

// WrightBin is one logit interval of a Wright map.
type WrightBin struct {
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Persons int     `json:"persons"`
	Items   int     `json:"items"`
}

//
// WrightMap places abilities and difficulties on one shared logit
// scale split into equal-width bins spanning both sets. The last bin
// is closed on the right.
//
func WrightMap(theta, b []float64, bins int) ([]WrightBin, error) {
	if bins <= 0 {
		return nil, errors.Errorf("wright map needs a positive bin count, got %d", bins)
	}
	if len(theta)+len(b) == 0 {
		return nil, errors.New("no parameters to map")
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range append(append([]float64{}, theta...), b...) {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)

	out := make([]WrightBin, bins)
	for k := range out {
		out[k].Lower = irt.Round(lo+float64(k)*width, 3)
		out[k].Upper = irt.Round(lo+float64(k+1)*width, 3)
	}
	slot := func(v float64) int {
		k := int((v - lo) / width)
		if k >= bins {
			k = bins - 1
		}
		if k < 0 {
			k = 0
		}
		return k
	}
	for _, v := range theta {
		out[slot(v)].Persons++
	}
	for _, v := range b {
		out[slot(v)].Items++
	}
	return out, nil
}
