//
// Package ingest turns loosely shaped JSON rows from a score predictor
// into calibration input. Columns are addressed with gjson paths, so
// nested fields ("student.id") work as well as flat ones.
//
package ingest

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/nsip/otf-calibrate/internal/util"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var ErrMalformedPayload = errors.New("malformed prediction payload")

// Mapping names the column (gjson path) holding each field of a row.
type Mapping struct {
	StudentCol string `json:"studentCol"`
	ItemCol    string `json:"itemCol"`
	ScoreCol   string `json:"scoreCol"`
	// optional: observed score, enables prediction diagnostics
	ActualCol string `json:"actualCol"`
	// optional: item format / question type for grouped diagnostics
	FormatCol string `json:"formatCol"`
}

// DefaultMapping reads "student", "item" and "score".
func DefaultMapping() Mapping {
	return Mapping{StudentCol: "student", ItemCol: "item", ScoreCol: "score"}
}

func (m Mapping) withDefaults() Mapping {
	d := DefaultMapping()
	if m.StudentCol == "" {
		m.StudentCol = d.StudentCol
	}
	if m.ItemCol == "" {
		m.ItemCol = d.ItemCol
	}
	if m.ScoreCol == "" {
		m.ScoreCol = d.ScoreCol
	}
	return m
}

// Batch is the ingested prediction set. Actuals and Formats run
// parallel to Predictions when their columns are mapped; a missing
// actual is NaN.
type Batch struct {
	Predictions []irt.Prediction
	Actuals     []float64
	Formats     []string
	// rows dropped for a missing id or a missing / non-numeric score
	Skipped int
}

// HasActuals reports whether at least one row carried an actual score.
func (b *Batch) HasActuals() bool {
	for _, a := range b.Actuals {
		if !math.IsNaN(a) {
			return true
		}
	}
	return false
}

//
// Rows extracts predictions from payload. rowsPath locates the row
// array inside the payload; empty means the payload itself is the array.
// Malformed rows are skipped and counted rather than failing the batch.
//
func Rows(payload []byte, rowsPath string, m Mapping) (*Batch, error) {

	if !gjson.ValidBytes(payload) {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is not valid json")
	}

	var rows gjson.Result
	if rowsPath == "" {
		rows = gjson.ParseBytes(payload)
	} else {
		rows = gjson.GetBytes(payload, rowsPath)
	}
	if !rows.IsArray() {
		return nil, errors.Wrapf(ErrMalformedPayload, "no row array at %q", rowsPath)
	}

	m = m.withDefaults()
	b := &Batch{}
	rows.ForEach(func(_, row gjson.Result) bool {
		student, ok := identifier(row.Get(m.StudentCol))
		if !ok {
			b.Skipped++
			return true
		}
		item, ok := identifier(row.Get(m.ItemCol))
		if !ok {
			b.Skipped++
			return true
		}
		score, ok := number(row.Get(m.ScoreCol))
		if !ok {
			b.Skipped++
			return true
		}

		b.Predictions = append(b.Predictions, irt.Prediction{StudentID: student, ItemID: item, Score: score})
		if m.ActualCol != "" {
			actual, ok := number(row.Get(m.ActualCol))
			if !ok {
				actual = math.NaN()
			}
			b.Actuals = append(b.Actuals, actual)
		}
		if m.FormatCol != "" {
			b.Formats = append(b.Formats, row.Get(m.FormatCol).String())
		}
		return true
	})

	return b, nil
}

//
// Fetch pulls the prediction rows from a remote score predictor
// and ingests them with Rows.
//
func Fetch(ctx context.Context, url string, rowsPath string, m Mapping) (*Batch, error) {

	headers := map[string]string{
		"Accept": "application/json",
	}
	payload, err := util.Fetch(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fetch predictions")
	}
	return Rows(payload, rowsPath, m)
}

// ids may arrive as strings or numbers; numbers keep their literal form
func identifier(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		return s, s != ""
	case gjson.Number:
		return r.Raw, true
	}
	return "", false
}

// numbers may arrive as json numbers or numeric strings
func number(r gjson.Result) (float64, bool) {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
