package otfcalibrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/nsip/otf-calibrate/internal/diagnostics"
	"github.com/nsip/otf-calibrate/internal/ingest"
	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/nsip/otf-calibrate/internal/store"
	"github.com/nsip/otf-calibrate/internal/util"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	defaultWrightBins = 10
	maxWrightBins     = 200
)

//
// Parameters of a calibration request, read from the json body.
// Prediction rows are either embedded in the body (at rowsPath,
// default "rows") or fetched from a score predictor at predictorURL.
//
type CalibrateRequest struct {
	RowsPath     string
	PredictorURL string
	Mapping      ingest.Mapping
	// zero values fall back to the service defaults
	MaxIterations int
	Tolerance     float64
	TStatistic    string
	WrightBins    int
}

//
// what a calibration returns, and what is stored for the run
//
type CalibrateResponse struct {
	RunID       string                   `json:"runId"`
	ServiceName string                   `json:"calibrateServiceName"`
	ServiceID   string                   `json:"calibrateServiceID"`
	Skipped     int                      `json:"skippedRows"`
	Report      *irt.Report              `json:"report"`
	WrightMap   []diagnostics.WrightBin  `json:"wrightMap"`
	Kidmap      diagnostics.KidmapMatrix `json:"kidmap"`
	Diagnostics *PredictionDiagnostics   `json:"diagnostics,omitempty"`
}

//
// prediction quality, only present when actual scores were mapped
//
type PredictionDiagnostics struct {
	Metrics   diagnostics.Metrics      `json:"metrics"`
	ByStudent []diagnostics.GroupError `json:"byStudent"`
	ByFormat  []diagnostics.GroupError `json:"byFormat,omitempty"`
}

func parseCalibrateRequest(body []byte) (CalibrateRequest, error) {
	if !gjson.ValidBytes(body) {
		return CalibrateRequest{}, errors.Wrap(ingest.ErrMalformedPayload, "request body is not valid json")
	}
	r := gjson.ParseBytes(body)
	req := CalibrateRequest{
		RowsPath:     r.Get("rowsPath").String(),
		PredictorURL: r.Get("predictorURL").String(),
		Mapping: ingest.Mapping{
			StudentCol: r.Get("mapping.studentCol").String(),
			ItemCol:    r.Get("mapping.itemCol").String(),
			ScoreCol:   r.Get("mapping.scoreCol").String(),
			ActualCol:  r.Get("mapping.actualCol").String(),
			FormatCol:  r.Get("mapping.formatCol").String(),
		},
		MaxIterations: int(r.Get("maxIterations").Int()),
		Tolerance:     r.Get("tolerance").Float(),
		TStatistic:    r.Get("tStat").String(),
		WrightBins:    int(r.Get("wrightBins").Int()),
	}
	if bins := r.Get("wrightBins").Float(); bins > maxWrightBins {
		return CalibrateRequest{}, &irt.InvalidInputError{
			Reason: fmt.Sprintf("wrightBins must be at most %d, got %g", maxWrightBins, bins),
		}
	}
	if req.PredictorURL == "" && req.RowsPath == "" {
		req.RowsPath = "rows"
	}
	return req, nil
}

//
// creates the main calibrate method
// requires a json body holding prediction rows (or a predictorURL)
// and optionally a column mapping and calibration settings
//
func (s *OtfCalibrateService) buildCalibrateHandler() echo.HandlerFunc {

	sName := s.serviceName
	sID := s.serviceID

	return func(c echo.Context) error {
		defer util.TimeTrack(c.Logger(), time.Now(), "calibration request")

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			// the body limit middleware reports oversize bodies while reading
			if he, ok := err.(*echo.HTTPError); ok {
				return he
			}
			return echo.NewHTTPError(http.StatusBadRequest, "cannot read request body")
		}
		req, err := parseCalibrateRequest(body)
		if err != nil {
			return httpError(err)
		}

		ctx := c.Request().Context()
		var batch *ingest.Batch
		if req.PredictorURL != "" {
			if err := s.checkPredictorURL(req.PredictorURL); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}
			batch, err = ingest.Fetch(ctx, req.PredictorURL, req.RowsPath, req.Mapping)
			if err != nil && !errors.Is(err, ingest.ErrMalformedPayload) {
				c.Logger().Warn("predictor fetch failed: ", err)
				return echo.NewHTTPError(http.StatusBadGateway, err.Error())
			}
		} else {
			batch, err = ingest.Rows(body, req.RowsPath, req.Mapping)
		}
		if err != nil {
			return httpError(err)
		}

		resp, err := s.calibrate(ctx, req, batch)
		if err != nil {
			c.Logger().Warn("calibration error: ", err)
			return httpError(err)
		}
		resp.ServiceName, resp.ServiceID = sName, sID

		stored, err := json.Marshal(resp)
		if err != nil {
			return httpError(errors.Wrap(err, "cannot serialize calibration"))
		}
		err = s.runs.Save(ctx, store.Run{
			ID:           resp.RunID,
			CreatedAt:    time.Now().UTC(),
			Observations: resp.Report.Observations,
			Students:     len(resp.Report.Persons),
			Items:        len(resp.Report.Items),
			Iterations:   resp.Report.Iterations,
			Converged:    resp.Report.Converged,
			Reliability:  resp.Report.Reliability,
			Report:       stored,
		})
		if err != nil {
			return httpError(err)
		}

		return c.JSONBlob(http.StatusOK, stored)
	}
}

//
// runs the calibration core over an ingested batch and
// derives the map and diagnostics views of the result
//
func (s *OtfCalibrateService) calibrate(ctx context.Context, req CalibrateRequest, batch *ingest.Batch) (*CalibrateResponse, error) {

	opts := irt.AnalyzeOptions{
		Engine: irt.Config{
			MaxIterations: s.maxIterations,
			Tolerance:     s.tolerance,
		},
		Fit: irt.FitOptions{TStatistic: s.tStat},
	}
	if req.MaxIterations > 0 {
		opts.Engine.MaxIterations = req.MaxIterations
	}
	if opts.Engine.MaxIterations > s.iterationLimit {
		opts.Engine.MaxIterations = s.iterationLimit
	}
	if req.Tolerance > 0 {
		opts.Engine.Tolerance = req.Tolerance
	}
	if req.TStatistic != "" {
		t, err := irt.ParseTStatistic(req.TStatistic)
		if err != nil {
			return nil, &irt.InvalidInputError{Reason: err.Error()}
		}
		opts.Fit.TStatistic = t
	}
	if lg, ok := s.e.Logger.(*log.Logger); ok {
		opts.Engine.Logger = lg
	}

	report, err := irt.Analyze(ctx, batch.Predictions, opts)
	if err != nil {
		return nil, err
	}

	bins := req.WrightBins
	if bins <= 0 {
		bins = defaultWrightBins
	}
	wright, err := diagnostics.WrightMap(report.Abilities(), report.Difficulties(), bins)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build wright map")
	}

	resp := &CalibrateResponse{
		RunID:     util.GenerateID(),
		Skipped:   batch.Skipped,
		Report:    report,
		WrightMap: wright,
		Kidmap:    diagnostics.Kidmap(batch.Predictions),
	}

	if batch.HasActuals() {
		pd, err := predictionDiagnostics(batch)
		if err != nil {
			return nil, err
		}
		resp.Diagnostics = pd
	}

	return resp, nil
}

//
// only http(s) predictors on an allowed host may be fetched;
// with no allowed hosts configured remote fetching is off
//
func (s *OtfCalibrateService) checkPredictorURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "invalid predictorURL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("predictorURL scheme %q not allowed", u.Scheme)
	}
	if len(s.predictorHosts) == 0 {
		return errors.New("fetching from a predictorURL is not enabled on this service")
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.predictorHosts {
		if host == h {
			return nil
		}
	}
	return errors.Errorf("predictor host %q is not in the allowed list", u.Hostname())
}

func predictionDiagnostics(batch *ingest.Batch) (*PredictionDiagnostics, error) {
	var preds, actuals []float64
	var students, formats []string
	for k, p := range batch.Predictions {
		if math.IsNaN(batch.Actuals[k]) {
			continue
		}
		preds = append(preds, p.Score)
		actuals = append(actuals, batch.Actuals[k])
		students = append(students, p.StudentID)
		if batch.Formats != nil {
			formats = append(formats, batch.Formats[k])
		}
	}

	m, err := diagnostics.Evaluate(preds, actuals)
	if err != nil {
		return nil, errors.Wrap(err, "cannot evaluate predictions")
	}
	residuals, err := diagnostics.Residuals(preds, actuals)
	if err != nil {
		return nil, err
	}
	pd := &PredictionDiagnostics{Metrics: m}
	if pd.ByStudent, err = diagnostics.GroupErrors(students, residuals); err != nil {
		return nil, err
	}
	if formats != nil {
		if pd.ByFormat, err = diagnostics.GroupErrors(formats, residuals); err != nil {
			return nil, err
		}
	}
	return pd, nil
}

//
// lists stored calibration runs, newest first
// optional query param limit (default 50)
//
func (s *OtfCalibrateService) buildListRunsHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 0
		if l := c.QueryParam("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
			}
			limit = n
		}
		runs, err := s.runs.List(c.Request().Context(), limit)
		if err != nil {
			return httpError(err)
		}
		if runs == nil {
			runs = []store.Run{}
		}
		return c.JSON(http.StatusOK, runs)
	}
}

//
// returns the full stored response of a calibration run
//
func (s *OtfCalibrateService) buildGetRunHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		run, err := s.runs.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSONBlob(http.StatusOK, run.Report)
	}
}

//
// exports the item fit table of a run as csv
//
func (s *OtfCalibrateService) buildFitCSVHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		run, err := s.runs.Get(c.Request().Context(), id)
		if err != nil {
			return httpError(err)
		}

		var rows []irt.FitRow
		raw := gjson.GetBytes(run.Report, "report.fit_rows").Raw
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &rows); err != nil {
				return httpError(errors.Wrapf(err, "stored fit rows for run %s are unreadable", id))
			}
		}

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="fit-`+id+`.csv"`)
		res.WriteHeader(http.StatusOK)
		return irt.WriteFitCSV(res, rows)
	}
}

//
// maps core errors onto http status codes
//
func httpError(err error) error {
	switch {
	case irt.IsInvalidInput(err), errors.Is(err, ingest.ErrMalformedPayload):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrRunNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
