package otfcalibrate

import (
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/nsip/otf-calibrate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	s := newTestService(t)

	assert.Equal(t, "calibrate-test", s.serviceName)
	assert.Equal(t, "localhost", s.serviceHost)
	assert.Greater(t, s.servicePort, 0)
	assert.Equal(t, store.DriverSQLite, s.storeDriver)
	assert.Equal(t, irt.DefaultMaxIterations, s.maxIterations)
	assert.Equal(t, irt.DefaultTolerance, s.tolerance)
	assert.Equal(t, irt.TZero, s.tStat)
	assert.Equal(t, log.OFF, s.logLevel)
	assert.Equal(t, defaultIterationLimit, s.iterationLimit)
	assert.Equal(t, defaultBodyLimit, s.bodyLimit)
	assert.Empty(t, s.predictorHosts)
}

func TestNew_GeneratesIdentity(t *testing.T) {
	s, err := New(LogLevel("off"), StoreDSN("file:generated?mode=memory&cache=shared"))
	require.NoError(t, err)
	defer s.runs.Close()

	assert.NotEmpty(t, s.serviceName)
	assert.NotEmpty(t, s.serviceID)
}

func TestOptions(t *testing.T) {
	s := &OtfCalibrateService{}
	require.NoError(t, s.setOptions(
		Port(8089),
		MaxIterations(200),
		Tolerance(1e-6),
		TStatistic("wh"),
		StoreDriver("POSTGRES"),
		LogLevel("debug"),
		IterationLimit(500),
		BodyLimit("2M"),
		PredictorHosts(" Predictor.Example.org ", "", "10.0.0.5"),
	))
	assert.Equal(t, 8089, s.servicePort)
	assert.Equal(t, 200, s.maxIterations)
	assert.Equal(t, 1e-6, s.tolerance)
	assert.Equal(t, irt.TWilsonHilferty, s.tStat)
	assert.Equal(t, store.DriverPostgres, s.storeDriver)
	assert.Equal(t, log.DEBUG, s.logLevel)
	assert.Equal(t, 500, s.iterationLimit)
	assert.Equal(t, "2M", s.bodyLimit)
	assert.Equal(t, []string{"predictor.example.org", "10.0.0.5"}, s.predictorHosts)

	bad := []Option{
		Port(-1),
		MaxIterations(-5),
		Tolerance(-1),
		TStatistic("exact"),
		StoreDriver("mysql"),
		LogLevel("loud"),
		IterationLimit(0),
		BodyLimit("lots"),
		BodyLimit(""),
	}
	for _, o := range bad {
		assert.Error(t, s.setOptions(o))
	}
}
