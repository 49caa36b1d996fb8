package otfcalibrate

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/nsip/otf-calibrate/internal/store"
	"github.com/pkg/errors"
)

const (
	defaultIterationLimit = 1000
	defaultBodyLimit      = "16M"
)

type OtfCalibrateService struct {
	// embedded web server to handle calibration requests
	e *echo.Echo
	// the unique name of this service when running multiple instances
	serviceName string
	// the unique id of this service when running multiple instances
	serviceID string
	// the host address this service instance is running on
	serviceHost string
	// the port that this service instance is running on
	servicePort int
	// database driver & connection string for stored calibration runs
	storeDriver store.Driver
	storeDSN    string
	// calibration defaults, requests can override
	maxIterations int
	tolerance     float64
	tStat         irt.TStatistic
	logLevel      log.Lvl
	// ceiling on iterations a request may ask for
	iterationLimit int
	// largest accepted request body, e.g. "16M"
	bodyLimit string
	// hosts a predictorURL may point at, empty disables remote fetching
	predictorHosts []string
	// persisted calibration runs
	runs *store.Store
}

//
// create a new service instance
//
func New(options ...Option) (*OtfCalibrateService, error) {

	srvc := OtfCalibrateService{
		storeDriver:   store.DriverSQLite,
		maxIterations: irt.DefaultMaxIterations,
		tolerance:     irt.DefaultTolerance,
		tStat:         irt.TZero,
		logLevel:      log.INFO,
		// request overrides are clamped to these
		iterationLimit: defaultIterationLimit,
		bodyLimit:      defaultBodyLimit,
	}

	if err := srvc.setOptions(options...); err != nil {
		return nil, err
	}
	// fill in identity for any options not supplied
	if err := srvc.setOptions(srvc.identityDefaults()...); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runs, err := store.Open(ctx, srvc.storeDriver, srvc.storeDSN)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open calibration run store")
	}
	srvc.runs = runs

	srvc.e = echo.New()
	srvc.e.HideBanner = true
	srvc.e.Logger.SetLevel(srvc.logLevel)
	srvc.e.Use(middleware.Recover())
	srvc.e.Use(middleware.BodyLimit(srvc.bodyLimit))
	// results are rendered by a browser front end served from elsewhere
	srvc.e.Use(middleware.CORS())
	// add pingable method to know we're up
	srvc.e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, "OK")
	})
	// calibration and access to stored runs
	srvc.e.POST("/calibrate", srvc.buildCalibrateHandler())
	srvc.e.GET("/runs", srvc.buildListRunsHandler())
	srvc.e.GET("/runs/:id", srvc.buildGetRunHandler())
	srvc.e.GET("/runs/:id/fit.csv", srvc.buildFitCSVHandler())

	return &srvc, nil
}

func (s *OtfCalibrateService) identityDefaults() []Option {
	var opts []Option
	if s.serviceName == "" {
		opts = append(opts, Name(""))
	}
	if s.serviceID == "" {
		opts = append(opts, ID(""))
	}
	if s.serviceHost == "" {
		opts = append(opts, Host(""))
	}
	if s.servicePort == 0 {
		opts = append(opts, Port(0))
	}
	return opts
}

//
// start the service running
//
func (s *OtfCalibrateService) Start() {

	address := fmt.Sprintf("%s:%d", s.serviceHost, s.servicePort)
	go func(addr string) {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.e.Logger.Info("error starting server: ", err, ", shutting down...")
			// attempt clean shutdown by raising sig int
			p, _ := os.FindProcess(os.Getpid())
			p.Signal(os.Interrupt)
		}
	}(address)

}

//
// shut the server down gracefully
//
func (s *OtfCalibrateService) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(ctx); err != nil {
		s.e.Logger.Error("could not shut down server cleanly: ", err)
	}
	if err := s.runs.Close(); err != nil {
		s.e.Logger.Error("could not close run store: ", err)
	}
}

func (s *OtfCalibrateService) PrintConfig() {

	fmt.Println("\n\tOTF-Calibrate Service Configuration")
	fmt.Println("\t-------------------------------------")

	s.printID()
	s.printCalibrationConfig()

}

func (s *OtfCalibrateService) printID() {
	fmt.Println("\tservice name:\t\t", s.serviceName)
	fmt.Println("\tservice ID:\t\t", s.serviceID)
	fmt.Println("\tservice host:\t\t", s.serviceHost)
	fmt.Println("\tservice port:\t\t", s.servicePort)
}

func (s *OtfCalibrateService) printCalibrationConfig() {
	fmt.Println("\trun store driver:\t", s.storeDriver)
	fmt.Println("\tmax iterations:\t\t", s.maxIterations)
	fmt.Println("\ttolerance:\t\t", s.tolerance)
	fmt.Println("\tfit t-statistic:\t", s.tStat)
	fmt.Println("\titeration limit:\t", s.iterationLimit)
	fmt.Println("\tbody limit:\t\t", s.bodyLimit)
	fmt.Println("\tpredictor hosts:\t", strings.Join(s.predictorHosts, ","))
	fmt.Println()
}
