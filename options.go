package otfcalibrate

import (
	"strings"

	"github.com/labstack/gommon/bytes"
	"github.com/labstack/gommon/log"
	"github.com/nsip/otf-calibrate/internal/irt"
	"github.com/nsip/otf-calibrate/internal/store"
	"github.com/nsip/otf-calibrate/internal/util"
	"github.com/pkg/errors"
)

type Option func(*OtfCalibrateService) error

//
// apply all supplied options to the service
// returns any error encountered while applying the options
//
func (srvc *OtfCalibrateService) setOptions(options ...Option) error {
	for _, opt := range options {
		if err := opt(srvc); err != nil {
			return err
		}
	}
	return nil
}

//
// a name for this service instance,
// if empty a short unique name is generated
//
func Name(name string) Option {
	return func(s *OtfCalibrateService) error {
		if name == "" {
			name = util.GenerateName()
		}
		s.serviceName = name
		return nil
	}
}

//
// an id for this service instance,
// if empty a unique id is generated
//
func ID(id string) Option {
	return func(s *OtfCalibrateService) error {
		if id == "" {
			id = util.GenerateID()
		}
		s.serviceID = id
		return nil
	}
}

//
// host address the service listens on
//
func Host(hostName string) Option {
	return func(s *OtfCalibrateService) error {
		if hostName == "" {
			hostName = "localhost"
		}
		s.serviceHost = hostName
		return nil
	}
}

//
// port the service listens on,
// if 0 an available port is found
//
func Port(port int) Option {
	return func(s *OtfCalibrateService) error {
		if port < 0 {
			return errors.Errorf("invalid port %d", port)
		}
		if port == 0 {
			p, err := util.AvailablePort()
			if err != nil {
				return errors.Wrap(err, "no port supplied and cannot find one")
			}
			port = p
		}
		s.servicePort = port
		return nil
	}
}

//
// database driver for the run store: sqlite or postgres
//
func StoreDriver(driver string) Option {
	return func(s *OtfCalibrateService) error {
		switch d := store.Driver(strings.ToLower(driver)); d {
		case "", store.DriverSQLite:
			s.storeDriver = store.DriverSQLite
		case store.DriverPostgres:
			s.storeDriver = d
		default:
			return errors.Errorf("unsupported store driver %q, use sqlite or postgres", driver)
		}
		return nil
	}
}

//
// connection string for the run store,
// empty uses the driver default
//
func StoreDSN(dsn string) Option {
	return func(s *OtfCalibrateService) error {
		s.storeDSN = dsn
		return nil
	}
}

//
// default iteration limit for calibrations,
// requests may override it
//
func MaxIterations(n int) Option {
	return func(s *OtfCalibrateService) error {
		if n < 0 {
			return errors.Errorf("maxIterations must not be negative, got %d", n)
		}
		if n == 0 {
			n = irt.DefaultMaxIterations
		}
		s.maxIterations = n
		return nil
	}
}

//
// default convergence tolerance for calibrations,
// requests may override it
//
func Tolerance(tol float64) Option {
	return func(s *OtfCalibrateService) error {
		if tol < 0 {
			return errors.Errorf("tolerance must not be negative, got %g", tol)
		}
		if tol == 0 {
			tol = irt.DefaultTolerance
		}
		s.tolerance = tol
		return nil
	}
}

//
// default fit t-statistic approximation: zero, mean or wh
//
func TStatistic(mode string) Option {
	return func(s *OtfCalibrateService) error {
		t, err := irt.ParseTStatistic(mode)
		if err != nil {
			return err
		}
		s.tStat = t
		return nil
	}
}

//
// log level: debug, info, warn, error or off
//
func LogLevel(level string) Option {
	return func(s *OtfCalibrateService) error {
		switch strings.ToLower(level) {
		case "debug":
			s.logLevel = log.DEBUG
		case "", "info":
			s.logLevel = log.INFO
		case "warn":
			s.logLevel = log.WARN
		case "error":
			s.logLevel = log.ERROR
		case "off":
			s.logLevel = log.OFF
		default:
			return errors.Errorf("unknown log level %q", level)
		}
		return nil
	}
}

//
// largest number of iterations any request may run,
// request and service defaults above it are clamped
//
func IterationLimit(n int) Option {
	return func(s *OtfCalibrateService) error {
		if n <= 0 {
			return errors.Errorf("iterationLimit must be positive, got %d", n)
		}
		s.iterationLimit = n
		return nil
	}
}

//
// largest accepted request body, in the form "512K", "16M"
//
func BodyLimit(limit string) Option {
	return func(s *OtfCalibrateService) error {
		n, err := bytes.Parse(limit)
		if err != nil || n <= 0 {
			return errors.Errorf("invalid body limit %q", limit)
		}
		s.bodyLimit = limit
		return nil
	}
}

//
// hosts that a request's predictorURL may point at,
// none means predictor fetching is disabled
//
func PredictorHosts(hosts ...string) Option {
	return func(s *OtfCalibrateService) error {
		s.predictorHosts = s.predictorHosts[:0]
		for _, h := range hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				s.predictorHosts = append(s.predictorHosts, h)
			}
		}
		return nil
	}
}
