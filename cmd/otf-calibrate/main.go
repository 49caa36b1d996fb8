package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	otfcal "github.com/nsip/otf-calibrate"
	"github.com/peterbourgon/ff/v3"
)

func main() {

	fs := flag.NewFlagSet("otf-calibrate", flag.ExitOnError)
	var (
		_              = fs.String("config", "", "config file (optional), json format.")
		serviceName    = fs.String("name", "", "name for this calibration service instance, leave blank to auto-generate")
		serviceID      = fs.String("id", "", "id for this calibration service instance, leave blank to auto-generate a unique id")
		serviceHost    = fs.String("host", "localhost", "name/address of host for this service")
		servicePort    = fs.Int("port", 0, "port to run service on, if not specified will assign an available port automatically")
		storeDriver    = fs.String("storeDriver", "sqlite", "database for stored calibration runs (sqlite|postgres)")
		storeDSN       = fs.String("storeDSN", "", "connection string for the run store, blank uses an in-memory sqlite database")
		maxIterations  = fs.Int("maxIterations", 80, "default iteration limit for a calibration")
		iterationLimit = fs.Int("iterationLimit", 1000, "most iterations any request may ask for")
		tolerance      = fs.Float64("tolerance", 1e-4, "default convergence tolerance (largest parameter change per iteration)")
		tStat          = fs.String("tStat", "zero", "fit t-statistic approximation (zero|mean|wh)")
		bodyLimit      = fs.String("bodyLimit", "16M", "largest accepted request body")
		predictorHosts = fs.String("predictorHosts", "", "comma separated hosts a request's predictorURL may use, blank disables remote fetching")
		logLevel       = fs.String("logLevel", "info", "log level (debug|info|warn|error|off)")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.JSONParser),
		ff.WithEnvVarPrefix("OTF_CALIBRATE_SRVC"),
	); err != nil {
		fmt.Printf("\nCannot read otf-calibrate configuration:\n%s\n\n", err)
		os.Exit(1)
	}

	opts := []otfcal.Option{
		otfcal.Name(*serviceName),
		otfcal.ID(*serviceID),
		otfcal.Host(*serviceHost),
		otfcal.Port(*servicePort),
		otfcal.StoreDriver(*storeDriver),
		otfcal.StoreDSN(*storeDSN),
		otfcal.MaxIterations(*maxIterations),
		otfcal.Tolerance(*tolerance),
		otfcal.IterationLimit(*iterationLimit),
		otfcal.TStatistic(*tStat),
		otfcal.BodyLimit(*bodyLimit),
		otfcal.PredictorHosts(strings.Split(*predictorHosts, ",")...),
		otfcal.LogLevel(*logLevel),
	}

	srvc, err := otfcal.New(opts...)
	if err != nil {
		fmt.Printf("\nCannot create otf-calibrate service:\n%s\n\n", err)
		os.Exit(1)
	}

	srvc.PrintConfig()

	// signal handler for shutdown
	closed := make(chan struct{})
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, os.Interrupt)
	go func() {
		<-c
		fmt.Println("\notf-calibrate shutting down")
		srvc.Shutdown()
		fmt.Println("otf-calibrate closed")
		close(closed)
	}()

	srvc.Start()

	// block until shutdown by sig-handler
	<-closed

}
