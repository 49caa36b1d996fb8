package util

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/nats-io/nuid"
	"github.com/pkg/errors"
	hashids "github.com/speps/go-hashids"
)

// response bodies from score predictors are capped at this size
const maxFetchBytes = 64 << 20

var (
	once      sync.Once
	netClient *http.Client
)

//
// create a singleton http client to ensure
// maximum reuse of connections to predictor services
//
func newNetClient() *http.Client {
	once.Do(func() {
		var netTransport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		}
		netClient = &http.Client{
			Timeout:   time.Second * 30,
			Transport: netTransport,
		}
	})

	return netClient
}

//
// generate a short readable service name - hashid in this case
//
func GenerateName() string {

	name := "calibrator"

	number0, err := rand.Int(rand.Reader, big.NewInt(10000000))
	if err != nil {
		log.Warn("cannot read random source for name: ", err)
		return name
	}

	hd := hashids.NewData()
	hd.Salt = "otf-calibrate random name generator"
	hd.MinLength = 5
	h, err := hashids.NewWithData(hd)
	if err != nil {
		log.Warn("error auto-generating name: ", err)
		return name
	}
	e, err := h.EncodeInt64([]int64{number0.Int64()})
	if err != nil {
		log.Warn("error encoding auto-generated name: ", err)
		return name
	}

	return e
}

//
// generate a unique id - nuid in this case,
// used for service instances and calibration runs
//
func GenerateID() string {

	return nuid.Next()

}

//
// Fetch calls another service (typically a score predictor) and
// returns the response payload as bytes, or an error if the call
// fails or does not answer 200.
//
// method - http method to invoke (post/put/get etc.)
// header - map of headers to include in request
// body - reader for any content to supply as request body, may be nil
//
func Fetch(ctx context.Context, method string, url string, header map[string]string, body io.Reader) ([]byte, error) {

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build request")
	}

	for key, value := range header {
		req.Header.Add(key, value)
	}

	res, err := newNetClient().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", url)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("network call to %s failed with response: %d", url, res.StatusCode)
	}

	respByte, err := io.ReadAll(io.LimitReader(res.Body, maxFetchBytes))
	if err != nil {
		return nil, errors.Wrap(err, "cannot read Fetch response")
	}

	return respByte, nil
}

// InfoLogger is satisfied by echo.Logger and *log.Logger.
type InfoLogger interface {
	Infof(format string, args ...interface{})
}

//
// small utility function embedded in major ops
// to log a performance indicator.
//
func TimeTrack(logger InfoLogger, start time.Time, name string) {
	elapsed := time.Since(start)
	logger.Infof("%s took %s", name, elapsed.Truncate(time.Millisecond).String())
}

//
// find an available tcp port
//
func AvailablePort() (int, error) {

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, errors.Wrap(err, "cannot acquire a tcp port")
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port, nil

}
