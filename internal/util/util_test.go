package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"rows":[]}`)
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), http.MethodGet, srv.URL+"/predictions", map[string]string{"Accept": "application/json"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[]}`, string(body))

	_, err = Fetch(context.Background(), http.MethodGet, srv.URL+"/missing", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGenerateNameAndID(t *testing.T) {
	assert.GreaterOrEqual(t, len(GenerateName()), 5)

	a, b := GenerateID(), GenerateID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

type recordingLogger struct{ lines []string }

func (r *recordingLogger) Infof(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestTimeTrack(t *testing.T) {
	rl := &recordingLogger{}
	TimeTrack(rl, time.Now(), "calibrate")
	require.Len(t, rl.lines, 1)
	assert.True(t, strings.HasPrefix(rl.lines[0], "calibrate took "))
}

func TestAvailablePort(t *testing.T) {
	port, err := AvailablePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}
