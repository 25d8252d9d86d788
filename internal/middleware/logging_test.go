package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogTransportRecordsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	client := &http.Client{Transport: LogTransport(logger, nil)}

	resp, err := client.Get(srv.URL + "/api/games")
	require.NoError(t, err)
	resp.Body.Close()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "GET", entry.Data["method"])
	assert.Equal(t, "/api/games", entry.Data["path"])
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
}

func TestLogTransportRecordsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client := &http.Client{Transport: LogTransport(logger, failing)}

	_, err := client.Get("http://127.0.0.1:1/api/games")
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.NotNil(t, entry.Data["error"])
}

func TestLogWebSocketLines(t *testing.T) {
	logger, hook := test.NewNullLogger()
	LogWebSocketConnect(logger, "ws://h/ws/AB12CD/alice", 2)
	LogWebSocketDisconnect(logger, "ws://h/ws/AB12CD/alice", 1006, errors.New("eof"))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WebSocket connected", entries[0].Message)
	assert.Equal(t, 2, entries[0].Data["attempt"])
	assert.Equal(t, 1006, entries[1].Data["code"])
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "/state", entry.Data["path"])
	assert.Equal(t, http.StatusServiceUnavailable, entry.Data["status"])
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
