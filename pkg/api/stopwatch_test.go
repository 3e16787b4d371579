package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/psantana5/chrono/pkg/api"
	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/logging"
	"github.com/psantana5/chrono/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*mux.Router, *clock.Manual) {
	t.Helper()
	m := clock.NewManual(0)
	logger := logging.NewLogger(logging.ERROR, false)
	logger.SetOutput(io.Discard)

	handler := api.NewStopwatchHandler(registry.New(m), logger)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, m
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEntry(t *testing.T, w *httptest.ResponseRecorder) registry.Entry {
	t.Helper()
	var e registry.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), "body: %s", w.Body.String())
	return e
}

func TestStopwatchLifecycle(t *testing.T) {
	router, m := newRouter(t)

	w := do(router, "POST", "/stopwatches", `{"name":"transcode"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeEntry(t, w)
	assert.False(t, created.Running)

	w = do(router, "POST", "/stopwatches/"+created.ID+"/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEntry(t, w).Running)

	m.Advance(2_000_000)
	w = do(router, "POST", "/stopwatches/"+created.ID+"/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	stopped := decodeEntry(t, w)
	assert.False(t, stopped.Running)
	assert.Equal(t, int64(2_000_000), stopped.ElapsedTicks)
	assert.Equal(t, int64(2), stopped.ElapsedMS)

	w = do(router, "POST", "/stopwatches/"+created.ID+"/restart", "")
	require.Equal(t, http.StatusOK, w.Code)
	restarted := decodeEntry(t, w)
	assert.True(t, restarted.Running)
	assert.Zero(t, restarted.ElapsedTicks)

	w = do(router, "POST", "/stopwatches/"+created.ID+"/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeEntry(t, w).Running)

	w = do(router, "GET", "/stopwatches/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "transcode", decodeEntry(t, w).Name)

	w = do(router, "DELETE", "/stopwatches/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, "GET", "/stopwatches/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateErrors(t *testing.T) {
	router, _ := newRouter(t)

	w := do(router, "POST", "/stopwatches", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/stopwatches", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/stopwatches", `{"name":"a","start":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeEntry(t, w).Running)

	w = do(router, "POST", "/stopwatches", `{"name":"a"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnknownStopwatch(t *testing.T) {
	router, _ := newRouter(t)

	for _, path := range []string{"start", "stop", "reset", "restart"} {
		w := do(router, "POST", "/stopwatches/nope/"+path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := do(router, "DELETE", "/stopwatches/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAndHealth(t *testing.T) {
	router, _ := newRouter(t)

	for _, name := range []string{"b", "a"} {
		body, _ := json.Marshal(api.CreateRequest{Name: name})
		w := do(router, "POST", "/stopwatches", string(bytes.TrimSpace(body)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(router, "GET", "/stopwatches", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Stopwatches []registry.Entry `json:"stopwatches"`
		Count       int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "a", list.Stopwatches[0].Name)

	w = do(router, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(2), health["stopwatches"])
}
