package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/d4z3x/pingd/internal/config"
	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/d4z3x/pingd/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int64

func (c fixedCounter) Served() int64 { return int64(c) }

func testConfig() *config.Config {
	return &config.Config{BindAddr: "0.0.0.0", Port: 8080, Prober: config.ProberExec, Workers: 1}
}

func seededDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "api.db"), 100)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	for _, ms := range []int{10, 20, 30} {
		require.NoError(t, d.InsertProbe(db.NewRecord("8.8.8.8", db.SourceRequest, time.Duration(ms)*time.Millisecond, nil)))
	}
	require.NoError(t, d.InsertProbe(db.NewRecord("8.8.8.8", db.SourceRequest, 0, errors.New("no echo reply"))))
	require.NoError(t, d.InsertProbe(db.NewRecord("1.1.1.1", db.SourceWatch, 5*time.Millisecond, nil)))
	return d
}

func serve(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestStatus(t *testing.T) {
	h := NewRouter(seededDB(t), nil, fixedCounter(7), nil, testConfig())

	rec, body := serve(t, h, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.EqualValues(t, 7, body["requests_served"])
	assert.EqualValues(t, 5, body["probes_recorded"])
	assert.Equal(t, true, body["history_enabled"])
	assert.Equal(t, "exec", body["prober"])
	assert.Equal(t, "0.0.0.0:8080", body["listen_addr"])
	assert.NotEmpty(t, body["started"])
}

func TestHistory(t *testing.T) {
	h := NewRouter(seededDB(t), nil, fixedCounter(0), nil, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?host=8.8.8.8&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []db.ProbeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "8.8.8.8", r.Host)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 5)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?host=nobody.example", nil))
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHosts(t *testing.T) {
	h := NewRouter(seededDB(t), nil, fixedCounter(0), nil, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hosts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var hosts []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hosts))
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, hosts)
}

func TestHistoryBadInput(t *testing.T) {
	h := NewRouter(seededDB(t), nil, fixedCounter(0), nil, testConfig())

	tests := []struct {
		target string
		msg    string
	}{
		{"/api/v1/history?limit=0", "invalid limit"},
		{"/api/v1/history?limit=ten", "invalid limit"},
		{"/api/v1/history?host=a;b", "invalid query"},
		{"/api/v1/history?limit=5;drop", "invalid query"},
		{"/api/v1/history?host=", "invalid host"},
		{"/api/v1/stats", "host parameter required"},
		{"/api/v1/stats?host=", "invalid host"},
		{"/api/v1/stats?host=a;b", "invalid query"},
		{"/api/v1/stats?host=a|b", "invalid host"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, body := serve(t, h, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestStats(t *testing.T) {
	h := NewRouter(seededDB(t), nil, fixedCounter(0), nil, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats?host=8.8.8.8", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "8.8.8.8", got.Host)
	assert.Equal(t, 3, got.Successes)
	assert.EqualValues(t, 1, got.Failures)
	assert.Equal(t, 10.0, got.Latency.Min)
	assert.Equal(t, 30.0, got.Latency.Max)
	assert.Equal(t, 20.0, got.Latency.Mean)
	assert.Equal(t, 20.0, got.Latency.P50)
}

func TestHistoryDisabled(t *testing.T) {
	h := NewRouter(nil, nil, fixedCounter(0), nil, testConfig())

	for _, target := range []string{"/api/v1/history", "/api/v1/hosts", "/api/v1/stats?host=8.8.8.8"} {
		rec, body := serve(t, h, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Equal(t, "history disabled", body["error"])
	}

	_, body := serve(t, h, "/api/v1/status")
	assert.Equal(t, false, body["history_enabled"])
}

func TestWatch(t *testing.T) {
	h := NewRouter(nil, nil, fixedCounter(0), nil, testConfig())
	_, body := serve(t, h, "/api/v1/watch")
	assert.Equal(t, false, body["enabled"])

	w := watch.New([]string{"up.example"}, probe.ProberFunc(func(context.Context, string, time.Duration) (time.Duration, error) {
		return 2 * time.Millisecond, nil
	}), time.Second, nil, nil)
	w.CheckAll()

	h = NewRouter(nil, w, fixedCounter(0), nil, testConfig())
	_, body = serve(t, h, "/api/v1/watch")
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, []interface{}{"up.example"}, body["hosts"])
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, true, results[0].(map[string]interface{})["success"])
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pingd_requests_total 1\n"))
	})

	rec, _ := serve(t, NewRouter(nil, nil, fixedCounter(0), metrics, testConfig()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pingd_requests_total")

	rec, _ = serve(t, NewRouter(nil, nil, fixedCounter(0), nil, testConfig()), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewRouter(nil, nil, fixedCounter(0), nil, testConfig())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDashboard(t *testing.T) {
	h := NewRouter(nil, nil, fixedCounter(0), nil, testConfig())

	rec, _ := serve(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>pingd</title>")

	rec, _ = serve(t, h, "/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/status")
}
