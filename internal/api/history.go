package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/d4z3x/pingd/internal/stats"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type historyHandlers struct {
	db *db.DB
}

type statsResponse struct {
	Host      string        `json:"host"`
	Successes int           `json:"successes"`
	Failures  int64         `json:"failures"`
	Latency   stats.Summary `json:"latency"`
}

func (h *historyHandlers) list(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonError(w, "history disabled", http.StatusServiceUnavailable)
		return
	}

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	host := query.Get("host")
	if query.Has("host") && !probe.ValidHost(host) {
		jsonError(w, "invalid host", http.StatusBadRequest)
		return
	}

	limit := defaultHistoryLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.db.ListProbes(host, limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []db.ProbeRecord{}
	}
	jsonResponse(w, records, http.StatusOK)
}

// hosts lists every host with at least one stored record.
func (h *historyHandlers) hosts(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonError(w, "history disabled", http.StatusServiceUnavailable)
		return
	}

	hosts, err := h.db.Hosts()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if hosts == nil {
		hosts = []string{}
	}
	jsonResponse(w, hosts, http.StatusOK)
}

func (h *historyHandlers) stats(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonError(w, "history disabled", http.StatusServiceUnavailable)
		return
	}

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	host := query.Get("host")
	if !query.Has("host") {
		jsonError(w, "host parameter required", http.StatusBadRequest)
		return
	}
	if !probe.ValidHost(host) {
		jsonError(w, "invalid host", http.StatusBadRequest)
		return
	}

	latencies, err := h.db.Latencies(host)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	failures, err := h.db.FailureCount(host)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, statsResponse{
		Host:      host,
		Successes: len(latencies),
		Failures:  failures,
		Latency:   stats.Summarize(latencies),
	}, http.StatusOK)
}

// parseQuery rejects query strings that net/url would otherwise parse
// partially, such as pairs containing ';'.
func parseQuery(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		jsonError(w, "invalid query", http.StatusBadRequest)
		return nil, false
	}
	return query, true
}
