package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/d4z3x/pingd/internal/config"
	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/watch"
	"github.com/d4z3x/pingd/internal/web"
	"github.com/gorilla/mux"
)

// Counter reports how many responses the ping listener has written.
type Counter interface {
	Served() int64
}

// NewRouter builds the management API. database and watcher may be nil when
// history or watching is disabled; metricsHandler may be nil to omit /metrics.
func NewRouter(database *db.DB, watcher *watch.Watcher, served Counter, metricsHandler http.Handler, cfg *config.Config) http.Handler {
	r := mux.NewRouter()

	sh := &statusHandlers{db: database, served: served, cfg: cfg, startTime: time.Now()}
	hh := &historyHandlers{db: database}
	wh := &watchHandlers{watcher: watcher}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Status
	api.HandleFunc("/status", sh.status).Methods("GET")

	// History
	api.HandleFunc("/history", hh.list).Methods("GET")
	api.HandleFunc("/hosts", hh.hosts).Methods("GET")
	api.HandleFunc("/stats", hh.stats).Methods("GET")

	// Watcher
	api.HandleFunc("/watch", wh.status).Methods("GET")

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	// Dashboard
	r.PathPrefix("/").Handler(web.Handler()).Methods("GET")

	return r
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
