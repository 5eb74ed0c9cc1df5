package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/d4z3x/pingd/internal/config"
	"github.com/d4z3x/pingd/internal/db"
	"github.com/dustin/go-humanize"
)

type statusHandlers struct {
	db        *db.DB
	served    Counter
	cfg       *config.Config
	startTime time.Time
}

func (h *statusHandlers) status(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var served int64
	if h.served != nil {
		served = h.served.Served()
	}

	var recorded int64
	if h.db != nil {
		recorded, _ = h.db.ProbeCount()
	}

	data := map[string]interface{}{
		"uptime_seconds":  int(time.Since(h.startTime).Seconds()),
		"started":         humanize.Time(h.startTime),
		"prober":          h.cfg.Prober,
		"workers":         h.cfg.Workers,
		"listen_addr":     h.cfg.ListenAddr(),
		"requests_served": served,
		"history_enabled": h.db != nil,
		"probes_recorded": recorded,
		"watch_hosts":     len(h.cfg.WatchHosts),
		"goroutines":      runtime.NumGoroutine(),
		"memory":          humanize.Bytes(mem.Alloc),
	}
	jsonResponse(w, data, http.StatusOK)
}
