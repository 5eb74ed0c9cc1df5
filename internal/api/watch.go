package api

import (
	"net/http"

	"github.com/d4z3x/pingd/internal/watch"
)

type watchHandlers struct {
	watcher *watch.Watcher
}

func (h *watchHandlers) status(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		jsonResponse(w, map[string]interface{}{"enabled": false}, http.StatusOK)
		return
	}
	jsonResponse(w, map[string]interface{}{
		"enabled": true,
		"hosts":   h.watcher.Hosts(),
		"results": h.watcher.Last(),
	}, http.StatusOK)
}
