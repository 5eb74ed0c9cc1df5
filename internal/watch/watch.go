package watch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// History receives one record per watched probe.
type History interface {
	InsertProbe(r *db.ProbeRecord) error
}

type Result struct {
	Host      string    `json:"host"`
	Success   bool      `json:"success"`
	LatencyMs float64   `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Watcher probes a fixed list of hosts on a cron schedule and keeps the last
// result for each.
type Watcher struct {
	hosts   []string
	prober  probe.Prober
	timeout time.Duration
	history History
	logger  *zap.Logger

	cron    *cron.Cron
	initial sync.WaitGroup

	mu   sync.RWMutex
	last map[string]Result
}

// New drops hosts that fail probe.ValidHost. history and logger may be nil.
func New(hosts []string, prober probe.Prober, timeout time.Duration, history History, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	var valid []string
	seen := make(map[string]bool)
	for _, h := range hosts {
		if !probe.ValidHost(h) {
			logger.Warn("skipping invalid watch host", zap.String("host", h))
			continue
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		valid = append(valid, h)
	}

	return &Watcher{
		hosts:   valid,
		prober:  prober,
		timeout: timeout,
		history: history,
		logger:  logger,
		last:    make(map[string]Result),
	}
}

// Start runs one round immediately in the background, then one per schedule
// tick. schedule uses the standard five-field cron syntax or descriptors such
// as "@every 30s".
func (w *Watcher) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, w.CheckAll); err != nil {
		return fmt.Errorf("watch schedule %q: %w", schedule, err)
	}
	w.cron = c

	w.initial.Add(1)
	go func() {
		defer w.initial.Done()
		w.CheckAll()
	}()
	c.Start()
	return nil
}

// Stop halts the schedule and waits for running rounds, including the one
// Start launched, to finish.
func (w *Watcher) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.initial.Wait()
}

func (w *Watcher) Hosts() []string {
	return append([]string(nil), w.hosts...)
}

// CheckAll probes every host concurrently and returns when all are done.
func (w *Watcher) CheckAll() {
	var wg sync.WaitGroup
	for _, host := range w.hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			w.check(host)
		}(host)
	}
	wg.Wait()
}

func (w *Watcher) check(host string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout+5*time.Second)
	defer cancel()

	latency, err := w.prober.Probe(ctx, host, w.timeout)
	rec := db.NewRecord(host, db.SourceWatch, latency, err)
	if err != nil {
		w.logger.Info("watched host unreachable", zap.String("host", host), zap.Error(err))
	}

	w.mu.Lock()
	w.last[host] = Result{
		Host:      host,
		Success:   rec.Success,
		LatencyMs: rec.LatencyMs,
		Error:     rec.Error,
		CheckedAt: rec.CheckedAt,
	}
	w.mu.Unlock()

	if w.history == nil {
		return
	}
	if err := w.history.InsertProbe(rec); err != nil {
		w.logger.Error("recording watch probe failed", zap.String("host", host), zap.Error(err))
	}
}

// Last returns the latest result per host, sorted by host. Hosts not yet
// probed are omitted.
func (w *Watcher) Last() []Result {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Result, 0, len(w.last))
	for _, r := range w.last {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}
