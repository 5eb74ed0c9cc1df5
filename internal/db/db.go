package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	SourceRequest = "request"
	SourceWatch   = "watch"

	DefaultHistoryLimit = 100
)

// --- Models ---

type ProbeRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Host      string    `gorm:"index;not null" json:"host"`
	Success   bool      `gorm:"not null" json:"success"`
	LatencyMs float64   `json:"latency_ms"`
	Source    string    `gorm:"not null;default:request" json:"source"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `gorm:"index" json:"checked_at"`
}

// NewRecord describes one probe outcome; err == nil means the host answered.
func NewRecord(host, source string, latency time.Duration, err error) *ProbeRecord {
	r := &ProbeRecord{
		Host:      host,
		Source:    source,
		Success:   err == nil,
		CheckedAt: time.Now(),
	}
	if err != nil {
		r.Error = err.Error()
	} else {
		r.LatencyMs = float64(latency) / float64(time.Millisecond)
	}
	return r
}

// --- Database ---

type DB struct {
	G     *gorm.DB
	limit int
}

// Open opens (or creates) the sqlite history file. historyLimit caps the rows
// kept per host; values below 1 use DefaultHistoryLimit.
func Open(path string, historyLimit int) (*DB, error) {
	g, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, _ := g.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := g.AutoMigrate(&ProbeRecord{}); err != nil {
		return nil, err
	}

	if historyLimit < 1 {
		historyLimit = DefaultHistoryLimit
	}
	return &DB{G: g, limit: historyLimit}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.G.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Probe records ---

func (d *DB) InsertProbe(r *ProbeRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now()
	}
	if err := d.G.Create(r).Error; err != nil {
		return err
	}
	// Trim to the newest d.limit rows for this host
	err := d.G.Exec(`DELETE FROM probe_records WHERE host = ? AND id NOT IN (SELECT id FROM probe_records WHERE host = ? ORDER BY checked_at DESC LIMIT ?)`, r.Host, r.Host, d.limit).Error
	if err != nil {
		return fmt.Errorf("trim history for %s: %w", r.Host, err)
	}
	return nil
}

// ListProbes returns the newest records first. An empty host lists every host.
func (d *DB) ListProbes(host string, limit int) ([]ProbeRecord, error) {
	var records []ProbeRecord
	q := d.G.Order("checked_at DESC")
	if host != "" {
		q = q.Where("host = ?", host)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}

func (d *DB) Hosts() ([]string, error) {
	var hosts []string
	err := d.G.Model(&ProbeRecord{}).Distinct().Order("host").Pluck("host", &hosts).Error
	return hosts, err
}

// Latencies returns the latency of every successful probe of host.
func (d *DB) Latencies(host string) ([]float64, error) {
	var out []float64
	err := d.G.Model(&ProbeRecord{}).Where("host = ? AND success = ?", host, true).Pluck("latency_ms", &out).Error
	return out, err
}

// --- Counts ---

func (d *DB) ProbeCount() (int64, error) {
	var count int64
	err := d.G.Model(&ProbeRecord{}).Count(&count).Error
	return count, err
}

func (d *DB) FailureCount(host string) (int64, error) {
	var count int64
	err := d.G.Model(&ProbeRecord{}).Where("host = ? AND success = ?", host, false).Count(&count).Error
	return count, err
}
