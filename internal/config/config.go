package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProberExec = "exec"
	ProberICMP = "icmp"
	ProberTCP  = "tcp"
)

type Config struct {
	// Ping listener
	BindAddr    string
	Port        int
	ReadTimeout time.Duration
	Workers     int

	// Management API
	AdminAddr         string
	AdminUser         string
	AdminPasswordHash string

	// Database
	DBPath       string
	HistoryLimit int

	// Probing
	Prober         string
	PingCommand    string
	ICMPPrivileged bool
	TCPPorts       []string
	ProbeTimeout   time.Duration
	DefaultHost    string
	ProbeRate      float64
	ProbeBurst     int

	// Watcher
	WatchHosts    []string
	WatchSchedule string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BindAddr:    envOr("BIND_ADDR", "0.0.0.0"),
		Port:        envInt("PORT", 8080),
		ReadTimeout: envDuration("READ_TIMEOUT", 10*time.Second),
		Workers:     envInt("WORKERS", 1),

		AdminAddr:         envOff("ADMIN_ADDR", ":8081"),
		AdminUser:         os.Getenv("ADMIN_USER"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		DBPath:       envOff("DB_PATH", "pingd.db"),
		HistoryLimit: envInt("HISTORY_LIMIT", 100),

		Prober:         strings.ToLower(envOr("PROBER", ProberExec)),
		PingCommand:    envOr("PING_COMMAND", "ping"),
		ICMPPrivileged: envBool("ICMP_PRIVILEGED"),
		TCPPorts:       envListOr("TCP_PORTS", []string{"443", "80"}),
		ProbeTimeout:   envDuration("PROBE_TIMEOUT", time.Second),
		DefaultHost:    envOr("DEFAULT_HOST", "8.8.8.8"),
		ProbeRate:      envFloat("PROBE_RATE", 0),
		ProbeBurst:     envInt("PROBE_BURST", 1),

		WatchHosts:    envList("WATCH_HOSTS"),
		WatchSchedule: envOr("WATCH_SCHEDULE", "@every 1m"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "console"),
		LogFile:   os.Getenv("LOG_FILE"),
	}
}

// ListenAddr is the host:port the ping listener binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, strconv.Itoa(c.Port))
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	switch c.Prober {
	case ProberExec, ProberICMP:
	case ProberTCP:
		if len(c.TCPPorts) == 0 {
			return fmt.Errorf("TCP_PORTS must not be empty")
		}
		for _, p := range c.TCPPorts {
			if n, err := strconv.Atoi(p); err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("invalid TCP_PORTS entry %q", p)
			}
		}
	default:
		return fmt.Errorf("unknown PROBER %q (want %s, %s or %s)", c.Prober, ProberExec, ProberICMP, ProberTCP)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive, got %s", c.ProbeTimeout)
	}
	if (c.AdminUser == "") != (c.AdminPasswordHash == "") {
		return fmt.Errorf("ADMIN_USER and ADMIN_PASSWORD_HASH must be set together")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOff is envOr, except that the value "off" yields an empty string.
func envOff(key, fallback string) string {
	v := envOr(key, fallback)
	if strings.EqualFold(v, "off") {
		return ""
	}
	return v
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return strings.EqualFold(v, "true") || v == "1"
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envListOr(key string, fallback []string) []string {
	if l := envList(key); len(l) > 0 {
		return l
	}
	return fallback
}
