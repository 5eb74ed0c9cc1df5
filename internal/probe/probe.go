// Package probe measures round-trip latency to a host.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/d4z3x/pingd/internal/config"
)

const (
	DefaultHost = "8.8.8.8"
	MaxHostLen  = 255
)

var (
	ErrNoReply     = errors.New("no echo reply")
	ErrUnparseable = errors.New("latency not found in ping output")
	ErrNoIPv4      = errors.New("host has no IPv4 address")
)

// Prober sends one echo request to host and reports the round-trip time.
// Implementations must give up once timeout has elapsed.
type Prober interface {
	Probe(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)
}

type ProberFunc func(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)

func (f ProberFunc) Probe(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	return f(ctx, host, timeout)
}

// ValidHost accepts 1-255 bytes of ASCII letters, digits, '.' and '-'. It
// is an allowlist against shell metacharacters, not a DNS check.
func ValidHost(host string) bool {
	if len(host) == 0 || len(host) > MaxHostLen {
		return false
	}
	for i := 0; i < len(host); i++ {
		c := host[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}

// FromConfig builds the prober selected by cfg.Prober.
func FromConfig(cfg *config.Config) (Prober, error) {
	switch cfg.Prober {
	case config.ProberExec, "":
		return &ExecProber{Command: cfg.PingCommand}, nil
	case config.ProberICMP:
		return &ICMPProber{Privileged: cfg.ICMPPrivileged}, nil
	case config.ProberTCP:
		return &TCPProber{Ports: cfg.TCPPorts}, nil
	default:
		return nil, fmt.Errorf("unknown prober %q", cfg.Prober)
	}
}

// Millis marshals as a JSON number with exactly two decimals.
type Millis float64

func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(m), 'f', 2, 64), nil
}

func ToMillis(d time.Duration) Millis {
	return Millis(float64(d) / float64(time.Millisecond))
}

// Result is the body of a successful ping.
type Result struct {
	Host      string `json:"host"`
	LatencyMs Millis `json:"latency_ms"`
}

func NewResult(host string, latency time.Duration) Result {
	return Result{Host: host, LatencyMs: ToMillis(latency)}
}
