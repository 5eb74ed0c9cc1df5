package probe

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// execGrace is added on top of the probe timeout before the child is killed,
// so ping normally gets to report its own timeout first.
const execGrace = 2 * time.Second

var latencyRe = regexp.MustCompile(`time=([0-9]+\.?[0-9]*)\s*ms`)

// ExecProber runs the system ping utility once per probe. The host is passed
// as a single argv entry; no shell is involved.
type ExecProber struct {
	Command string
}

func (p *ExecProber) command() string {
	if p.Command == "" {
		return "ping"
	}
	return p.Command
}

func (p *ExecProber) Probe(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+execGrace)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command(), pingArgs(host, timeout)...)
	cmd.Stderr = io.Discard

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrNoReply, p.command(), host, err)
	}
	return ParseLatency(out)
}

// pingArgs asks for one packet and a whole-second reply wait of at least 1s.
func pingArgs(host string, timeout time.Duration) []string {
	wait := int(math.Ceil(timeout.Seconds()))
	if wait < 1 {
		wait = 1
	}
	return []string{"-c", "1", "-W", strconv.Itoa(wait), host}
}

// ParseLatency extracts the first "time=<n> ms" figure from ping output.
func ParseLatency(out []byte) (time.Duration, error) {
	m := latencyRe.FindSubmatch(out)
	if m == nil {
		return 0, ErrUnparseable
	}
	ms, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}
