package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// TCPProber measures the time to complete a TCP handshake, trying each port
// in order until one accepts. Useful where ICMP is filtered.
type TCPProber struct {
	Ports  []string
	Dialer *net.Dialer
}

func (p *TCPProber) Probe(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	if len(p.Ports) == 0 {
		return 0, fmt.Errorf("tcp %s: no ports configured", host)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := p.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	var errs []error
	for _, port := range p.Ports {
		start := time.Now()
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
		if err == nil {
			rtt := time.Since(start)
			conn.Close()
			return rtt, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("tcp %s: %w: %w", host, ErrNoReply, errors.Join(errs...))
}
