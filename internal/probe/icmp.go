package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

var echoPayload = []byte("pingd-echo")

// ICMPProber sends a single ICMP echo request without shelling out.
//
// Unprivileged mode uses a datagram ICMP socket ("udp4"), which Linux allows
// for groups listed in net.ipv4.ping_group_range. The kernel rewrites the
// echo identifier there, so replies are matched on sequence number only.
// Privileged mode opens a raw "ip4:icmp" socket and needs CAP_NET_RAW.
type ICMPProber struct {
	Privileged bool
	Resolver   *net.Resolver

	seq atomic.Uint32
}

func (p *ICMPProber) Probe(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ip, err := p.resolve(ctx, host)
	if err != nil {
		return 0, err
	}

	network := "udp4"
	var dst net.Addr = &net.UDPAddr{IP: ip}
	if p.Privileged {
		network = "ip4:icmp"
		dst = &net.IPAddr{IP: ip}
	}

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return 0, fmt.Errorf("icmp listen %s: %w", network, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, err
	}

	id := os.Getpid() & 0xffff
	seq := int(p.seq.Add(1) & 0xffff)
	wb, err := echoRequest(id, seq)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return 0, fmt.Errorf("icmp write to %s: %w", ip, err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrNoReply, host, err)
		}
		if !addrIP(peer).Equal(ip) {
			continue
		}
		if isEchoReply(rb[:n], id, seq, !p.Privileged) {
			return time.Since(start), nil
		}
	}
}

func (p *ICMPProber) resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoIPv4, host)
	}

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoIPv4, host)
}

func echoRequest(id, seq int) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: echoPayload},
	}
	return msg.Marshal(nil)
}

// isEchoReply reports whether b is the reply to the echo (id, seq).
func isEchoReply(b []byte, id, seq int, ignoreID bool) bool {
	m, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), b)
	if err != nil || m.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	echo, ok := m.Body.(*icmp.Echo)
	if !ok || echo.Seq != seq {
		return false
	}
	return ignoreID || echo.ID == id
}

func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.UDPAddr:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
