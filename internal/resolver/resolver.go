// Package resolver provides DNS resolvers for the domain and MX stages.
// System uses the operating system's resolver; Nameserver queries an
// explicit list of DNS servers directly.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// System returns the operating system's resolver.
func System() *net.Resolver {
	return &net.Resolver{}
}

// Nameserver resolves names by querying the configured servers in order,
// failing over to the next server on transport errors.
// Errors are reported as *net.DNSError so callers handle both resolvers
// the same way.
type Nameserver struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
}

// NewNameserver creates a resolver for the given servers. A server
// without a port uses 53.
func NewNameserver(servers []string, timeout time.Duration) (*Nameserver, error) {
	if len(servers) == 0 {
		return nil, errors.New("resolver: no nameservers configured")
	}
	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		if s == "" {
			return nil, errors.New("resolver: empty nameserver address")
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		addrs = append(addrs, s)
	}
	return &Nameserver{
		servers: addrs,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}, nil
}

// Servers returns the normalised server addresses.
func (n *Nameserver) Servers() []string {
	return append([]string(nil), n.servers...)
}

// LookupMX returns the MX records of name. A domain that exists but has no
// MX records yields an empty slice and no error.
func (n *Nameserver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	resp, err := n.query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	var out []*net.MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	return out, nil
}

// LookupHost returns the IPv4 and IPv6 addresses of host.
func (n *Nameserver) LookupHost(ctx context.Context, host string) ([]string, error) {
	var addrs []string
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := n.query(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			switch r := rr.(type) {
			case *dns.A:
				addrs = append(addrs, r.A.String())
			case *dns.AAAA:
				addrs = append(addrs, r.AAAA.String())
			}
		}
	}
	if len(addrs) > 0 {
		return addrs, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

// query sends one question to each server in turn until one answers.
func (n *Nameserver) query(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range n.servers {
		if err := ctx.Err(); err != nil {
			return nil, &net.DNSError{Err: err.Error(), Name: name, Server: server, IsTimeout: true}
		}

		resp, _, err := n.udp.ExchangeContext(ctx, msg, server)
		if err == nil && resp.Truncated {
			resp, _, err = n.tcp.ExchangeContext(ctx, msg, server)
		}
		if err != nil {
			lastErr = &net.DNSError{
				Err:       err.Error(),
				Name:      name,
				Server:    server,
				IsTimeout: isTimeout(err),
			}
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			return resp, nil
		case dns.RcodeNameError:
			return nil, &net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true}
		default:
			lastErr = &net.DNSError{
				Err:         fmt.Sprintf("server misbehaving (%s)", dns.RcodeToString[resp.Rcode]),
				Name:        name,
				Server:      server,
				IsTemporary: true,
			}
		}
	}
	return nil, lastErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
