package emailprobe_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe"
)

// fakeDNS answers from fixed tables. Unknown names are NXDOMAIN.
type fakeDNS struct {
	hosts   map[string][]string
	mx      map[string][]*net.MX
	panicOn string
}

func (f *fakeDNS) LookupHost(_ context.Context, host string) ([]string, error) {
	if host == f.panicOn {
		panic("resolver exploded on " + host)
	}
	if addrs, ok := f.hosts[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func (f *fakeDNS) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if mx, ok := f.mx[name]; ok {
		return mx, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

// withDomain registers a resolvable domain with the given MX hosts, the
// first one at priority 10.
func (f *fakeDNS) withDomain(domain string, mxHosts ...string) *fakeDNS {
	if f.hosts == nil {
		f.hosts = map[string][]string{}
		f.mx = map[string][]*net.MX{}
	}
	f.hosts[domain] = []string{"192.0.2.1"}
	records := []*net.MX{}
	for i, h := range mxHosts {
		records = append(records, &net.MX{Host: h + ".", Pref: uint16(10 * (i + 1))})
	}
	f.mx[domain] = records
	return f
}

// fakeMX plays the mail exchangers. rcpt maps a host to its RCPT TO
// reply; hosts missing from the map refuse connections.
type fakeMX struct {
	mu     sync.Mutex
	rcpt   map[string]string
	dialed []string
}

func (f *fakeMX) dial(_ context.Context, _, address string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.dialed = append(f.dialed, host)
	reply, ok := f.rcpt[host]
	f.mu.Unlock()

	if !ok {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}
	client, server := net.Pipe()
	go serveSMTP(server, reply)
	return client, nil
}

func (f *fakeMX) hosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dialed...)
}

func serveSMTP(conn net.Conn, rcptReply string) {
	defer func() { _ = conn.Close() }()
	if _, err := fmt.Fprint(conn, "220 mx.test ESMTP\r\n"); err != nil {
		return
	}
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		resp := "500 unrecognised command"
		switch {
		case strings.HasPrefix(line, "HELO"), strings.HasPrefix(line, "MAIL FROM"):
			resp = "250 OK"
		case strings.HasPrefix(line, "RCPT TO"):
			resp = rcptReply
		case strings.HasPrefix(line, "QUIT"):
			_, _ = fmt.Fprint(conn, "221 Bye\r\n")
			return
		}
		if _, err := fmt.Fprintf(conn, "%s\r\n", resp); err != nil {
			return
		}
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() emailprobe.Config {
	return emailprobe.Config{
		HeloIdentity:  "verify.test.com",
		SenderAddress: "verify@test.com",
		RetryAttempts: 1,
		RetryBackoff:  10 * time.Millisecond,
	}
}

func newValidator(cfg emailprobe.Config, dns *fakeDNS, mx *fakeMX) *emailprobe.Validator {
	v := emailprobe.New(cfg).WithResolver(dns).WithLogger(quietLogger())
	if mx != nil {
		v = v.WithDialer(mx.dial)
	}
	return v
}
