package check_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/optimode/emailprobe/internal/smtpprobe"
)

// acceptingDialer returns a dialer whose connections are served by an
// in-memory SMTP server that accepts every recipient.
func acceptingDialer(t *testing.T) smtpprobe.DialFunc {
	t.Helper()
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer func() { _ = server.Close() }()
			_, _ = fmt.Fprint(server, "220 mx.example.com ESMTP\r\n")
			r := bufio.NewReader(server)
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if strings.HasPrefix(line, "QUIT") {
					_, _ = fmt.Fprint(server, "221 Bye\r\n")
					return
				}
				_, _ = fmt.Fprint(server, "250 OK\r\n")
			}
		}()
		return client, nil
	}
}
