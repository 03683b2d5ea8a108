// Package smtpprobe asks a single mail exchanger whether it would accept
// mail for a recipient. It runs HELO, MAIL FROM and RCPT TO over a fresh
// connection and never sends DATA. Each call opens and tears down its own
// connection.
package smtpprobe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxReplyLineLen = 2048
	maxReplyLines   = 100
)

// DialFunc opens a connection to address.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config configures a probe.
type Config struct {
	HeloIdentity  string
	SenderAddress string
	Port          string        // default "25"
	StepTimeout   time.Duration // deadline for connect and for each command/reply, default 10s
	QuitGrace     time.Duration // time allowed for QUIT before the socket is closed, default 2s
	Dial          DialFunc      // default net.Dialer.DialContext
	Logger        logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = "25"
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = 10 * time.Second
	}
	if c.QuitGrace <= 0 {
		c.QuitGrace = 2 * time.Second
	}
	if c.Dial == nil {
		c.Dial = (&net.Dialer{}).DialContext
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// ProtocolError reports a reply that does not follow SMTP framing.
type ProtocolError struct {
	Line   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed reply (%s): %q", e.Reason, e.Line)
}

// Probe runs one attempt against host. It never returns an error: every
// failure is folded into the outcome. The connection is closed before
// Probe returns, and is force-closed as soon as ctx is done.
func Probe(ctx context.Context, cfg Config, host, recipient string) Outcome {
	cfg = cfg.withDefaults()
	log := cfg.Logger.WithFields(logrus.Fields{"mx": host, "rcpt": recipient})

	address := net.JoinHostPort(host, cfg.Port)
	dialCtx, cancel := context.WithTimeout(ctx, cfg.StepTimeout)
	conn, err := cfg.Dial(dialCtx, "tcp", address)
	cancel()
	if err != nil {
		out := transportFailure(ctx, host, "connect", StateGreeting, err)
		log.WithError(err).Debug("smtp connect failed")
		return out
	}

	s := &session{
		cfg:    cfg,
		host:   host,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		state:  StateGreeting,
		log:    log,
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer s.close()

	out := s.run(ctx, recipient)
	log.WithFields(logrus.Fields{"verdict": out.Verdict, "code": out.Code}).Debug(out.Message)
	return out
}

type session struct {
	cfg    Config
	host   string
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	state  State
	broken bool // transport failed, skip QUIT
	log    *logrus.Entry
}

func (s *session) run(ctx context.Context, recipient string) Outcome {
	for {
		if err := s.setStepDeadline(ctx); err != nil {
			return s.fail(ctx, err)
		}
		if cmd := s.command(recipient); cmd != "" {
			if err := s.writeLine(cmd); err != nil {
				return s.fail(ctx, err)
			}
		}
		reply, err := readReply(s.reader)
		if err != nil {
			return s.fail(ctx, err)
		}
		s.log.Debugf("<<< %s", reply)

		next, out := Step(s.state, reply)
		if out != nil {
			out.Host = s.host
			return *out
		}
		s.state = next
	}
}

// command returns the line to send before reading the reply for the
// current state. The greeting is read without sending anything.
func (s *session) command(recipient string) string {
	switch s.state {
	case StateHelo:
		return "HELO " + s.cfg.HeloIdentity
	case StateMailFrom:
		return "MAIL FROM:<" + s.cfg.SenderAddress + ">"
	case StateRcptTo:
		return "RCPT TO:<" + recipient + ">"
	}
	return ""
}

func (s *session) setStepDeadline(ctx context.Context) error {
	dl := time.Now().Add(s.cfg.StepTimeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		dl = ctxDL
	}
	return s.conn.SetDeadline(dl)
}

func (s *session) writeLine(line string) error {
	s.log.Debugf(">>> %s", line)
	if _, err := s.writer.WriteString(line + "\r\n"); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *session) fail(ctx context.Context, err error) Outcome {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		// the stream is out of sync, QUIT would not be understood
		s.broken = true
		return Outcome{
			Verdict: VerdictFailed,
			Host:    s.host,
			State:   s.state,
			Message: fmt.Sprintf("protocol error during %s on %s: %v", s.state, s.host, err),
		}
	}
	s.broken = true
	return transportFailure(ctx, s.host, s.state.String(), s.state, err)
}

// close sends QUIT within the grace period and closes the connection.
func (s *session) close() {
	if !s.broken {
		_ = s.conn.SetDeadline(time.Now().Add(s.cfg.QuitGrace))
		if err := s.writeLine("QUIT"); err == nil {
			_, _ = readReply(s.reader)
		}
	}
	_ = s.conn.Close()
}

func transportFailure(ctx context.Context, host, phase string, state State, err error) Outcome {
	kind := describe(err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// the socket was closed under us because the context ended
		kind = describe(ctxErr)
		err = ctxErr
	}
	return Outcome{
		Verdict: VerdictFailed,
		Host:    host,
		State:   state,
		Message: fmt.Sprintf("%s during %s on %s: %v", kind, phase, host, err),
	}
}

// describe names the transport failure class for diagnostics.
func describe(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return "connection reset"
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed):
		return "connection closed unexpectedly"
	}
	return "connection error"
}

// readReply reads a complete SMTP reply. Continuation lines ("250-...")
// are consumed until the final line ("250 ..."), and every line must carry
// the same code.
func readReply(r *bufio.Reader) (Reply, error) {
	var reply Reply
	for {
		line, err := readLine(r)
		if err != nil {
			return Reply{}, err
		}
		if len(line) < 3 {
			return Reply{}, &ProtocolError{Line: line, Reason: "line too short"}
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil || code < 100 || code > 599 {
			return Reply{}, &ProtocolError{Line: line, Reason: "invalid reply code"}
		}
		if len(reply.Lines) > 0 && code != reply.Code {
			return Reply{}, &ProtocolError{Line: line, Reason: "reply code changed inside multi-line reply"}
		}
		reply.Code = code

		final := true
		text := ""
		if len(line) > 3 {
			switch line[3] {
			case '-':
				final = false
			case ' ':
			default:
				return Reply{}, &ProtocolError{Line: line, Reason: "bad separator after reply code"}
			}
			text = line[4:]
		}
		reply.Lines = append(reply.Lines, text)

		if final {
			return reply, nil
		}
		if len(reply.Lines) >= maxReplyLines {
			return Reply{}, &ProtocolError{Line: line, Reason: "too many continuation lines"}
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		b.Write(chunk)
		if b.Len() > maxReplyLineLen {
			return "", &ProtocolError{Line: b.String()[:64], Reason: "line too long"}
		}
		if !isPrefix {
			return b.String(), nil
		}
	}
}
