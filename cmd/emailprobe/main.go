// Command emailprobe validates email addresses and prints one result per
// address as they complete.
//
//	emailprobe [-env FILE] [-in FILE] [-format json|text] [address ...]
//
// Addresses come from the arguments, from -in, or from standard input, one
// per line. Settings are read from EMAILPROBE_* environment variables and
// an optional .env file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe"
	"github.com/optimode/emailprobe/internal/config"
)

func main() {
	envFile := flag.String("env", "", "load settings from this .env file")
	inFile := flag.String("in", "", "read addresses from this file, one per line")
	format := flag.String("format", "json", "output format: json or text")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.Fatalf("config: %s", err)
	}

	ll, err := logrus.ParseLevel(cfg.Logger.LogLevel)
	if err != nil {
		ll = logrus.InfoLevel
	}
	logrus.SetLevel(ll)
	logrus.SetOutput(os.Stderr)

	emails, err := readAddresses(flag.Args(), *inFile, os.Stdin)
	if err != nil {
		logrus.Fatalf("read addresses: %s", err)
	}
	if len(emails) == 0 {
		logrus.Fatal("no addresses given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v := emailprobe.New(cfg.Probe).WithLogger(logrus.StandardLogger())
	items, err := v.ValidateBatch(ctx, emails, cfg.Batch)
	if err != nil {
		logrus.Fatalf("validate: %s", err)
	}

	write := writeJSON(os.Stdout)
	if *format == "text" {
		write = writeText(os.Stdout)
	}
	failed := 0
	for item := range items {
		if item.Err != nil {
			failed++
			logrus.WithField("email", item.Email).Warnf("validation did not complete: %s", item.Err)
		}
		write(item)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func readAddresses(args []string, inFile string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	r := stdin
	if inFile != "" {
		f, err := os.Open(inFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

type output struct {
	Email  string             `json:"email"`
	Result *emailprobe.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func writeJSON(w io.Writer) func(emailprobe.BatchItem) {
	enc := json.NewEncoder(w)
	return func(item emailprobe.BatchItem) {
		l := output{Email: item.Email}
		if item.Err != nil {
			l.Error = item.Err.Error()
		} else {
			l.Result = &item.Result
		}
		if err := enc.Encode(l); err != nil {
			logrus.Errorf("write result: %s", err)
		}
	}
}

func writeText(w io.Writer) func(emailprobe.BatchItem) {
	colors := map[emailprobe.Status]*color.Color{
		emailprobe.StatusValid:   color.New(color.FgGreen),
		emailprobe.StatusRisky:   color.New(color.FgYellow),
		emailprobe.StatusInvalid: color.New(color.FgRed),
		emailprobe.StatusUnknown: color.New(color.FgWhite),
	}
	return func(item emailprobe.BatchItem) {
		if item.Err != nil {
			_, _ = color.New(color.FgMagenta).Fprintf(w, "%-40s error   %s\n", item.Email, item.Err)
			return
		}
		r := item.Result
		c := colors[r.Status]
		if c == nil {
			c = colors[emailprobe.StatusUnknown]
		}
		_, _ = c.Fprintf(w, "%-40s %-7s %3d  %s", r.Email, r.Status, r.Score, r.Reason)
		if r.Suggestion != "" {
			_, _ = fmt.Fprintf(w, " (did you mean %s?)", r.Suggestion)
		}
		_, _ = fmt.Fprintln(w)
	}
}
