// Package config reads the command line tool's settings from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/optimode/emailprobe"
)

type Config struct {
	Probe  emailprobe.Config
	Batch  emailprobe.BatchOptions
	Logger struct {
		LogLevel string
	}
}

// Load reads envFile into the environment, without overriding variables
// that are already set, and then builds the Config. An empty envFile
// loads ./.env if it exists.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	return New()
}

// New builds the Config from the environment. Unset variables keep the
// library defaults.
func New() (*Config, error) {
	cfg := &Config{}
	p := &parser{}

	cfg.Probe.HeloIdentity = os.Getenv("EMAILPROBE_HELO")
	cfg.Probe.SenderAddress = os.Getenv("EMAILPROBE_SENDER")
	cfg.Probe.Port = os.Getenv("EMAILPROBE_PORT")
	cfg.Probe.ProxyURL = os.Getenv("EMAILPROBE_PROXY")
	cfg.Probe.Nameservers = splitList(os.Getenv("EMAILPROBE_NAMESERVERS"))

	cfg.Probe.Timeout = p.duration("EMAILPROBE_TIMEOUT")
	cfg.Probe.SMTPTimeout = p.duration("EMAILPROBE_SMTP_TIMEOUT")
	cfg.Probe.SMTPStageTimeout = p.duration("EMAILPROBE_SMTP_STAGE_TIMEOUT")
	cfg.Probe.RetryAttempts = p.int("EMAILPROBE_RETRY_ATTEMPTS")
	cfg.Probe.RetryBackoff = p.duration("EMAILPROBE_RETRY_BACKOFF")
	cfg.Probe.MaxMXHosts = p.int("EMAILPROBE_MAX_MX_HOSTS")
	cfg.Probe.SkipSMTPValidation = p.bool("EMAILPROBE_SKIP_SMTP")
	cfg.Probe.TreatGreylistingAsValid = p.bool("EMAILPROBE_GREYLIST_VALID")

	cfg.Batch.BatchSize = p.int("EMAILPROBE_BATCH_SIZE")
	cfg.Batch.Pause = p.duration("EMAILPROBE_BATCH_PAUSE")
	cfg.Batch.RateLimit = p.float("EMAILPROBE_RATE_LIMIT")
	cfg.Batch.Concurrency = p.int("EMAILPROBE_CONCURRENCY")

	cfg.Logger.LogLevel = getOrDefault("LOG_LEVEL", "info")

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

func getOrDefault(variable string, def string) string {
	result, ok := os.LookupEnv(variable)
	if !ok {
		return def
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first conversion error so New can read every variable
// before reporting.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}

func (p *parser) duration(key string) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return d
}

func (p *parser) int(key string) int {
	v, ok := p.lookup(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return n
}

func (p *parser) float(key string) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
	}
	return f
}

func (p *parser) bool(key string) bool {
	v, ok := p.lookup(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return b
}
