package check

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe/internal/deadline"
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/internal/smtpprobe"
	"github.com/optimode/emailprobe/types"
)

// SMTPConfig is the SMTP checker configuration.
type SMTPConfig struct {
	Probe                   smtpprobe.Config
	RetryAttempts           int           // passes over the MX hosts, default 2
	RetryBackoff            time.Duration // wait between passes, default 2s
	MaxMXHosts              int           // hosts tried per pass, default 3
	StageTimeout            time.Duration // deadline for the whole probing loop, default 60s
	TreatGreylistingAsValid bool
}

func (c SMTPConfig) withDefaults() SMTPConfig {
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.MaxMXHosts <= 0 {
		c.MaxMXHosts = 3
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 60 * time.Second
	}
	if c.Probe.Logger == nil {
		c.Probe.Logger = logrus.StandardLogger()
	}
	return c
}

// ProbeFunc runs one probe attempt against one host.
type ProbeFunc func(ctx context.Context, cfg smtpprobe.Config, host, recipient string) smtpprobe.Outcome

// SMTPChecker asks the domain's mail exchangers whether they accept the
// recipient. It owns the retry policy: RetryAttempts passes over the first
// MaxMXHosts hosts in priority order, RetryBackoff apart. An accepted or
// definitively rejected recipient ends the loop at once.
type SMTPChecker struct {
	cfg   SMTPConfig
	probe ProbeFunc
}

func NewSMTPChecker(cfg SMTPConfig) *SMTPChecker {
	return &SMTPChecker{cfg: cfg.withDefaults(), probe: smtpprobe.Probe}
}

// NewSMTPCheckerWithProbe is a test-oriented constructor that overrides the probe.
func NewSMTPCheckerWithProbe(cfg SMTPConfig, fn ProbeFunc) *SMTPChecker {
	c := NewSMTPChecker(cfg)
	c.probe = fn
	return c
}

// Check probes the hosts in mx, which must already be sorted by priority.
func (c *SMTPChecker) Check(ctx context.Context, email parse.Email, mx []types.MXRecord) types.CheckOutcome {
	if len(mx) == 0 {
		return types.CheckOutcome{Stage: types.StageSMTP, Message: "no MX hosts to probe"}
	}
	hosts := mx[:min(len(mx), c.cfg.MaxMXHosts)]

	return deadline.Race(ctx, c.cfg.StageTimeout,
		func(ctx context.Context) types.CheckOutcome {
			return c.run(ctx, email, hosts)
		},
		func(err error) types.CheckOutcome {
			return types.CheckOutcome{
				Stage:   types.StageSMTP,
				Message: fmt.Sprintf("SMTP probing did not finish in time: %v", err),
			}
		})
}

func (c *SMTPChecker) run(ctx context.Context, email parse.Email, hosts []types.MXRecord) types.CheckOutcome {
	recipient := email.Address()
	log := c.cfg.Probe.Logger.WithField("email", recipient)

	var last, temporary *smtpprobe.Outcome
	var passes, greylistedPasses int

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.cfg.RetryBackoff); err != nil {
				break
			}
		}

		greylisted := false
		for _, host := range hosts {
			if ctx.Err() != nil {
				break
			}
			out := c.probe(ctx, c.cfg.Probe, host.Host, recipient)
			log.WithFields(logrus.Fields{
				"stage":   types.StageSMTP,
				"mx":      host.Host,
				"attempt": attempt,
				"verdict": out.Verdict,
			}).Debug(out.Message)

			switch out.Verdict {
			case smtpprobe.VerdictAccepted:
				return outcomeFrom(out, true)
			case smtpprobe.VerdictRejected:
				return outcomeFrom(out, false)
			case smtpprobe.VerdictTemporary:
				temporary = &out
				greylisted = true
			default:
				last = &out
			}
		}

		passes++
		if greylisted {
			greylistedPasses++
		}

		// a greylisted recipient counts once the pass is over
		if greylisted && c.cfg.TreatGreylistingAsValid {
			o := outcomeFrom(*temporary, true)
			o.Temporary = true
			o.Message = fmt.Sprintf("greylisted, treated as valid: %s", temporary.Message)
			return o
		}
	}

	switch {
	case temporary != nil:
		o := outcomeFrom(*temporary, false)
		if greylistedPasses == passes {
			o.Message = fmt.Sprintf("temporary failure on every attempt: %s", temporary.Message)
		} else {
			o.Message = fmt.Sprintf("temporary failure on %d of %d attempts: %s", greylistedPasses, passes, temporary.Message)
		}
		return o
	case last != nil:
		o := outcomeFrom(*last, false)
		o.Message = fmt.Sprintf("SMTP probe failed on all MX hosts: %s", last.Message)
		return o
	}
	return types.CheckOutcome{
		Stage:   types.StageSMTP,
		Message: fmt.Sprintf("SMTP probing interrupted: %v", context.Cause(ctx)),
	}
}

func outcomeFrom(out smtpprobe.Outcome, passed bool) types.CheckOutcome {
	return types.CheckOutcome{
		Stage:   types.StageSMTP,
		Passed:  passed,
		Message: out.Message,
		Code:    out.Code,
		MXHost:  out.Host,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
