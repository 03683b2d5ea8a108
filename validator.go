package emailprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe/check"
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/internal/resolver"
	"github.com/optimode/emailprobe/internal/smtpprobe"
	"github.com/optimode/emailprobe/types"
)

// Validator runs the validation pipeline. Instantiate with New. A
// Validator holds no per-call state and is safe for concurrent use once
// configured.
type Validator struct {
	cfg      Config
	err      error // configuration error, returned on Validate()
	resolver check.Resolver
	dial     smtpprobe.DialFunc
	log      logrus.FieldLogger

	syntax *check.SyntaxChecker
	domain *check.DomainChecker
	role   *check.RoleChecker
}

// New creates a Validator from cfg. An invalid configuration is reported
// by Validate and ValidateBatch, not here, so that the builder methods can
// be chained.
func New(cfg Config) *Validator {
	v := &Validator{
		cfg:    cfg.withDefaults(),
		log:    logrus.StandardLogger(),
		syntax: check.NewSyntaxChecker(),
		domain: check.NewDomainChecker(check.DefaultTypoThreshold),
		role:   check.NewRoleChecker(),
	}
	if v.err = cfg.validate(); v.err != nil {
		return v
	}

	if len(v.cfg.Nameservers) > 0 {
		ns, err := resolver.NewNameserver(v.cfg.Nameservers, v.cfg.Timeout)
		if err != nil {
			v.err = fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			return v
		}
		v.resolver = ns
	} else {
		v.resolver = resolver.System()
	}

	if v.cfg.ProxyURL != "" && !v.cfg.SkipSMTPValidation {
		dial, err := smtpprobe.NewDialer(v.cfg.ProxyURL)
		if err != nil {
			v.err = fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			return v
		}
		v.dial = dial
	}
	return v
}

// WithResolver replaces the DNS resolver used by the domain and MX stages.
func (v *Validator) WithResolver(r check.Resolver) *Validator {
	if r != nil {
		v.resolver = r
	}
	return v
}

// WithDialer replaces the function used to open SMTP connections.
func (v *Validator) WithDialer(dial smtpprobe.DialFunc) *Validator {
	v.dial = dial
	return v
}

// WithLogger sets the logger. Stage outcomes and SMTP traffic are logged
// at debug level.
func (v *Validator) WithLogger(log logrus.FieldLogger) *Validator {
	if log != nil {
		v.log = log
	}
	return v
}

// Validate runs the pipeline on email. Syntax, domain and MX failures end
// the pipeline and the later stages are recorded as skipped. Once MX
// passed, the SMTP, disposable and role stages all run.
// The only errors returned are configuration errors.
func (v *Validator) Validate(ctx context.Context, email string) (Result, error) {
	if v.err != nil {
		return Result{}, v.err
	}

	start := time.Now()
	parsed := parse.NewEmail(email)
	res := Result{Email: parsed.Raw, Checks: make(map[Stage]CheckOutcome, len(types.Stages))}
	log := v.log.WithField("email", parsed.Raw)

	record := func(o CheckOutcome) bool {
		res.Checks[o.Stage] = o
		log.WithFields(logrus.Fields{
			"stage":   o.Stage,
			"passed":  o.Passed,
			"skipped": o.Skipped,
		}).Debug(o.Message)
		return o.Passed
	}

	v.run(ctx, parsed, record)

	res.Status, res.Score, res.Reason = Classify(res.Checks)
	if c, ok := res.Checks[StageDisposable]; ok && !c.Skipped {
		res.Suggestion = v.domain.Suggest(parsed)
	}
	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	log.WithFields(logrus.Fields{"status": res.Status, "score": res.Score}).Debug(res.Reason)
	return res, nil
}

func (v *Validator) run(ctx context.Context, email parse.Email, record func(CheckOutcome) bool) {
	skipRest := func(after Stage, reason string) {
		skipping := false
		for _, stage := range types.Stages {
			if skipping {
				record(types.Skip(stage, reason))
			}
			if stage == after {
				skipping = true
			}
		}
	}

	if !record(v.syntax.Check(email)) {
		skipRest(StageSyntax, "syntax check failed")
		return
	}

	dns := check.NewDNSChecker(v.resolver, v.cfg.Timeout)
	if !record(dns.CheckDomain(ctx, email)) {
		skipRest(StageDomain, "domain check failed")
		return
	}
	mx := dns.CheckMX(ctx, email)
	if !record(mx) {
		skipRest(StageMX, "MX check failed")
		return
	}

	if v.cfg.SkipSMTPValidation {
		skipped := types.Skip(StageSMTP, "SMTP validation disabled")
		skipped.Passed = true
		record(skipped)
	} else {
		record(v.smtpChecker().Check(ctx, email, mx.MXRecords))
	}
	record(v.domain.Check(email))
	record(v.role.Check(email))
}

func (v *Validator) smtpChecker() *check.SMTPChecker {
	return check.NewSMTPChecker(check.SMTPConfig{
		Probe: smtpprobe.Config{
			HeloIdentity:  v.cfg.HeloIdentity,
			SenderAddress: v.cfg.SenderAddress,
			Port:          v.cfg.Port,
			StepTimeout:   v.cfg.SMTPTimeout,
			QuitGrace:     v.cfg.QuitGrace,
			Dial:          v.dial,
			Logger:        v.log,
		},
		RetryAttempts:           v.cfg.RetryAttempts,
		RetryBackoff:            v.cfg.RetryBackoff,
		MaxMXHosts:              v.cfg.MaxMXHosts,
		StageTimeout:            v.cfg.SMTPStageTimeout,
		TreatGreylistingAsValid: v.cfg.TreatGreylistingAsValid,
	})
}

// Validate is a shorthand for New(cfg).Validate(ctx, email).
func Validate(ctx context.Context, email string, cfg Config) (Result, error) {
	return New(cfg).Validate(ctx, email)
}
