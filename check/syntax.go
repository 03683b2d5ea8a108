package check

import (
	"regexp"
	"strings"

	"github.com/badoux/checkmail"

	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/types"
)

var (
	localPattern  = regexp.MustCompile(`^[A-Za-z0-9._%+'-]+$`)
	domainPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+\.(?:[A-Za-z]{2,}|xn--[A-Za-z0-9-]+)$`)
)

// SyntaxChecker validates the structure of an address. It is pure and
// deterministic; rules are applied in order and the first failure wins.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

func (c *SyntaxChecker) Check(email parse.Email) types.CheckOutcome {
	fail := func(msg string) types.CheckOutcome {
		return types.CheckOutcome{Stage: types.StageSyntax, Passed: false, Message: msg}
	}

	if email.Raw == "" {
		return fail("email address is empty")
	}
	if email.AtSigns != 1 {
		return fail("email address must contain exactly one @")
	}
	if n := len(email.Local); n < 1 || n > 64 {
		return fail("local part must be between 1 and 64 characters")
	}
	if n := len(email.Domain); n < 1 || n > 253 {
		return fail("domain must be between 1 and 253 characters")
	}
	if !email.Valid {
		return fail("domain is not a valid internationalized domain name")
	}
	if !localPattern.MatchString(email.Local) || !domainPattern.MatchString(email.Domain) {
		return fail("email address has an invalid format")
	}
	if strings.HasPrefix(email.Local, ".") || strings.HasSuffix(email.Local, ".") {
		return fail("local part cannot start or end with a dot")
	}
	if strings.Contains(email.Local, "..") {
		return fail("local part cannot contain consecutive dots")
	}
	if strings.HasPrefix(email.Domain, "-") || strings.HasSuffix(email.Domain, "-") {
		return fail("domain cannot start or end with a hyphen")
	}
	if msg := checkLabels(email.Domain); msg != "" {
		return fail(msg)
	}
	if err := checkmail.ValidateFormat(email.Address()); err != nil {
		return fail("email address does not conform to RFC 5322: " + err.Error())
	}

	return types.CheckOutcome{Stage: types.StageSyntax, Passed: true, Message: "syntax ok"}
}

// checkLabels applies the per-label hostname rules to an ASCII domain.
func checkLabels(domain string) string {
	for _, label := range strings.Split(domain, ".") {
		if n := len(label); n < 1 || n > 63 {
			return "domain labels must be between 1 and 63 characters"
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return "domain labels cannot start or end with a hyphen"
		}
	}
	return ""
}
