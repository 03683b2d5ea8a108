package check_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailprobe/check"
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/types"
)

func TestSyntaxChecker(t *testing.T) {
	c := check.NewSyntaxChecker()

	tests := []struct {
		name    string
		email   string
		wantOK  bool
		message string
	}{
		{"valid simple", "user@example.com", true, "syntax ok"},
		{"valid with plus", "user+tag@example.com", true, ""},
		{"valid with dots", "first.last@example.com", true, ""},
		{"valid apostrophe", "o'brien@example.com", true, ""},
		{"valid subdomain", "user@mail.example.co.uk", true, ""},
		{"valid uppercase", "User@Example.COM", true, ""},
		{"valid IDN", "user@münchen.de", true, ""},
		{"valid IDN cyrillic", "user@почта.рф", true, ""},
		{"valid punycode", "user@xn--mnchen-3ya.de", true, ""},

		{"empty", "", false, "empty"},
		{"whitespace only", "   ", false, "empty"},
		{"no at sign", "not-an-email", false, "exactly one @"},
		{"two at signs", "a@b@example.com", false, "exactly one @"},
		{"no local", "@example.com", false, "local part must be between"},
		{"local too long", strings.Repeat("a", 65) + "@example.com", false, "local part must be between"},
		{"no domain", "user@", false, "domain must be between"},
		{"domain too long", "user@" + strings.Repeat("a", 250) + ".com", false, "domain must be between"},
		{"space in local", "us er@example.com", false, "invalid format"},
		{"bang in local", "us!er@example.com", false, "invalid format"},
		{"single label domain", "user@localhost", false, "invalid format"},
		{"numeric TLD", "user@example.123", false, "invalid format"},
		{"underscore in domain", "user@exa_mple.com", false, "invalid format"},
		{"leading dot local", ".user@example.com", false, "start or end with a dot"},
		{"trailing dot local", "user.@example.com", false, "start or end with a dot"},
		{"double dot local", "user..name@example.com", false, "consecutive dots"},
		{"leading hyphen domain", "user@-example.com", false, "hyphen"},
		{"consecutive dots domain", "user@exam..ple.com", false, "between 1 and 63"},
		{"label ends with hyphen", "user@example-.com", false, "labels cannot start or end with a hyphen"},
		{"inner label starts with hyphen", "user@a.-b.com", false, "labels cannot start or end with a hyphen"},
		{"subdomain label ends with hyphen", "user@b-.example.com", false, "labels cannot start or end with a hyphen"},
		{"label too long", "user@" + strings.Repeat("a", 64) + ".com", false, "between 1 and 63"},
		{"label at limit", "user@" + strings.Repeat("a", 63) + ".com", true, ""},
		{"hyphen inside label", "user@my-example.com", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Check(parse.NewEmail(tt.email))
			assert.Equal(t, types.StageSyntax, result.Stage)
			assert.Equal(t, tt.wantOK, result.Passed, "Message: %s", result.Message)
			if tt.message != "" {
				assert.Contains(t, result.Message, tt.message)
			}
		})
	}
}

func TestSyntaxChecker_Deterministic(t *testing.T) {
	c := check.NewSyntaxChecker()
	for _, email := range []string{"user@example.com", "bad", "a..b@example.com"} {
		first := c.Check(parse.NewEmail(email))
		assert.Equal(t, first, c.Check(parse.NewEmail(email)))
	}
}
