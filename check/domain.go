package check

import (
	"strings"

	"github.com/optimode/emailprobe/internal/disposable"
	"github.com/optimode/emailprobe/internal/levenshtein"
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/types"
)

// DefaultTypoThreshold is the largest edit distance reported as a typo.
const DefaultTypoThreshold = 2

// knownProviders are the major mailbox providers used for typo detection.
// A domain within the threshold of one of these gets a suggestion, but
// the check does not fail.
var knownProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
	"tutanota.com",
	"freemail.hu", "citromail.hu", "t-online.hu", "invitel.hu",
}

// DomainChecker flags disposable domains and suggests corrections for
// likely typos of well-known providers.
type DomainChecker struct {
	typoThreshold int
}

func NewDomainChecker(typoThreshold int) *DomainChecker {
	if typoThreshold <= 0 {
		typoThreshold = DefaultTypoThreshold
	}
	return &DomainChecker{typoThreshold: typoThreshold}
}

// Check fails when the domain belongs to a disposable provider.
func (c *DomainChecker) Check(email parse.Email) types.CheckOutcome {
	if disposable.IsDisposable(email.Domain) {
		return types.CheckOutcome{
			Stage:   types.StageDisposable,
			Message: "disposable email domain detected",
		}
	}
	return types.CheckOutcome{Stage: types.StageDisposable, Passed: true, Message: "not a disposable domain"}
}

// Suggest returns the corrected address when the domain looks like a
// typo of a known provider, or "" otherwise.
func (c *DomainChecker) Suggest(email parse.Email) string {
	domain := strings.ToLower(email.DomainUnicode)
	if domain == "" {
		return ""
	}

	best, bestDist := "", c.typoThreshold+1
	for _, provider := range knownProviders {
		if domain == provider {
			return ""
		}
		if d, ok := levenshtein.Within(domain, provider, c.typoThreshold); ok && d < bestDist {
			best, bestDist = provider, d
		}
	}
	if best == "" {
		return ""
	}
	return email.Local + "@" + best
}
