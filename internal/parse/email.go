package parse

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Email is the internal representation of a split email address.
// The check/ packages receive this as parameter.
type Email struct {
	Raw           string // the original, trimmed input
	Local         string // the part before @
	Domain        string // the part after @, lower-cased ASCII/Punycode form (for DNS/SMTP)
	DomainUnicode string // the part after @, Unicode form (for display/typo detection)
	AtSigns       int    // number of @ characters in Raw
	Valid         bool   // false unless Raw has exactly one @ and a convertible domain
}

// NewEmail splits the given email string on its single @.
// Raw and AtSigns are always populated. Local and Domain are populated
// whenever there is exactly one @, even if the domain fails IDNA
// conversion, so that callers can report precise errors.
func NewEmail(raw string) Email {
	raw = strings.TrimSpace(raw)
	e := Email{Raw: raw, AtSigns: strings.Count(raw, "@")}
	if e.AtSigns != 1 {
		return e
	}

	at := strings.IndexByte(raw, '@')
	e.Local = raw[:at]
	domain := strings.ToLower(raw[at+1:])
	e.Domain = domain
	e.DomainUnicode = domain

	ascii, unicode, ok := convertDomain(domain)
	if !ok {
		return e
	}
	e.Domain = ascii
	e.DomainUnicode = unicode
	e.Valid = e.Local != "" && e.Domain != ""
	return e
}

// Address returns local@domain using the ASCII domain form.
func (e Email) Address() string {
	return e.Local + "@" + e.Domain
}

// convertDomain returns the ASCII (Punycode) and Unicode forms of domain.
// ok is false when a non-ASCII domain fails IDNA2008 lookup rules.
func convertDomain(domain string) (ascii, unicode string, ok bool) {
	if isASCII(domain) {
		// existing Punycode such as xn--mnchen-3ya.de displays as münchen.de
		display, err := idna.Display.ToUnicode(domain)
		if err != nil {
			display = domain
		}
		return domain, display, true
	}

	a, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", "", false
	}
	return a, domain, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
