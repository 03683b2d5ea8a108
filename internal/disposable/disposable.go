// Package disposable holds the read-only set of known disposable email
// provider domains. The set is loaded once from an embedded list and is
// safe for concurrent use.
package disposable

import (
	_ "embed"
	"strings"
)

//go:embed list.txt
var rawList string

var domains = load(rawList)

func load(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			set[strings.ToLower(line)] = struct{}{}
		}
	}
	return set
}

// IsDisposable reports whether domain, or any parent domain of it, is a
// known disposable domain. Matching is case-insensitive.
func IsDisposable(domain string) bool {
	d := strings.TrimSuffix(strings.ToLower(domain), ".")
	for d != "" {
		if _, ok := domains[d]; ok {
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			return false
		}
		d = d[dot+1:]
		// never match a bare TLD
		if !strings.Contains(d, ".") {
			return false
		}
	}
	return false
}

// Len returns the number of domains in the set.
func Len() int {
	return len(domains)
}
