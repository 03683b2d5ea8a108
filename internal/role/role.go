// Package role holds the read-only set of role-based local parts
// (admin@, support@, ...).
package role

import (
	_ "embed"
	"strings"
)

//go:embed roles.txt
var rawList string

var prefixes = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(rawList, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			set[strings.ToLower(line)] = struct{}{}
		}
	}
	return set
}()

// IsRoleBased reports whether the local part names a role mailbox.
// A "+tag" subaddress suffix is ignored, so support+eu is a role address.
func IsRoleBased(local string) bool {
	l := strings.ToLower(local)
	if plus := strings.IndexByte(l, '+'); plus > 0 {
		l = l[:plus]
	}
	_, ok := prefixes[l]
	return ok
}
