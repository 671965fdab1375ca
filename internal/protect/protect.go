// Package protect decides which applications are off limits for removal.
package protect

import "strings"

// Core system components and the tools a user would regret losing mid-sweep.
var defaultPrefixes = []string{
	"com.apple.",
}

var defaultIDs = map[string]bool{
	"com.tw93.appsweep": true,
}

// Policy answers whether a bundle identifier is protected. The zero value
// protects nothing; use New for the default policy.
type Policy struct {
	prefixes []string
	ids      map[string]bool
}

// New builds the default policy plus any extra identifiers from config.
// Extras ending in "." are treated as prefixes.
func New(extra ...string) *Policy {
	p := &Policy{
		prefixes: append([]string(nil), defaultPrefixes...),
		ids:      make(map[string]bool, len(defaultIDs)+len(extra)),
	}
	for id := range defaultIDs {
		p.ids[id] = true
	}
	for _, e := range extra {
		e = strings.TrimSpace(strings.ToLower(e))
		if e == "" {
			continue
		}
		if strings.HasSuffix(e, ".") {
			p.prefixes = append(p.prefixes, e)
			continue
		}
		p.ids[e] = true
	}
	return p
}

// Protected reports whether the bundle identifier matches the policy.
// Unknown identifiers are never protected: an unreadable manifest must not
// hide an app from the user.
func (p *Policy) Protected(bundleID string) bool {
	if p == nil {
		return false
	}
	id := strings.ToLower(strings.TrimSpace(bundleID))
	if id == "" {
		return false
	}
	if p.ids[id] {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}
