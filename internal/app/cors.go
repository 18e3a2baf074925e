package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether a request origin matches one of the
// configured allowed-origin patterns. Patterns are matched against the
// host[:port] part of the origin: exact ("app.prenava.id"), subdomain
// wildcard ("*.prenava.id"), or any-port ("localhost:*").
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		switch {
		case pattern == "":
		case pattern == host:
			return true
		case strings.HasPrefix(pattern, "*."):
			if strings.HasSuffix(host, pattern[1:]) {
				return true
			}
		case strings.HasSuffix(pattern, ":*"):
			if strings.HasPrefix(host, pattern[:len(pattern)-1]) {
				return true
			}
		}
	}
	return false
}
