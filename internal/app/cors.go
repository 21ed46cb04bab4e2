package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether an Origin header value matches one of the
// configured patterns. Matching is on the host[:port] part of the origin;
// a "*." prefix matches any subdomain and a ":*" suffix matches any port.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}

	for _, pattern := range patterns {
		switch {
		case pattern == host:
			return true
		case strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]):
			return true
		case strings.HasSuffix(pattern, ":*") && strings.HasPrefix(host, strings.TrimSuffix(pattern, "*")):
			return true
		}
	}
	return false
}
