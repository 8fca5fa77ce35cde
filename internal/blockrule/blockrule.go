// Package blockrule normalizes navigation URLs to bare domains and matches
// them against blocklist patterns.
package blockrule

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL marks a navigation target that cannot be parsed. Callers
// treat such targets as non-blockable.
var ErrInvalidURL = errors.New("invalid url")

// Normalize parses a URL and returns its bare domain: host lower-cased with a
// single leading "www." stripped.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrInvalidURL
	}
	host := u.Hostname()
	if host == "" {
		return "", ErrInvalidURL
	}
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return host, nil
}

// Matches reports whether a normalized domain matches a blocklist pattern.
// A "*." prefix matches the base domain and any subdomain; a bare pattern
// matches itself and any subdomain. Suffix matches require a preceding dot,
// so "x.com.evil.com" never matches "x.com".
func Matches(domain, pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	pattern = strings.TrimPrefix(pattern, "www.")
	if pattern == "" {
		return false
	}

	base := strings.TrimPrefix(pattern, "*.")
	if base == "" {
		return false
	}

	return domain == base || strings.HasSuffix(domain, "."+base)
}
