// Package urlnorm provides WHATWG-conformant URL normalization so that
// equivalent URLs compare equal by exact string equality (spec §3).
package urlnorm

import (
	"fmt"
	"strings"

	whatwgurl "github.com/nlnwa/whatwg-url/url"
)

var parser = whatwgurl.NewParser(whatwgurl.WithLaxHostParsing())

// Normalize lowercases scheme and host, strips the default port for the
// scheme and the fragment, and returns the canonical URL string. Two URLs
// that are semantically equivalent normalize to the same string.
func Normalize(rawURL string) (string, error) {
	u, err := parser.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlnorm: parsing %q: %w", rawURL, err)
	}
	// Href(true) excludes the fragment; the WHATWG URL algorithm already
	// lowercases scheme/host and omits the port when it matches the
	// scheme's default.
	return u.Href(true), nil
}

// Resolve resolves ref against base, returning the normalized absolute URL.
func Resolve(base, ref string) (string, error) {
	baseURL, err := parser.Parse(base)
	if err != nil {
		return "", fmt.Errorf("urlnorm: parsing base %q: %w", base, err)
	}
	resolved, err := parser.ParseRef(baseURL, ref)
	if err != nil {
		return "", fmt.Errorf("urlnorm: resolving %q against %q: %w", ref, base, err)
	}
	return resolved.Href(true), nil
}

// Host returns the lowercased host component of a URL.
func Host(rawURL string) (string, error) {
	u, err := parser.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlnorm: parsing %q: %w", rawURL, err)
	}
	return strings.ToLower(u.Hostname()), nil
}

// SameHost reports whether two URLs share the same host, case-insensitively.
func SameHost(a, b string) bool {
	ha, errA := Host(a)
	hb, errB := Host(b)
	if errA != nil || errB != nil {
		return false
	}
	return ha == hb
}
