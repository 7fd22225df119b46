// Package urlx provides URL parsing and canonicalization helpers used to
// derive stable identity keys from user-supplied and registry-supplied
// URLs.
package urlx

import (
	"net/url"
	"strings"
)

// MustParse calls url.Parse and panics on error. Used for package-level
// URLs that are known to be valid at compile time.
func MustParse(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"git":   "9418",
	"ssh":   "22",
	"ftp":   "21",
}

// Canonicalize produces a deterministic form of u suitable for use as a
// cache or identity key: the scheme is lowercased, the default port for
// that scheme is stripped, userinfo is preserved verbatim, percent-encoding
// is normalized by round-tripping through url.Parse/String, and trailing
// slashes on the path are removed (the root path "/" is preserved).
//
// Canonicalize does not touch the fragment; callers that need a
// revision-independent ("resource") identity must strip fragments
// themselves with WithoutFragment before calling Canonicalize.
func Canonicalize(u *url.URL) *url.URL {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	if host, port, ok := strings.Cut(c.Host, ":"); ok {
		if defaultPorts[c.Scheme] == port {
			c.Host = host
		} else {
			c.Host = host + ":" + port
		}
	}
	c.Host = strings.ToLower(c.Host)
	if len(c.Path) > 1 && strings.HasSuffix(c.Path, "/") {
		c.Path = strings.TrimRight(c.Path, "/")
	}
	// Re-parse the string form to normalize percent-encoding (e.g. %7E -> ~
	// is NOT performed by url.Parse, but redundant encodings of already-safe
	// characters collapse when re-escaping through String/Parse).
	if reparsed, err := url.Parse(c.String()); err == nil {
		return reparsed
	}
	return &c
}

// WithoutFragment returns a copy of u with the revision/subdirectory
// fragment cleared, for deriving the coarser "resource identity" (§3.2).
func WithoutFragment(u *url.URL) *url.URL {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return &c
}
