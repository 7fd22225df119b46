// Package reqs implements requirement aggregation (§3.3, §3.4, §4.B): it
// normalizes requirement listings, project manifests, constraint files
// and overrides from heterogeneous sources into a single Specification.
package reqs

import (
	"fmt"
	"net/url"
)

// VersionOrUrl is the two-variant sum described in §3.3: a requirement
// names either a version constraint or a URL-style locator, never both.
type VersionOrUrl struct {
	Version string   // PEP 440-style constraint, e.g. ">=1.0,<2.0". Empty if URL is set.
	URL     *url.URL // Locator for index/URL/path/VCS requirements. Nil if Version is set.
}

// IsURL reports whether this requirement is anchored to a URL rather than
// a version constraint resolved against an index.
func (v VersionOrUrl) IsURL() bool { return v.URL != nil }

func (v VersionOrUrl) String() string {
	if v.IsURL() {
		return " @ " + v.URL.String()
	}
	if v.Version == "" {
		return ""
	}
	return v.Version
}

// Origin records where a requirement was declared, for diagnostics.
type Origin struct {
	File string
	Line int
}

func (o Origin) String() string {
	if o.File == "" {
		return "<command line>"
	}
	if o.Line > 0 {
		return fmt.Sprintf("%s:%d", o.File, o.Line)
	}
	return o.File
}

// Requirement is a package name together with a version constraint or a
// URL-style locator (§3.3), plus the selectors that modify how it
// resolves.
type Requirement struct {
	Name       string
	Locator    VersionOrUrl
	Extras     []string
	Marker     string // raw environment-marker expression, evaluated by the external resolver.
	Hashes     map[string]string // algorithm name -> hex digest
	Editable   bool
	Origin     Origin
}

// String renders the requirement the way it would appear in a requirements
// listing, for diagnostics and the lockfile.
func (r Requirement) String() string {
	s := r.Name
	if len(r.Extras) > 0 {
		s += "["
		for i, e := range r.Extras {
			if i > 0 {
				s += ","
			}
			s += e
		}
		s += "]"
	}
	s += r.Locator.String()
	if r.Marker != "" {
		s += "; " + r.Marker
	}
	return s
}
