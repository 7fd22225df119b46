package dist

import (
	"path"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// WheelFilename is the decoded form of a built-artifact ("wheel")
// filename, which encodes name, version and compatibility tags.
type WheelFilename struct {
	Name    string
	Version string
	Tags    string // the remaining "pytag-abitag-platformtag" component, opaque to this package.
}

var wheelRE = regexp.MustCompile(`^([^-]+)-([^-]+)(?:-\d[^-]*)?-([^-]+-[^-]+-[^-]+)\.whl$`)

// ErrUrlFilename is returned when a URL has no final path segment to parse
// as a filename (§4.A edge cases).
var ErrUrlFilename = errors.New("URL has no filename component")

// IsWheelFilename reports whether name ends, case-insensitively, in the
// built-artifact extension.
func IsWheelFilename(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".whl")
}

// ParseWheelFilename parses a wheel filename of the form
// {name}-{version}(-{build tag})?-{python tag}-{abi tag}-{platform tag}.whl.
func ParseWheelFilename(name string) (WheelFilename, error) {
	m := wheelRE.FindStringSubmatch(name)
	if m == nil {
		return WheelFilename{}, errors.Errorf("invalid wheel filename %q", name)
	}
	return WheelFilename{Name: NormalizeName(m[1]), Version: m[2], Tags: m[3]}, nil
}

// SourceFilename is the decoded form of a source-archive filename. Unlike
// WheelFilename, a source archive's compatibility tags are absent; only
// name and version are guaranteed.
type SourceFilename struct {
	Name    string
	Version string
	Ext     string
}

var sourceExts = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".zip", ".tgz"}

// ParseSourceFilename parses an sdist filename of the form
// {name}-{version}.{ext}.
func ParseSourceFilename(name string) (SourceFilename, error) {
	for _, ext := range sourceExts {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			stem := name[:len(name)-len(ext)]
			idx := strings.LastIndex(stem, "-")
			if idx < 0 {
				return SourceFilename{}, errors.Errorf("invalid source filename %q", name)
			}
			return SourceFilename{
				Name:    NormalizeName(stem[:idx]),
				Version: stem[idx+1:],
				Ext:     ext,
			}, nil
		}
	}
	return SourceFilename{}, errors.Errorf("unrecognized source archive extension for %q", name)
}

// NormalizeName applies PEP 503 normalization: runs of "-", "_", "."
// collapse to a single "-", and the result is lowercased. This is the
// comparison form used throughout classification and identity.
func NormalizeName(name string) string {
	var b strings.Builder
	lastWasSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastWasSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			lastWasSep = true
			continue
		}
		b.WriteRune(r)
		lastWasSep = false
	}
	return strings.TrimRight(b.String(), "-")
}

// FilenameFromURLPath extracts the final path segment of a URL path, for
// use as a candidate filename. Returns ErrUrlFilename if the path has no
// segments.
func FilenameFromURLPath(urlPath string) (string, error) {
	base := path.Base(urlPath)
	if base == "" || base == "." || base == "/" {
		return "", ErrUrlFilename
	}
	return base, nil
}
