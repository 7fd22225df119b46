package reqs

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnnamedConstraint indicates a constraints-source entry lacked a
// package name (§4.B: "unnamed entries forbidden; fatal").
var ErrUnnamedConstraint = errors.New("constraint entry has no package name")

// ParseRequirementLine parses one PEP 508-style dependency string, as
// found either in a pyproject.toml dependency list or one line of a
// requirements listing, into a Requirement. A bare URL with no
// "name @" prefix yields a Requirement with an empty Name.
func ParseRequirementLine(line string, origin Origin) (Requirement, error) {
	line = strings.TrimSpace(line)
	r := Requirement{Origin: origin}

	if idx := strings.Index(line, ";"); idx >= 0 {
		r.Marker = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
	}

	tokens := strings.Fields(line)
	var hashParts []string
	var kept []string
	for _, t := range tokens {
		if strings.HasPrefix(t, "--hash=") {
			hashParts = append(hashParts, strings.TrimPrefix(t, "--hash="))
			continue
		}
		kept = append(kept, t)
	}
	line = strings.Join(kept, " ")
	if len(hashParts) > 0 {
		r.Hashes = map[string]string{}
		for _, h := range hashParts {
			algo, digest, ok := strings.Cut(h, ":")
			if !ok {
				return Requirement{}, errors.Errorf("malformed --hash token %q", h)
			}
			r.Hashes[algo] = digest
		}
	}

	if i := strings.Index(line, "://"); i >= 0 && !strings.Contains(line[:i], "@") {
		u, err := url.Parse(line)
		if err != nil {
			return Requirement{}, errors.Wrapf(err, "parsing locator URL %q", line)
		}
		r.Locator = VersionOrUrl{URL: u}
		return r, nil
	}

	if atIdx := strings.Index(line, "@"); atIdx >= 0 {
		name := strings.TrimSpace(line[:atIdx])
		rawURL := strings.TrimSpace(line[atIdx+1:])
		n, extras, err := splitNameExtras(name)
		if err != nil {
			return Requirement{}, err
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return Requirement{}, errors.Wrapf(err, "parsing locator URL %q", rawURL)
		}
		r.Name = n
		r.Extras = extras
		r.Locator = VersionOrUrl{URL: u}
		return r, nil
	}

	name, extras, versionSpec, err := splitNameExtrasVersion(line)
	if err != nil {
		return Requirement{}, err
	}
	r.Name = name
	r.Extras = extras
	r.Locator = VersionOrUrl{Version: versionSpec}
	return r, nil
}

func splitNameExtras(s string) (string, []string, error) {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "[")
	if idx < 0 {
		return s, nil, nil
	}
	end := strings.Index(s, "]")
	if end < idx {
		return "", nil, errors.Errorf("malformed extras in %q", s)
	}
	name := strings.TrimSpace(s[:idx])
	var extras []string
	for _, e := range strings.Split(s[idx+1:end], ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			extras = append(extras, e)
		}
	}
	return name, extras, nil
}

func splitNameExtrasVersion(s string) (string, []string, string, error) {
	s = strings.TrimSpace(s)
	specIdx := strings.IndexAny(s, "=<>!~")
	var head, spec string
	if specIdx >= 0 {
		head, spec = s[:specIdx], strings.TrimSpace(s[specIdx:])
	} else {
		head = s
	}
	name, extras, err := splitNameExtras(head)
	if err != nil {
		return "", nil, "", err
	}
	return name, extras, spec, nil
}

func stripMarker(dep string) string {
	if idx := strings.Index(dep, ";"); idx >= 0 {
		return dep[:idx]
	}
	return dep
}
