package reqs

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// fileParse is the accumulated effect of parsing one requirements- or
// constraints-listing file, including everything pulled in through
// recursive -r/-c includes (§4.B).
type fileParse struct {
	Requirements []Requirement
	Constraints  []Requirement
	Index        IndexConfig
	NoBuild      BuildFilterSet
	NoBinary     BuildFilterSet
}

// parseRequirementsFile parses path as a requirements listing: one
// requirement per line plus directives (-r/--requirement, -c/--constraint,
// --index-url, --extra-index-url, --no-index, --find-links, --no-binary,
// --no-build, -e/--editable). asConstraints controls whether a bare
// requirement line is required to carry a name (§4.B: "unnamed entries
// forbidden; fatal" for constraint sources). seen guards against circular
// includes across the whole recursive parse.
func parseRequirementsFile(path string, asConstraints bool, seen map[string]bool) (*fileParse, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "absolutizing %s", path)
	}
	if seen[abs] {
		return nil, errors.Errorf("circular requirements file include: %s", abs)
	}
	seen[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", abs)
	}
	defer f.Close()

	out := &fileParse{NoBuild: NewBuildFilterSet(), NoBinary: NewBuildFilterSet()}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		origin := Origin{File: abs, Line: lineNo}

		switch {
		case hasDirective(line, "-r") || hasDirective(line, "--requirement"):
			nested, err := includeNested(abs, line, false, seen)
			if err != nil {
				return nil, err
			}
			out.Requirements = append(out.Requirements, nested.Requirements...)
			out.Constraints = append(out.Constraints, nested.Constraints...)
			out.mergeDirectives(nested)

		case hasDirective(line, "-c") || hasDirective(line, "--constraint"):
			nested, err := includeNested(abs, line, true, seen)
			if err != nil {
				return nil, err
			}
			out.Constraints = append(out.Constraints, nested.Requirements...)
			out.Constraints = append(out.Constraints, nested.Constraints...)
			out.mergeDirectives(nested)

		case hasDirective(line, "--index-url"):
			out.Index.PrimaryURL = directiveValue(line)
		case hasDirective(line, "--extra-index-url"):
			out.Index.ExtraURLs = append(out.Index.ExtraURLs, directiveValue(line))
		case hasDirective(line, "--find-links"):
			out.Index.FlatIndex = append(out.Index.FlatIndex, directiveValue(line))
		case line == "--no-index":
			out.Index.NoIndex = true
		case hasDirective(line, "--no-binary"):
			applyFilter(&out.NoBinary, directiveValue(line))
		case hasDirective(line, "--no-build"):
			applyFilter(&out.NoBuild, directiveValue(line))

		case hasDirective(line, "-e") || hasDirective(line, "--editable"):
			r, err := ParseRequirementLine(directiveValue(line), origin)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", abs, lineNo)
			}
			r.Editable = true
			out.Requirements = append(out.Requirements, r)

		default:
			r, err := ParseRequirementLine(line, origin)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", abs, lineNo)
			}
			if asConstraints && r.Name == "" {
				return nil, errors.Wrapf(ErrUnnamedConstraint, "%s:%d", abs, lineNo)
			}
			out.Requirements = append(out.Requirements, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", abs)
	}
	return out, nil
}

// hasDirective reports whether line begins with flag followed by either a
// space or an '=' (both "--index-url URL" and "--index-url=URL" forms
// appear in the wild).
func hasDirective(line, flag string) bool {
	if !strings.HasPrefix(line, flag) {
		return false
	}
	rest := line[len(flag):]
	return rest == "" || rest[0] == ' ' || rest[0] == '='
}

func directiveValue(line string) string {
	idx := strings.IndexAny(line, " =")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

func includeNested(fromFile, line string, asConstraints bool, seen map[string]bool) (*fileParse, error) {
	rel := directiveValue(line)
	path := rel
	if !filepath.IsAbs(rel) {
		path = filepath.Join(filepath.Dir(fromFile), rel)
	}
	return parseRequirementsFile(path, asConstraints, seen)
}

func applyFilter(f *BuildFilterSet, value string) {
	if value == ":all:" {
		f.All = true
		return
	}
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			f.Names[name] = true
		}
	}
}

func (out *fileParse) mergeDirectives(nested *fileParse) {
	if out.Index.PrimaryURL == "" {
		out.Index.PrimaryURL = nested.Index.PrimaryURL
	}
	out.Index.ExtraURLs = append(out.Index.ExtraURLs, nested.Index.ExtraURLs...)
	out.Index.FlatIndex = append(out.Index.FlatIndex, nested.Index.FlatIndex...)
	out.Index.NoIndex = out.Index.NoIndex || nested.Index.NoIndex
	out.NoBinary = out.NoBinary.Union(nested.NoBinary)
	out.NoBuild = out.NoBuild.Union(nested.NoBuild)
}
