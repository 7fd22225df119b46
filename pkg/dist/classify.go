package dist

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/pkg/reqs"
)

// ErrPackageNameMismatch indicates a built-artifact filename's embedded
// package name disagrees with the requirement's declared name (§3.1, §4.A).
var ErrPackageNameMismatch = errors.New("package name mismatch")

// ErrEditableFile indicates the editable flag was set on anything but a
// directory (§3.1 invariant, §4.A edge case).
var ErrEditableFile = errors.New("editable flag is only valid on a directory")

// ErrNotFound indicates a path-variant distribution's path did not exist
// at classification time (§3.1 invariant), distinct from other I/O errors
// per §7.
var ErrNotFound = errors.New("path does not exist")

// ErrNeedsResolver indicates the requirement names a version constraint
// against an index rather than a URL; the external resolver contract
// (§6) must produce the resulting RegistryBuilt/RegistrySource, not this
// package.
var ErrNeedsResolver = errors.New("requirement needs index resolution")

var vcsSchemes = map[string]bool{
	"git":     true,
	"git+https": true,
	"git+ssh":   true,
	"git+git":   true,
	"git+http":  true,
	"git+file":  true,
	"hg":        true,
	"bzr":       true,
	"svn":       true,
}

// FromRequirement classifies a requirement's locator into exactly one
// Distribution variant (§4.A). A requirement with a plain version
// constraint (no URL) returns ErrNeedsResolver: this package only
// classifies URL-style locators, leaving version resolution to the
// external Resolver contract (§6).
func FromRequirement(r reqs.Requirement) (Distribution, error) {
	if !r.Locator.IsURL() {
		return nil, ErrNeedsResolver
	}
	u := r.Locator.URL
	scheme := strings.ToLower(u.Scheme)

	if vcsSchemes[scheme] {
		return fromGitURL(r.Name, u, r.Editable)
	}
	if scheme == "file" {
		return fromFileURL(r.Name, u, r.Editable)
	}
	if scheme == "http" || scheme == "https" {
		return fromHTTPURL(r.Name, u, r.Editable)
	}
	return nil, errors.Errorf("unsupported locator scheme %q", scheme)
}

func fromHTTPURL(name string, u *url.URL, editable bool) (Distribution, error) {
	if editable {
		return nil, errors.Wrapf(ErrEditableFile, "%s", u)
	}
	filename, err := FilenameFromURLPath(u.Path)
	if err != nil {
		return nil, err
	}
	location := stripSubdir(u)
	subdir := u.Fragment
	if IsWheelFilename(filename) {
		wf, err := ParseWheelFilename(filename)
		if err != nil {
			return nil, errors.Wrap(err, "parsing wheel filename")
		}
		if wf.Name != NormalizeName(name) {
			return nil, errors.Wrapf(ErrPackageNameMismatch, "requirement %q, artifact %q", name, wf.Name)
		}
		return &DirectUrlBuilt{Filename: wf, Location: location, Subdirectory: subdir, Verbatim: u}, nil
	}
	return &DirectUrlSource{Name: name, Location: location, Subdirectory: subdir, Verbatim: u}, nil
}

func fromFileURL(name string, u *url.URL, editable bool) (Distribution, error) {
	rawPath := u.Path
	if filepath.Separator == '\\' {
		rawPath = strings.TrimPrefix(rawPath, "/")
	}
	canonical, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, errors.Wrap(err, "absolutizing path")
	}
	info, err := os.Stat(canonical)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", canonical)
		}
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		return &DirectorySource{Name: name, Verbatim: u, Path: canonical, Editable: editable}, nil
	}
	base := filepath.Base(canonical)
	if IsWheelFilename(base) {
		if editable {
			return nil, errors.Wrapf(ErrEditableFile, "%s", canonical)
		}
		wf, err := ParseWheelFilename(base)
		if err != nil {
			return nil, errors.Wrap(err, "parsing wheel filename")
		}
		if wf.Name != NormalizeName(name) {
			return nil, errors.Wrapf(ErrPackageNameMismatch, "requirement %q, artifact %q", name, wf.Name)
		}
		return &PathBuilt{Filename: wf, Verbatim: u, Path: canonical}, nil
	}
	if editable {
		return nil, errors.Wrapf(ErrEditableFile, "%s", canonical)
	}
	return &PathSource{Name: name, Verbatim: u, Path: canonical}, nil
}

func fromGitURL(name string, u *url.URL, editable bool) (Distribution, error) {
	if editable {
		return nil, errors.Wrapf(ErrEditableFile, "%s", u)
	}
	repo := *u
	repo.Scheme = strings.TrimPrefix(repo.Scheme, "git+")
	revision := ""
	if idx := strings.LastIndex(repo.Path, "@"); idx >= 0 {
		revision = repo.Path[idx+1:]
		repo.Path = repo.Path[:idx]
	}
	subdir := repo.Fragment
	repo.Fragment = ""
	repo.RawFragment = ""
	repoCopy := repo
	return &GitSource{
		Name:         name,
		Repo:         &repoCopy,
		Revision:     revision,
		Subdirectory: subdir,
		Verbatim:     u,
	}, nil
}

func stripSubdir(u *url.URL) *url.URL {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return &c
}
