// Package manifest decodes pyproject.toml files and caches parses for the
// duration of one sync (§9 open question: manifest reads are cached for
// performance but callers must tolerate re-reads).
package manifest

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/pysync/pysync/internal/cache"
)

// Dependency is a single PEP 508-style dependency string as it appears in
// [project.dependencies] or [project.optional-dependencies].
type Dependency = string

// Project is the [project] table.
type Project struct {
	Name                 string                   `toml:"name"`
	Version              string                   `toml:"version"`
	Dependencies         []Dependency             `toml:"dependencies"`
	OptionalDependencies map[string][]Dependency  `toml:"optional-dependencies"`
}

// Source describes a workspace-internal reference for one dependency name,
// from [tool.pysync.sources].
type Source struct {
	Workspace bool   `toml:"workspace"`
	Path      string `toml:"path"`
	Git       string `toml:"git"`
	Editable  *bool  `toml:"editable"`
}

// Workspace is the [tool.pysync.workspace] table.
type Workspace struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
}

// ToolPysync is the [tool.pysync] table.
type ToolPysync struct {
	Workspace *Workspace        `toml:"workspace"`
	Sources   map[string]Source `toml:"sources"`
}

// Tool is the [tool] table; only the pysync subsection is decoded.
type Tool struct {
	Pysync *ToolPysync `toml:"pysync"`
}

// BuildSystem is the [build-system] table.
type BuildSystem struct {
	Requires []string `toml:"requires"`
}

// PyProjectToml is the decoded form of a pyproject.toml file.
type PyProjectToml struct {
	Project     *Project     `toml:"project"`
	Tool        *Tool        `toml:"tool"`
	BuildSystem *BuildSystem `toml:"build-system"`
}

// HasProject reports whether the manifest declares a [project] section,
// the discriminator §4.C rule 1 and rule 4 dispatch on.
func (p *PyProjectToml) HasProject() bool {
	return p != nil && p.Project != nil
}

// WorkspaceSection returns the [tool.pysync.workspace] table, or nil.
func (p *PyProjectToml) WorkspaceSection() *Workspace {
	if p == nil || p.Tool == nil {
		return nil
	}
	return p.Tool.Pysync.workspaceOrNil()
}

func (t *ToolPysync) workspaceOrNil() *Workspace {
	if t == nil {
		return nil
	}
	return t.Workspace
}

// Reader caches decoded manifests by absolute path so a workspace
// discovery pass that visits the same pyproject.toml from multiple
// directions (e.g. while checking for nested workspaces) only reads and
// parses it once.
type Reader struct {
	cache cache.Coalescing
}

// NewReader constructs a Reader with an empty cache.
func NewReader() *Reader {
	return &Reader{}
}

// Read decodes the pyproject.toml at path, caching the result.
func (r *Reader) Read(path string) (*PyProjectToml, error) {
	v, err := r.cache.GetOrSet(path, func() (any, error) {
		return parse(path)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PyProjectToml), nil
}

func parse(path string) (*PyProjectToml, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var p PyProjectToml
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return &p, nil
}
