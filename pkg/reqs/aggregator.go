package reqs

import (
	"net/url"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/internal/manifest"
	"github.com/pysync/pysync/internal/urlx"
	"github.com/pysync/pysync/pkg/workspace"
)

// SourceKind discriminates the five input shapes §4.B's from_sources
// contract accepts.
type SourceKind int

const (
	BareNameSource SourceKind = iota
	EditablePathSource
	RequirementsFileSource
	ProjectManifestSource
	SourceTreeSourceKind
)

// Source is one entry in the requirements[]/constraints[]/overrides[]
// arguments to Aggregator.FromSources. Value is the bare name
// (BareNameSource) or a filesystem path (every other kind).
type Source struct {
	Kind  SourceKind
	Value string
}

// ErrAmbiguousEditable is returned when two editable requirements declare
// the same package name with different locators, e.g. an explicit
// editable source shadowing a workspace member already emitted by a
// project manifest source.
var ErrAmbiguousEditable = errors.New("ambiguous editable requirement")

// Aggregator implements §4.B: normalize heterogeneous inputs into one
// Specification.
type Aggregator struct {
	Reader *manifest.Reader
}

// NewAggregator constructs an Aggregator with its own manifest.Reader.
func NewAggregator() *Aggregator {
	return &Aggregator{Reader: manifest.NewReader()}
}

// FromSources implements the from_sources contract (§4.B).
func (a *Aggregator) FromSources(requirements, constraints, overrides []Source) (*Specification, error) {
	spec := NewSpecification()

	for _, s := range requirements {
		if err := a.addRequirementSource(spec, s); err != nil {
			return nil, err
		}
	}
	for _, s := range constraints {
		if err := a.addConstraintSource(spec, s); err != nil {
			return nil, err
		}
	}
	for _, s := range overrides {
		if err := a.addOverrideSource(spec, s); err != nil {
			return nil, err
		}
	}
	if err := checkAmbiguousEditables(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func (a *Aggregator) addRequirementSource(spec *Specification, s Source) error {
	switch s.Kind {
	case BareNameSource:
		r, err := ParseRequirementLine(s.Value, Origin{})
		if err != nil {
			return err
		}
		spec.Requirements = append(spec.Requirements, r)

	case EditablePathSource:
		abs, err := filepath.Abs(s.Value)
		if err != nil {
			return errors.Wrapf(err, "absolutizing %s", s.Value)
		}
		name, err := editableName(a.Reader, abs)
		if err != nil {
			return err
		}
		spec.Editables = append(spec.Editables, Requirement{
			Name:     name,
			Locator:  VersionOrUrl{URL: &url.URL{Scheme: "file", Path: abs}},
			Editable: true,
			Origin:   Origin{File: abs},
		})

	case RequirementsFileSource:
		fp, err := parseRequirementsFile(s.Value, false, map[string]bool{})
		if err != nil {
			return err
		}
		for _, r := range fp.Requirements {
			if r.Editable {
				spec.Editables = append(spec.Editables, r)
				continue
			}
			spec.Requirements = append(spec.Requirements, r)
		}
		spec.Constraints = append(spec.Constraints, fp.Constraints...)
		return mergeDirectivesInto(spec, fp)

	case ProjectManifestSource:
		return a.addProjectManifest(spec, s.Value)

	case SourceTreeSourceKind:
		abs, err := filepath.Abs(s.Value)
		if err != nil {
			return errors.Wrapf(err, "absolutizing %s", s.Value)
		}
		spec.SourceTrees = append(spec.SourceTrees, SourceTree{Path: abs, Origin: Origin{File: abs}})

	default:
		return errors.Errorf("unknown requirement source kind %d", s.Kind)
	}
	return nil
}

func (a *Aggregator) addConstraintSource(spec *Specification, s Source) error {
	if s.Kind != RequirementsFileSource {
		return errors.New("constraint sources must be requirements-listing files")
	}
	fp, err := parseRequirementsFile(s.Value, true, map[string]bool{})
	if err != nil {
		return err
	}
	spec.Constraints = append(spec.Constraints, fp.Requirements...)
	spec.Constraints = append(spec.Constraints, fp.Constraints...)
	return mergeDirectivesInto(spec, fp)
}

func (a *Aggregator) addOverrideSource(spec *Specification, s Source) error {
	if s.Kind != RequirementsFileSource {
		return errors.New("override sources must be requirements-listing files")
	}
	fp, err := parseRequirementsFile(s.Value, false, map[string]bool{})
	if err != nil {
		return err
	}
	// Overrides' own constraints are ignored (§4.B).
	spec.Overrides = append(spec.Overrides, fp.Requirements...)
	return nil
}

// addProjectManifest implements the "Project manifest" source kind
// (§4.B): discover the enclosing workspace, then BFS its DAG of
// workspace-internal editable references from the declared project,
// emitting each discovered member as an editable requirement and every
// non-workspace dependency as an ordinary requirement. A manifest lacking
// a project section is treated as a dynamic source tree instead.
func (a *Aggregator) addProjectManifest(spec *Specification, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "absolutizing %s", path)
	}
	m, err := a.Reader.Read(filepath.Join(abs, "pyproject.toml"))
	if err != nil {
		return err
	}
	if !m.HasProject() {
		spec.SourceTrees = append(spec.SourceTrees, SourceTree{Path: abs, Origin: Origin{File: abs}})
		return nil
	}
	pw, _, err := workspace.FromProjectRoot(a.Reader, abs, m)
	if err != nil {
		return err
	}
	if spec.Project == "" {
		spec.Project = pw.ProjectName
	}
	return a.emitWorkspaceDeps(spec, pw)
}

func (a *Aggregator) emitWorkspaceDeps(spec *Specification, pw *workspace.ProjectWorkspace) error {
	visited := map[string]bool{pw.ProjectName: true}
	queue := []string{pw.ProjectName}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		member, ok := pw.Workspace.Members[name]
		if !ok || !member.Manifest.HasProject() {
			continue
		}
		origin := Origin{File: filepath.Join(member.Path, "pyproject.toml")}

		for _, dep := range member.Manifest.Project.Dependencies {
			depName, _, _, err := splitNameExtrasVersion(stripMarker(dep))
			if err != nil {
				return errors.Wrapf(err, "parsing dependency %q of %q", dep, name)
			}

			if src, ok := pw.Workspace.Sources[depName]; ok && src.Workspace {
				depMember, exists := pw.Workspace.Members[depName]
				if !exists {
					return errors.Errorf("workspace source %q not found among workspace members", depName)
				}
				editable := true
				if src.Editable != nil {
					editable = *src.Editable
				}
				req := Requirement{
					Name:     depName,
					Locator:  VersionOrUrl{URL: &url.URL{Scheme: "file", Path: depMember.Path}},
					Editable: editable,
					Origin:   origin,
				}
				if editable {
					spec.Editables = append(spec.Editables, req)
				} else {
					spec.Requirements = append(spec.Requirements, req)
				}
				if !visited[depName] {
					visited[depName] = true
					queue = append(queue, depName)
				}
				continue
			}

			r, err := ParseRequirementLine(dep, origin)
			if err != nil {
				return err
			}
			spec.Requirements = append(spec.Requirements, r)
		}
	}
	return nil
}

func editableName(reader *manifest.Reader, absPath string) (string, error) {
	m, err := reader.Read(filepath.Join(absPath, "pyproject.toml"))
	if err != nil {
		return "", err
	}
	if !m.HasProject() {
		return "", errors.Wrapf(workspace.ErrMissingProject, "editable path %s", absPath)
	}
	return m.Project.Name, nil
}

func checkAmbiguousEditables(spec *Specification) error {
	seen := map[string]Requirement{}
	for _, r := range spec.Editables {
		if prior, ok := seen[r.Name]; ok {
			if prior.Locator.String() != r.Locator.String() {
				return errors.Wrapf(ErrAmbiguousEditable, "%q declared at %s and %s", r.Name, prior.Origin, r.Origin)
			}
			continue
		}
		seen[r.Name] = r
	}
	return nil
}

// mergeDirectivesInto folds a parsed requirements file's index/filter
// directives into the enclosing specification (§4.B merging semantics).
func mergeDirectivesInto(spec *Specification, fp *fileParse) error {
	if fp.Index.PrimaryURL != "" {
		if spec.Index.PrimaryURL == "" {
			spec.Index.PrimaryURL = fp.Index.PrimaryURL
		} else if canonURL(spec.Index.PrimaryURL) != canonURL(fp.Index.PrimaryURL) {
			return errors.Errorf("multiple index URLs: %s vs %s", spec.Index.PrimaryURL, fp.Index.PrimaryURL)
		}
	}
	spec.Index.ExtraURLs = append(spec.Index.ExtraURLs, fp.Index.ExtraURLs...)
	spec.Index.FlatIndex = append(spec.Index.FlatIndex, fp.Index.FlatIndex...)
	spec.Index.NoIndex = spec.Index.NoIndex || fp.Index.NoIndex
	spec.NoBinary = spec.NoBinary.Union(fp.NoBinary)
	spec.NoBuild = spec.NoBuild.Union(fp.NoBuild)
	return nil
}

func canonURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return urlx.Canonicalize(u).String()
}
