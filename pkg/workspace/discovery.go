package workspace

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/internal/glob"
	"github.com/pysync/pysync/internal/manifest"
)

// Discover walks ancestors of startPath to find the nearest project root
// (§4.C rule 1), then resolves its enclosing workspace. Non-fatal findings
// (currently only NestedWorkspaceWarning) are returned alongside a nil
// error; any non-nil error is fatal.
func Discover(reader *manifest.Reader, startPath string) (*ProjectWorkspace, []error, error) {
	projectRoot, m, err := findProjectRoot(reader, startPath)
	if err != nil {
		return nil, nil, err
	}
	return FromProjectRoot(reader, projectRoot, m)
}

func findProjectRoot(reader *manifest.Reader, startPath string) (string, *manifest.PyProjectToml, error) {
	dir, err := filepath.Abs(startPath)
	if err != nil {
		return "", nil, errors.Wrap(err, "absolutizing start path")
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, "pyproject.toml")
		if _, err := os.Stat(candidate); err == nil {
			m, err := reader.Read(candidate)
			if err != nil {
				return "", nil, err
			}
			if m.HasProject() {
				return dir, m, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, ErrMissingPyprojectToml
}

// FromProjectRoot builds a ProjectWorkspace for a project whose root and
// decoded manifest are already known (§4.C rules 2-6).
func FromProjectRoot(reader *manifest.Reader, projectRoot string, m *manifest.PyProjectToml) (*ProjectWorkspace, []error, error) {
	projectName := m.Project.Name

	workspaceRoot := projectRoot
	workspaceManifest := m
	if ws := m.WorkspaceSection(); ws == nil {
		root, wm, found, err := findEnclosingWorkspace(reader, projectRoot)
		if err != nil {
			return nil, nil, err
		}
		if found {
			workspaceRoot, workspaceManifest = root, wm
		}
	}

	ws := newWorkspace(workspaceRoot)
	ws.upsert(Member{Name: projectName, Path: projectRoot, Manifest: m})

	if workspaceRoot != projectRoot && workspaceManifest.HasProject() {
		ws.upsert(Member{
			Name:     workspaceManifest.Project.Name,
			Path:     workspaceRoot,
			Manifest: workspaceManifest,
		})
	}

	var warnings []error
	if section := workspaceManifest.WorkspaceSection(); section != nil {
		for name, src := range workspaceManifest.Tool.Pysync.Sources {
			ws.Sources[name] = src
		}
		excludeDirs, err := expandAll(workspaceRoot, section.Exclude)
		if err != nil {
			return nil, nil, err
		}
		for _, pattern := range section.Members {
			dirs, err := glob.ExpandDirs(workspaceRoot, pattern)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "expanding member glob %q", pattern)
			}
			for _, dir := range dirs {
				if containsPath(excludeDirs, dir) {
					continue
				}
				memberManifestPath := filepath.Join(dir, "pyproject.toml")
				mm, err := reader.Read(memberManifestPath)
				if err != nil {
					return nil, nil, err
				}
				if !mm.HasProject() {
					return nil, nil, errors.Wrapf(ErrMissingProject, "at %s", dir)
				}
				ws.upsert(Member{Name: mm.Project.Name, Path: dir, Manifest: mm})
			}
		}
		if w := checkNestedWorkspace(reader, workspaceRoot); w != nil {
			warnings = append(warnings, w)
		}
	}

	return &ProjectWorkspace{
		ProjectRoot: projectRoot,
		ProjectName: projectName,
		Workspace:   ws,
	}, warnings, nil
}

// findEnclosingWorkspace implements §4.C rule 3/4: walk ancestors above
// project, returning the first workspace declaration found, unless the
// project is excluded from it, or an intervening ancestor declares a
// project section without a workspace section (rule 4: "example inside
// another project").
func findEnclosingWorkspace(reader *manifest.Reader, projectRoot string) (root string, wm *manifest.PyProjectToml, found bool, err error) {
	dir := filepath.Dir(projectRoot)
	for {
		candidate := filepath.Join(dir, "pyproject.toml")
		if _, statErr := os.Stat(candidate); statErr == nil {
			m, readErr := reader.Read(candidate)
			if readErr != nil {
				return "", nil, false, readErr
			}
			if section := m.WorkspaceSection(); section != nil {
				excluded, err := isExcluded(dir, section.Exclude, projectRoot)
				if err != nil {
					return "", nil, false, err
				}
				if excluded {
					return "", nil, false, nil
				}
				return dir, m, true, nil
			}
			if m.HasProject() {
				// Rule 4: project-without-workspace ancestor stops the search.
				return "", nil, false, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, false, nil
		}
		dir = parent
	}
}

// checkNestedWorkspace implements §4.C rule 6: warn (not fail) if
// workspaceRoot sits inside another workspace that does not exclude it.
func checkNestedWorkspace(reader *manifest.Reader, workspaceRoot string) error {
	dir := filepath.Dir(workspaceRoot)
	for {
		candidate := filepath.Join(dir, "pyproject.toml")
		if _, err := os.Stat(candidate); err == nil {
			m, err := reader.Read(candidate)
			if err != nil {
				return nil // unreadable outer manifest: not our error to raise here.
			}
			if section := m.WorkspaceSection(); section != nil {
				excluded, err := isExcluded(dir, section.Exclude, workspaceRoot)
				if err == nil && !excluded {
					return NestedWorkspaceWarning{Inner: workspaceRoot, Outer: dir}
				}
				return nil
			}
			// Non-workspace project ancestor: example/tests-in-project case, fine.
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func isExcluded(workspaceRoot string, excludeGlobs []string, target string) (bool, error) {
	dirs, err := expandAll(workspaceRoot, excludeGlobs)
	if err != nil {
		return false, err
	}
	return containsPath(dirs, target), nil
}

func expandAll(root string, patterns []string) ([]string, error) {
	var all []string
	for _, p := range patterns {
		dirs, err := glob.ExpandDirs(root, p)
		if err != nil {
			return nil, errors.Wrapf(err, "expanding exclude glob %q", p)
		}
		all = append(all, dirs...)
	}
	return all, nil
}

func containsPath(haystack []string, needle string) bool {
	for _, h := range haystack {
		if sameFile(h, needle) {
			return true
		}
	}
	return false
}

func sameFile(a, b string) bool {
	aAbs, errA := filepath.Abs(a)
	bAbs, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return aAbs == bAbs
}
