// Package workspace implements workspace discovery (§3.5, §4.C): locating
// a project root, its enclosing workspace, and that workspace's members.
package workspace

import (
	"github.com/pysync/pysync/internal/manifest"
)

// Member is one package inside a Workspace: its absolute path and decoded
// manifest.
type Member struct {
	Name     string
	Path     string
	Manifest *manifest.PyProjectToml
}

// Workspace is a directory containing a manifest that declares members by
// glob (§3.5). Members is a map; OrderedMembers returns the members in
// discovery order. Names are unique
// (last write wins within one workspace, per §4.C rule 5's "last write
// wins" semantics for re-declared members).
type Workspace struct {
	Root        string
	order       []string
	Members     map[string]Member
	// Sources is the workspace-wide table of how to resolve
	// workspace-internal dependency references, keyed by dependency name.
	Sources map[string]manifest.Source
}

func newWorkspace(root string) *Workspace {
	return &Workspace{
		Root:    root,
		Members: map[string]Member{},
		Sources: map[string]manifest.Source{},
	}
}

func (w *Workspace) upsert(m Member) {
	if _, exists := w.Members[m.Name]; !exists {
		w.order = append(w.order, m.Name)
	}
	w.Members[m.Name] = m
}

// OrderedMembers returns members in the order they were first discovered.
func (w *Workspace) OrderedMembers() []Member {
	out := make([]Member, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.Members[name])
	}
	return out
}

// ProjectWorkspace pairs a specific project with its enclosing Workspace,
// which may be a degenerate one-member workspace identical to the project
// (§3.5).
type ProjectWorkspace struct {
	ProjectRoot string
	ProjectName string
	Workspace   *Workspace
}

// IsStandalone reports whether the project is not part of any
// multi-member workspace: its own root IS the workspace root and it is
// the workspace's only member.
func (pw *ProjectWorkspace) IsStandalone() bool {
	return pw.Workspace.Root == pw.ProjectRoot && len(pw.Workspace.Members) == 1
}
