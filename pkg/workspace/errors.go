package workspace

import "github.com/pkg/errors"

// ErrMissingPyprojectToml is returned when no ancestor of the start path
// contains a pyproject.toml with a [project] section (§4.C rule 1).
var ErrMissingPyprojectToml = errors.New("no pyproject.toml with a [project] section found in any ancestor directory")

// ErrMissingProject is returned when a workspace member glob resolves to a
// directory whose pyproject.toml lacks a [project] section (§4.C rule 5).
var ErrMissingProject = errors.New("workspace member is missing a [project] section")

// NestedWorkspaceWarning is a non-fatal finding: a workspace root is
// itself inside another workspace that does not exclude it (§4.C rule 6,
// §7 "Discovery" / warning-only kind).
type NestedWorkspaceWarning struct {
	Inner string
	Outer string
}

func (w NestedWorkspaceWarning) Error() string {
	return "workspace at " + w.Inner + " is nested inside workspace at " + w.Outer + " without being excluded"
}
