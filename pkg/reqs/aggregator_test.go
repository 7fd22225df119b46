package reqs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseRequirementLine_VersionConstraint(t *testing.T) {
	r, err := ParseRequirementLine("requests[security]>=2.31,<3.0", Origin{})
	require.NoError(t, err)
	assert.Equal(t, "requests", r.Name)
	assert.Equal(t, []string{"security"}, r.Extras)
	assert.Equal(t, ">=2.31,<3.0", r.Locator.Version)
	assert.False(t, r.Locator.IsURL())
}

func TestParseRequirementLine_URL(t *testing.T) {
	r, err := ParseRequirementLine("mypkg @ https://example.org/mypkg-1.0-py3-none-any.whl", Origin{})
	require.NoError(t, err)
	assert.Equal(t, "mypkg", r.Name)
	require.True(t, r.Locator.IsURL())
	assert.Equal(t, "example.org", r.Locator.URL.Host)
}

func TestParseRequirementLine_Marker(t *testing.T) {
	r, err := ParseRequirementLine(`foo>=1.0; sys_platform == "linux"`, Origin{})
	require.NoError(t, err)
	assert.Equal(t, "foo", r.Name)
	assert.Equal(t, `sys_platform == "linux"`, r.Marker)
}

func TestParseRequirementLine_Hash(t *testing.T) {
	r, err := ParseRequirementLine("foo==1.0 --hash=sha256:abcd", Origin{})
	require.NoError(t, err)
	assert.Equal(t, "abcd", r.Hashes["sha256"])
}

func TestAggregator_BareName(t *testing.T) {
	spec, err := NewAggregator().FromSources(
		[]Source{{Kind: BareNameSource, Value: "flask>=3.0"}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, spec.Requirements, 1)
	assert.Equal(t, "flask", spec.Requirements[0].Name)
}

func TestAggregator_RequirementsFileWithNestedConstraints(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "constraints.txt"), "bar==2.0\n")
	writeFile(t, filepath.Join(dir, "requirements.txt"), "foo==1.0\n-c constraints.txt\n--index-url https://pypi.example/simple\n")

	spec, err := NewAggregator().FromSources(
		[]Source{{Kind: RequirementsFileSource, Value: filepath.Join(dir, "requirements.txt")}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, spec.Requirements, 1)
	assert.Equal(t, "foo", spec.Requirements[0].Name)
	require.Len(t, spec.Constraints, 1)
	assert.Equal(t, "bar", spec.Constraints[0].Name)
	assert.Equal(t, "https://pypi.example/simple", spec.Index.PrimaryURL)
}

func TestAggregator_ConstraintFileRejectsUnnamedEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "constraints.txt"), "https://example.org/mystery.tar.gz\n")

	_, err := NewAggregator().FromSources(nil,
		[]Source{{Kind: RequirementsFileSource, Value: filepath.Join(dir, "constraints.txt")}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnnamedConstraint)
}

func TestAggregator_ConflictingIndexURLsAreFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "requirements.txt"), "foo==1.0\n--index-url https://a.example/simple\n")
	writeFile(t, filepath.Join(dir, "constraints.txt"), "--index-url https://b.example/simple\n")

	_, err := NewAggregator().FromSources(
		[]Source{{Kind: RequirementsFileSource, Value: filepath.Join(dir, "requirements.txt")}},
		[]Source{{Kind: RequirementsFileSource, Value: filepath.Join(dir, "constraints.txt")}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple index URLs")
}

func TestAggregator_OverrideIgnoresItsOwnConstraints(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "override.txt"), "foo==9.9\n-c ignored.txt\n")
	writeFile(t, filepath.Join(dir, "ignored.txt"), "bar==1.0\n")

	spec, err := NewAggregator().FromSources(nil, nil,
		[]Source{{Kind: RequirementsFileSource, Value: filepath.Join(dir, "override.txt")}})
	require.NoError(t, err)
	require.Len(t, spec.Overrides, 1)
	assert.Equal(t, "foo", spec.Overrides[0].Name)
	assert.Empty(t, spec.Constraints)
}

func TestAggregator_ProjectManifestEmitsWorkspaceEditables(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), `
[project]
name = "app"
version = "0.1.0"
dependencies = ["lib", "requests>=2.0"]

[tool.pysync.workspace]
members = ["packages/*"]

[tool.pysync.sources]
lib = { workspace = true }
`)
	writeFile(t, filepath.Join(root, "packages", "lib", "pyproject.toml"), `
[project]
name = "lib"
version = "0.1.0"
dependencies = []
`)

	spec, err := NewAggregator().FromSources(
		[]Source{{Kind: ProjectManifestSource, Value: root}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "app", spec.Project)

	var names []string
	for _, r := range spec.Requirements {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "requests")
	assert.NotContains(t, names, "lib")

	require.Len(t, spec.Editables, 1)
	assert.Equal(t, "lib", spec.Editables[0].Name)
}

func TestAggregator_ProjectManifestWithoutProjectSectionIsSourceTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pyproject.toml"), `
[build-system]
requires = ["setuptools"]
`)
	spec, err := NewAggregator().FromSources(
		[]Source{{Kind: ProjectManifestSource, Value: dir}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, spec.SourceTrees, 1)
}

func TestAggregator_AmbiguousEditableIsFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), `
[project]
name = "app"
version = "0.1.0"
dependencies = ["lib"]

[tool.pysync.workspace]
members = ["packages/*"]

[tool.pysync.sources]
lib = { workspace = true }
`)
	writeFile(t, filepath.Join(root, "packages", "lib", "pyproject.toml"), `
[project]
name = "lib"
version = "0.1.0"
`)
	otherLib := t.TempDir()
	writeFile(t, filepath.Join(otherLib, "pyproject.toml"), `
[project]
name = "lib"
version = "9.0.0"
`)

	_, err := NewAggregator().FromSources(
		[]Source{
			{Kind: ProjectManifestSource, Value: root},
			{Kind: EditablePathSource, Value: otherLib},
		}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousEditable)
}

func TestAggregator_Idempotence(t *testing.T) {
	// §8 property 3: merging a specification with itself equals itself,
	// approximated here at the source level: aggregating the same sources
	// twice through one Aggregator yields equal requirement lists.
	a := NewAggregator()
	sources := []Source{{Kind: BareNameSource, Value: "foo==1.0"}}
	spec1, err := a.FromSources(sources, nil, nil)
	require.NoError(t, err)
	spec2, err := a.FromSources(sources, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, spec1.Requirements, spec2.Requirements)
}
