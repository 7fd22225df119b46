package dist

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/pysync/pysync/pkg/reqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReq(name, rawURL string, editable bool) reqs.Requirement {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return reqs.Requirement{Name: name, Locator: reqs.VersionOrUrl{URL: u}, Editable: editable}
}

func TestFromRequirement_DirectUrlBuilt(t *testing.T) {
	d, err := FromRequirement(mustReq("flask", "https://example.org/packages/flask-3.0.0-py3-none-any.whl", false))
	require.NoError(t, err)
	require.Equal(t, DirectUrlBuiltKind, d.Kind())
	assert.Equal(t, "flask", d.PackageName())
}

func TestFromRequirement_DirectUrlSource(t *testing.T) {
	d, err := FromRequirement(mustReq("foo", "https://github.com/org/repo/archive/master.zip", false))
	require.NoError(t, err)
	require.Equal(t, DirectUrlSourceKind, d.Kind())
}

func TestFromRequirement_PackageNameMismatch(t *testing.T) {
	d, err := FromRequirement(mustReq("bar", "https://example/foo-1.2-py3-none-any.whl", false))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPackageNameMismatch)
	require.Nil(t, d)
}

func TestFromRequirement_PathDirectory(t *testing.T) {
	dir := t.TempDir()
	u := &url.URL{Scheme: "file", Path: dir}
	d, err := FromRequirement(reqs.Requirement{Name: "my-lib", Locator: reqs.VersionOrUrl{URL: u}, Editable: true})
	require.NoError(t, err)
	require.Equal(t, DirectorySourceKind, d.Kind())
	ds := d.(*DirectorySource)
	assert.True(t, ds.Editable)
}

func TestFromRequirement_PathNotFound(t *testing.T) {
	u := &url.URL{Scheme: "file", Path: "/nonexistent/path/xyz"}
	_, err := FromRequirement(reqs.Requirement{Name: "x", Locator: reqs.VersionOrUrl{URL: u}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFromRequirement_EditableOnFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.tar.gz")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	u := &url.URL{Scheme: "file", Path: f}
	_, err := FromRequirement(reqs.Requirement{Name: "x", Locator: reqs.VersionOrUrl{URL: u}, Editable: true})
	require.ErrorIs(t, err, ErrEditableFile)
}

func TestFromRequirement_EditableOnHTTP(t *testing.T) {
	_, err := FromRequirement(mustReq("flask", "https://example.org/packages/flask-3.0.0-py3-none-any.whl", true))
	require.ErrorIs(t, err, ErrEditableFile)
}

func TestFromRequirement_EditableOnGit(t *testing.T) {
	_, err := FromRequirement(mustReq("mypkg", "git+https://github.com/org/mypkg.git@abc123", true))
	require.ErrorIs(t, err, ErrEditableFile)
}

func TestFromRequirement_Git(t *testing.T) {
	d, err := FromRequirement(mustReq("mypkg", "git+https://github.com/org/mypkg.git@abc123#subdirectory=sub", false))
	require.NoError(t, err)
	require.Equal(t, GitSourceKind, d.Kind())
	gs := d.(*GitSource)
	assert.Equal(t, "abc123", gs.Revision)
	assert.Equal(t, "subdirectory=sub", gs.Subdirectory)
	assert.Equal(t, "https", gs.Repo.Scheme)
}

func TestFromRequirement_NeedsResolver(t *testing.T) {
	_, err := FromRequirement(reqs.Requirement{Name: "flask", Locator: reqs.VersionOrUrl{Version: "==3.0.0"}})
	require.ErrorIs(t, err, ErrNeedsResolver)
}

// TestTaxonomyTotality asserts §8 property 1: every variant is
// producible and classification always yields exactly one.
func TestTaxonomyTotality(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pkg-1.0.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("x"), 0o644))
	wheel := filepath.Join(dir, "pkg-1.0-py3-none-any.whl")
	require.NoError(t, os.WriteFile(wheel, []byte("x"), 0o644))

	cases := []struct {
		name string
		req  reqs.Requirement
		want Kind
	}{
		{"direct-url-built", mustReq("pkg", "https://e/pkg-1.0-py3-none-any.whl", false), DirectUrlBuiltKind},
		{"direct-url-source", mustReq("pkg", "https://e/pkg.zip", false), DirectUrlSourceKind},
		{"path-built", reqs.Requirement{Name: "pkg", Locator: reqs.VersionOrUrl{URL: &url.URL{Scheme: "file", Path: wheel}}}, PathBuiltKind},
		{"path-source", reqs.Requirement{Name: "pkg", Locator: reqs.VersionOrUrl{URL: &url.URL{Scheme: "file", Path: archive}}}, PathSourceKind},
		{"directory-source", reqs.Requirement{Name: "pkg", Locator: reqs.VersionOrUrl{URL: &url.URL{Scheme: "file", Path: dir}}}, DirectorySourceKind},
		{"git-source", mustReq("pkg", "git+https://h/o/pkg.git", false), GitSourceKind},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := FromRequirement(c.req)
			require.NoError(t, err)
			require.Equal(t, c.want, d.Kind())
		})
	}
}
