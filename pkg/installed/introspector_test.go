package installed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pysync/pysync/pkg/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSitePackages_RegistryInstall(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "flask-3.0.0.dist-info", "METADATA"), "Name: flask\nVersion: 3.0.0\n\n")

	dists, err := FSIntrospector{}.SitePackages(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.Equal(t, "flask", dists[0].Name)
	assert.Equal(t, "3.0.0", dists[0].Version)
	assert.Nil(t, dists[0].DirectURL)
}

func TestSitePackages_URLInstallHasProvenance(t *testing.T) {
	root := t.TempDir()
	distInfo := filepath.Join(root, "mylib-0.0.1.dist-info")
	writeFile(t, filepath.Join(distInfo, "METADATA"), "Name: mylib\nVersion: 0.0.1\n\n")
	writeFile(t, filepath.Join(distInfo, "direct_url.json"), `{"url": "file:///home/me/mylib", "dir_info": {"editable": true}}`)

	dists, err := FSIntrospector{}.SitePackages(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, dists, 1)
	require.NotNil(t, dists[0].DirectURL)
	assert.True(t, dists[0].DirectURL.Editable)
	assert.Equal(t, "file:///home/me/mylib", dists[0].DirectURL.URL)
}

func TestSitePackages_EmptyRootIsNotAnError(t *testing.T) {
	dists, err := FSIntrospector{}.SitePackages(context.Background(), filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, dists)
}

func TestWriteDirectURL_RoundTrip(t *testing.T) {
	distInfo := t.TempDir()
	want := &contracts.DirectURLProvenance{URL: "git+https://github.com/org/repo", VCS: "git", Revision: "abc123"}
	require.NoError(t, WriteDirectURL(distInfo, want))

	got, err := ReadDirectURL(distInfo)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.VCS, got.VCS)
	assert.Equal(t, want.Revision, got.Revision)
}
