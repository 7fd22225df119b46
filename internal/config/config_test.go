package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Nil(t, opts)
}

func TestLoad_DecodesDeclaredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pysync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index_url: https://example.org/simple
require_hashes: true
strict: true
concurrency: 4
link_mode: copy
`), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, opts)
	assert.Equal(t, "https://example.org/simple", opts.IndexURL)
	assert.True(t, opts.RequireHashes)
	assert.True(t, opts.Strict)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, "copy", opts.LinkMode)
}

func TestLoad_MalformedYamlIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pysync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
