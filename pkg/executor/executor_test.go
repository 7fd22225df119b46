package executor

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pysync/pysync/pkg/cachestore"
	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/planner"
)

type fakeRegistry struct {
	downloads atomic.Int32
	content   string
	delay     time.Duration
}

func (f *fakeRegistry) FetchIndex(ctx context.Context, indexURL string) ([]contracts.IndexEntry, error) {
	return nil, nil
}

func (f *fakeRegistry) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f.downloads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, archivePath, dest string) error { return nil }

type fakeBuilder struct{}

func (fakeBuilder) BuildWheel(ctx context.Context, sourceDir string, env map[string]string) (string, error) {
	return sourceDir, nil
}

func newTestExecutor(t *testing.T, reg contracts.RegistryClient) (*Executor, string) {
	t.Helper()
	store, err := cachestore.NewFSStore(t.TempDir())
	require.NoError(t, err)
	cache := cachestore.NewCache(store, cachestore.WheelsBucket)
	envRoot := t.TempDir()
	e := New(cache, reg, fakeExtractor{}, fakeBuilder{}, Options{EnvRoot: envRoot, LinkMode: LinkCopy, Concurrency: 4})
	return e, envRoot
}

func directUrlDesired(t *testing.T, name, rawURL string) planner.Desired {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return planner.Desired{
		Name:    name,
		Version: "1.0",
		Distribution: &dist.DirectUrlBuilt{
			Filename: dist.WheelFilename{Name: name, Version: "1.0"},
			Location: u,
			Verbatim: u,
		},
	}
}

func TestFetchAll_ConcurrentSameResourceFetchesOnce(t *testing.T) {
	reg := &fakeRegistry{content: "wheel-bytes", delay: 20 * time.Millisecond}
	e, _ := newTestExecutor(t, reg)

	// Two distinct package names resolving to the exact same URL: the
	// at-most-once guarantee keys off resource identity, not name.
	remote := []planner.Desired{
		directUrlDesired(t, "pkg-a", "https://example.org/shared-1.0-py3-none-any.whl"),
		directUrlDesired(t, "pkg-b", "https://example.org/shared-1.0-py3-none-any.whl"),
	}

	units, err := e.fetchAll(context.Background(), remote)
	require.NoError(t, err)
	require.Len(t, units, 2)
	for _, u := range units {
		assert.NoError(t, u.Err)
		assert.NotEmpty(t, u.ArtifactPath)
	}
	assert.Equal(t, int32(1), reg.downloads.Load(), "concurrent requests for the same resource identity must fetch only once")
}

func TestFetchAll_DistinctResourcesBothFetch(t *testing.T) {
	reg := &fakeRegistry{content: "wheel-bytes"}
	e, _ := newTestExecutor(t, reg)

	remote := []planner.Desired{
		directUrlDesired(t, "pkg-a", "https://example.org/a-1.0-py3-none-any.whl"),
		directUrlDesired(t, "pkg-b", "https://example.org/b-1.0-py3-none-any.whl"),
	}
	_, err := e.fetchAll(context.Background(), remote)
	require.NoError(t, err)
	assert.Equal(t, int32(2), reg.downloads.Load())
}

func TestFetchAll_RequireHashesWithoutHashesIsFatal(t *testing.T) {
	reg := &fakeRegistry{content: "wheel-bytes"}
	e, _ := newTestExecutor(t, reg)
	e.Opts.RequireHashes = true

	remote := []planner.Desired{directUrlDesired(t, "pkg-a", "https://example.org/a-1.0-py3-none-any.whl")}
	_, err := e.fetchAll(context.Background(), remote)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatal)
}

func TestApply_UninstallsExtraneousBeforeLinkingRemote(t *testing.T) {
	reg := &fakeRegistry{content: "wheel-bytes"}
	e, envRoot := newTestExecutor(t, reg)

	extraneousDir := filepath.Join(envRoot, "old_pkg-0.1.dist-info")
	require.NoError(t, os.MkdirAll(extraneousDir, 0o755))

	plan := &planner.Plan{
		Extraneous: []contracts.InstalledDistribution{{Name: "old-pkg", Version: "0.1", InstallPath: extraneousDir}},
		Remote:     []planner.Desired{directUrlDesired(t, "new-pkg", "https://example.org/new-1.0-py3-none-any.whl")},
	}

	cs, err := e.Apply(context.Background(), plan)
	require.NoError(t, err)

	_, statErr := os.Stat(extraneousDir)
	assert.True(t, os.IsNotExist(statErr))

	_, statErr = os.Stat(filepath.Join(envRoot, "new-pkg-1.0.dist-info", "METADATA"))
	assert.NoError(t, statErr)

	require.Len(t, cs.Entries, 2)
}
