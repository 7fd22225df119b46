package planner

import (
	"testing"
	"time"

	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/reqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	entries map[string][]CacheEntry // keyed by package name
}

func (f fakeCache) Lookup(name string, identity dist.Identity) ([]CacheEntry, error) {
	return f.entries[name], nil
}

func registryDesired(name, version string) Desired {
	return Desired{
		Name:    name,
		Version: version,
		Distribution: &dist.RegistryBuilt{
			Name: name,
			Wheels: []dist.RegistryBuiltWheel{
				{Filename: dist.WheelFilename{Name: name, Version: version}, URL: "https://pypi.example/" + name + "-" + version + "-py3-none-any.whl"},
			},
			Best: 0,
		},
	}
}

func TestPlan_AlreadyInstalledIsSkipped(t *testing.T) {
	d := registryDesired("flask", "3.0.0")
	snapshot := []contracts.InstalledDistribution{{Name: "flask", Version: "3.0.0"}}

	plan, err := Build([]Desired{d}, snapshot, fakeCache{}, Options{})
	require.NoError(t, err)
	assert.Empty(t, plan.Cached)
	assert.Empty(t, plan.Remote)
	assert.Empty(t, plan.Reinstalls)
}

func TestPlan_DifferentVersionIsReinstallPlusRemote(t *testing.T) {
	d := registryDesired("flask", "3.0.0")
	snapshot := []contracts.InstalledDistribution{{Name: "flask", Version: "2.0.0"}}

	plan, err := Build([]Desired{d}, snapshot, fakeCache{}, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Reinstalls, 1)
	assert.Equal(t, "2.0.0", plan.Reinstalls[0].Version)
	require.Len(t, plan.Remote, 1)
	assert.Empty(t, plan.Cached)
}

func TestPlan_CachedWhenEntryPresent(t *testing.T) {
	d := registryDesired("flask", "3.0.0")
	cache := fakeCache{entries: map[string][]CacheEntry{
		"flask": {{Version: "3.0.0", Path: "/cache/flask", IsWheel: true, TouchedAt: time.Now()}},
	}}

	plan, err := Build([]Desired{d}, nil, cache, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Cached, 1)
	assert.Equal(t, "/cache/flask", plan.Cached[0].Entry.Path)
	assert.Empty(t, plan.Remote)
}

func TestPlan_MostRecentlyTouchedWinsTie(t *testing.T) {
	d := registryDesired("flask", "3.0.0")
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	cache := fakeCache{entries: map[string][]CacheEntry{
		"flask": {
			{Version: "3.0.0", Path: "/cache/old", IsWheel: true, TouchedAt: older},
			{Version: "3.0.0", Path: "/cache/new", IsWheel: true, TouchedAt: newer},
		},
	}}

	plan, err := Build([]Desired{d}, nil, cache, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Cached, 1)
	assert.Equal(t, "/cache/new", plan.Cached[0].Entry.Path)
}

func TestPlan_NoBinaryFiltersOutWheelCacheEntry(t *testing.T) {
	d := registryDesired("flask", "3.0.0")
	cache := fakeCache{entries: map[string][]CacheEntry{
		"flask": {{Version: "3.0.0", Path: "/cache/flask.whl", IsWheel: true, TouchedAt: time.Now()}},
	}}
	opts := Options{NoBinary: reqs.BuildFilterSet{Names: map[string]bool{"flask": true}}}

	plan, err := Build([]Desired{d}, nil, cache, opts)
	require.NoError(t, err)
	assert.Empty(t, plan.Cached)
	require.Len(t, plan.Remote, 1)
}

func TestPlan_RequireHashesWithNoMatchGoesRemote(t *testing.T) {
	d := registryDesired("flask", "3.0.0")
	d.Hashes = map[string]string{"sha256": "want"}
	cache := fakeCache{entries: map[string][]CacheEntry{
		"flask": {{Version: "3.0.0", Path: "/cache/flask.whl", IsWheel: true, Hashes: map[string]string{"sha256": "other"}, TouchedAt: time.Now()}},
	}}

	plan, err := Build([]Desired{d}, nil, cache, Options{RequireHashes: true})
	require.NoError(t, err)
	assert.Empty(t, plan.Cached)
	require.Len(t, plan.Remote, 1)
}

func TestPlan_EditableNeverUsesCache(t *testing.T) {
	d := Desired{
		Name:     "mylib",
		Version:  "0.0.0",
		Editable: true,
		Distribution: &dist.DirectorySource{Name: "mylib", Path: "/src/mylib", Editable: true},
	}
	cache := fakeCache{entries: map[string][]CacheEntry{
		"mylib": {{Version: "0.0.0", Path: "/cache/mylib", IsWheel: true, TouchedAt: time.Now()}},
	}}

	plan, err := Build([]Desired{d}, nil, cache, Options{})
	require.NoError(t, err)
	assert.Empty(t, plan.Cached)
	require.Len(t, plan.Remote, 1)
}

func TestPlan_StrictModeMarksUnmatchedExtraneous(t *testing.T) {
	snapshot := []contracts.InstalledDistribution{{Name: "leftover", Version: "1.0.0"}}
	plan, err := Build(nil, snapshot, fakeCache{}, Options{Strict: true})
	require.NoError(t, err)
	require.Len(t, plan.Extraneous, 1)
	assert.Equal(t, "leftover", plan.Extraneous[0].Name)
}

func TestPlan_NonStrictModeLeavesUnmatchedAlone(t *testing.T) {
	snapshot := []contracts.InstalledDistribution{{Name: "leftover", Version: "1.0.0"}}
	plan, err := Build(nil, snapshot, fakeCache{}, Options{Strict: false})
	require.NoError(t, err)
	assert.Empty(t, plan.Extraneous)
}

func TestPlan_Disjointness(t *testing.T) {
	// §8 property 4: cached, remote and extraneous are pairwise disjoint
	// over names; a reinstalled name also appears once in cached or remote
	// for its replacement.
	desired := []Desired{registryDesired("a", "1.0.0"), registryDesired("b", "1.0.0")}
	snapshot := []contracts.InstalledDistribution{
		{Name: "a", Version: "0.9.0"},
		{Name: "c", Version: "1.0.0"},
	}
	cache := fakeCache{entries: map[string][]CacheEntry{
		"b": {{Version: "1.0.0", Path: "/cache/b", IsWheel: true, TouchedAt: time.Now()}},
	}}

	plan, err := Build(desired, snapshot, cache, Options{Strict: true})
	require.NoError(t, err)

	names := map[string]int{}
	for _, c := range plan.Cached {
		names[c.Desired.Name]++
	}
	for _, r := range plan.Remote {
		names[r.Name]++
	}
	for _, r := range plan.Reinstalls {
		names[r.Name]++
	}
	for _, e := range plan.Extraneous {
		names[e.Name]++
	}
	assert.Equal(t, 2, names["a"]) // reinstall of 0.9.0 plus remote for 1.0.0
	assert.Equal(t, 1, names["b"]) // cached only
	assert.Equal(t, 1, names["c"]) // extraneous only
}
