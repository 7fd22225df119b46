// Package planner implements installation planning (§4.D): partitioning
// a desired, fully-resolved requirement set against a live site-packages
// snapshot into four disjoint classes.
package planner

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/reqs"
)

// Desired is one requirement already resolved to a concrete distribution,
// the planner's per-unit input.
type Desired struct {
	Name           string
	Version        string
	Distribution   dist.Distribution
	Editable       bool
	Hashes         map[string]string
	ForceReinstall bool
}

// Options carries the caller-selected policy knobs the planner consults
// (§4.D tie-break rules and edge cases).
type Options struct {
	Strict        bool // emit Extraneous for every unmatched installed entry
	RequireHashes bool
	NoBinary      reqs.BuildFilterSet
	NoBuild       reqs.BuildFilterSet
}

// CacheEntry is one candidate artifact already present in the local
// cache, as reported by a CacheLookup.
type CacheEntry struct {
	Version   string
	Path      string
	Hashes    map[string]string
	TouchedAt time.Time
	IsWheel   bool // false marks a cached sdist/build-from-source artifact.
}

// CacheLookup is consulted for each Desired distribution (§4.D step 1,
// third bullet). pkg/cachestore implements it.
type CacheLookup interface {
	Lookup(name string, identity dist.Identity) ([]CacheEntry, error)
}

// CachedPlacement pairs a Desired distribution with the cache entry the
// planner chose to satisfy it.
type CachedPlacement struct {
	Desired Desired
	Entry   CacheEntry
}

// Plan is the four-way partition §4.D's contract produces.
type Plan struct {
	Cached     []CachedPlacement
	Remote     []Desired
	Reinstalls []contracts.InstalledDistribution
	Extraneous []contracts.InstalledDistribution
}

// Build implements the planner contract: given the desired requirement
// set and the live site-packages snapshot, produce Cached, Remote,
// Reinstalls and Extraneous.
func Build(desired []Desired, snapshot []contracts.InstalledDistribution, cache CacheLookup, opts Options) (*Plan, error) {
	plan := &Plan{}

	byName := map[string][]contracts.InstalledDistribution{}
	for _, inst := range snapshot {
		byName[inst.Name] = append(byName[inst.Name], inst)
	}
	matchedNames := map[string]bool{}

	for _, d := range desired {
		matchedNames[d.Name] = true
		existing := byName[d.Name]
		origin := desiredOriginKey(d.Distribution)

		var exactMatch bool
		for _, inst := range existing {
			if inst.Version == d.Version && installedOriginKey(inst) == origin {
				exactMatch = true
				break
			}
		}
		if exactMatch && !d.ForceReinstall {
			continue // skip: already installed, no class (§4.D step 1 first bullet).
		}
		if len(existing) > 0 || d.ForceReinstall {
			plan.Reinstalls = append(plan.Reinstalls, existing...)
		}

		// Editable requirements always resolve to a DirectorySource and
		// never match a cached built artifact (§4.D tie-break rules).
		if d.Editable {
			plan.Remote = append(plan.Remote, d)
			continue
		}

		identity := dist.DistributionIdentity(d.Distribution)
		candidates, err := cache.Lookup(d.Name, identity)
		if err != nil {
			return nil, errors.Wrapf(err, "consulting cache for %s", d.Name)
		}
		candidates = filterByBuildPolicy(candidates, d.Name, opts)
		if opts.RequireHashes {
			candidates = filterByHash(candidates, d.Hashes)
		}
		if best, ok := pickBest(candidates, d.Version); ok {
			plan.Cached = append(plan.Cached, CachedPlacement{Desired: d, Entry: best})
		} else {
			// No usable cache entry; also covers require_hashes with no
			// matching hash, which is pushed to remote to fail loudly
			// there (§4.D edge case).
			plan.Remote = append(plan.Remote, d)
		}
	}

	if opts.Strict {
		for name, insts := range byName {
			if matchedNames[name] {
				continue
			}
			plan.Extraneous = append(plan.Extraneous, insts...)
		}
	}

	return plan, nil
}

func filterByBuildPolicy(candidates []CacheEntry, name string, opts Options) []CacheEntry {
	var out []CacheEntry
	for _, c := range candidates {
		if c.IsWheel && opts.NoBinary.Contains(name) {
			continue
		}
		if !c.IsWheel && opts.NoBuild.Contains(name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func filterByHash(candidates []CacheEntry, want map[string]string) []CacheEntry {
	if len(want) == 0 {
		return nil
	}
	var out []CacheEntry
	for _, c := range candidates {
		for algo, digest := range want {
			if c.Hashes[algo] == digest {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// pickBest implements the tie-break rule: among candidates at the exact
// resolved version, prefer the most recently touched directory. Version
// comparison proper (PEP 440 ordering) belongs to the external Resolver;
// by the time a Desired reaches the planner its version is already fixed,
// so only recency discriminates between duplicate cache entries.
func pickBest(candidates []CacheEntry, version string) (CacheEntry, bool) {
	var matches []CacheEntry
	for _, c := range candidates {
		if c.Version == version {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return CacheEntry{}, false
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].TouchedAt.After(matches[j].TouchedAt)
	})
	return matches[0], true
}

func desiredOriginKey(d dist.Distribution) string {
	switch d.(type) {
	case *dist.RegistryBuilt, *dist.RegistrySource:
		return "registry"
	default:
		return string(dist.ResourceIdentity(d))
	}
}

func installedOriginKey(inst contracts.InstalledDistribution) string {
	if inst.DirectURL == nil {
		return "registry"
	}
	if inst.DirectURL.VCS != "" {
		return "g:" + inst.DirectURL.URL
	}
	return "u:" + inst.DirectURL.URL
}
