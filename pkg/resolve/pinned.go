// Package resolve provides PinnedResolver, a deliberately narrow
// implementation of the Resolver contract (§6): it satisfies URL-style
// requirements directly via the distribution taxonomy and exact-pin
// ("==x.y.z") requirements via a single index lookup, but refuses
// anything needing real PEP 440 range solving. A full solver is outside
// this repo's scope (§1 Non-goals); PinnedResolver exists so cmd/pysync
// has something runnable for the common fully-pinned-lockfile case.
package resolve

import (
	"context"
	"strings"

	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/reqs"
)

// PinnedResolver resolves a requirement set against a single index using
// the compatibility oracle to pick the best wheel per exact version pin.
type PinnedResolver struct {
	Registry     contracts.RegistryClient
	Oracle       contracts.CompatibilityOracle
	IndexURL     string
	PlatformTags []string
}

var _ contracts.Resolver = &PinnedResolver{}

// Resolve implements contracts.Resolver.
func (p *PinnedResolver) Resolve(ctx context.Context, requirements, constraints, overrides []reqs.Requirement, markers, tags string) (map[string]dist.Distribution, error) {
	effective := applyOverrides(requirements, overrides)

	out := make(map[string]dist.Distribution, len(effective))
	for _, r := range effective {
		d, err := p.resolveOne(ctx, r)
		if err != nil {
			return nil, err
		}
		out[r.Name] = d
	}
	return out, nil
}

func applyOverrides(requirements, overrides []reqs.Requirement) []reqs.Requirement {
	byName := make(map[string]reqs.Requirement, len(overrides))
	for _, o := range overrides {
		byName[o.Name] = o
	}
	out := make([]reqs.Requirement, len(requirements))
	for i, r := range requirements {
		if o, ok := byName[r.Name]; ok {
			out[i] = o
		} else {
			out[i] = r
		}
	}
	return out
}

func (p *PinnedResolver) resolveOne(ctx context.Context, r reqs.Requirement) (dist.Distribution, error) {
	d, err := dist.FromRequirement(r)
	if err == nil {
		return d, nil
	}
	if err != dist.ErrNeedsResolver {
		return nil, err
	}

	pin, ok := exactPin(r.Locator.Version)
	if !ok {
		return nil, &contracts.ResolveError{Reason: "requirement \"" + r.String() + "\" needs range solving, which this resolver does not perform"}
	}

	entries, err := p.Registry.FetchIndex(ctx, p.indexURLFor(r.Name))
	if err != nil {
		return nil, err
	}

	var candidates []dist.RegistryBuiltWheel
	var filenames []string
	for _, e := range entries {
		if e.Yanked || !dist.IsWheelFilename(e.Filename) {
			continue
		}
		wf, err := dist.ParseWheelFilename(e.Filename)
		if err != nil || wf.Version != pin {
			continue
		}
		candidates = append(candidates, dist.RegistryBuiltWheel{
			Filename: wf, URL: e.URL, Index: p.indexURLFor(r.Name), Hashes: e.Hashes, Size: e.Size,
		})
		filenames = append(filenames, e.Filename)
	}
	if len(candidates) == 0 {
		return nil, &contracts.ResolveError{Reason: "no compatible wheel found for " + r.Name + "==" + pin}
	}

	best := 0
	if p.Oracle != nil {
		best, err = p.Oracle.BestOf(filenames, p.PlatformTags)
		if err != nil {
			return nil, err
		}
	}
	return &dist.RegistryBuilt{Name: r.Name, Wheels: candidates, Best: best}, nil
}

func (p *PinnedResolver) indexURLFor(name string) string {
	return strings.TrimRight(p.IndexURL, "/") + "/" + name + "/"
}

func exactPin(version string) (string, bool) {
	v := strings.TrimSpace(version)
	if !strings.HasPrefix(v, "==") {
		return "", false
	}
	v = strings.TrimPrefix(v, "==")
	if strings.ContainsAny(v, ",<>!~ ") {
		return "", false
	}
	return v, true
}
