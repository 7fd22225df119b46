// Package executor implements §4.E: applying a planner.Plan to an
// environment root in an order that preserves monotonicity, with a
// bounded concurrent fetch stage guaranteeing at-most-once fetch per
// resource.
package executor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pysync/pysync/internal/cache"
	"github.com/pysync/pysync/pkg/cachestore"
	"github.com/pysync/pysync/pkg/contracts"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/planner"
	"github.com/pysync/pysync/pkg/report"
)

// ErrFatal wraps the fetch failures that short-circuit the fetch stage:
// under require_hashes, an artifact with no declared hashes or whose
// digest matches none of them. Package-name mismatches in artifact
// filenames are rejected before the executor, by dist.FromRequirement.
var ErrFatal = errors.New("fatal executor failure")

// Options carries the caller-selected policy knobs for one sync run
// (mirrors the "Produced surface" of §6).
type Options struct {
	EnvRoot       string
	LinkMode      LinkMode
	Concurrency   int
	RequireHashes bool
	CompileBytecode bool
	// RunID namespaces this run's scratch temp files, so two concurrent
	// `pysync sync` invocations against different environments never
	// collide in the OS temp directory.
	RunID string
}

// Unit is one per-distribution outcome of the fetch stage, threaded
// through to the link stage.
type Unit struct {
	Desired    planner.Desired
	ArtifactPath string
	Err        error
}

// Executor wires the external contracts (§6) and the cache store into the
// stage pipeline.
type Executor struct {
	Cache    *cachestore.Cache
	Registry contracts.RegistryClient
	Extractor contracts.Extractor
	Builder  contracts.Builder
	GitFetcher GitFetcher // optional; nil rejects git-sourced distributions.
	Opts     Options

	inflight cache.Coalescing // singleflight keyed by resource identity: the core at-most-once guarantee.
}

// New builds an Executor.
func New(c *cachestore.Cache, registry contracts.RegistryClient, extractor contracts.Extractor, builder contracts.Builder, opts Options) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &Executor{Cache: c, Registry: registry, Extractor: extractor, Builder: builder, Opts: opts}
}

// Apply runs the four-stage pipeline of §4.E against plan and returns the
// resulting change report.
func (e *Executor) Apply(ctx context.Context, plan *planner.Plan) (*report.ChangeSet, error) {
	// Stage 1: uninstall extraneous ∪ reinstalls. Uninstall precedes
	// install to free conflicting file paths (§4.E ordering).
	for _, inst := range plan.Extraneous {
		if err := uninstall(inst); err != nil {
			return nil, errors.Wrapf(err, "uninstalling extraneous %s", inst.Name)
		}
	}
	for _, inst := range plan.Reinstalls {
		if err := uninstall(inst); err != nil {
			return nil, errors.Wrapf(err, "uninstalling %s for reinstall", inst.Name)
		}
	}

	// Stage 2: fetch-and-build remote, bounded concurrency, singleflight
	// per resource identity.
	fetched, err := e.fetchAll(ctx, plan.Remote)
	if err != nil {
		return nil, err
	}

	// Stage 3: link remote ∪ cached. No link may begin before every
	// uninstall has completed; that barrier is implicit since stage 1 ran
	// to completion above.
	var units []Unit
	units = append(units, fetched...)
	for _, c := range plan.Cached {
		units = append(units, Unit{Desired: c.Desired, ArtifactPath: c.Entry.Path})
	}

	var linkErrs []error
	for _, u := range units {
		if u.Err != nil {
			linkErrs = append(linkErrs, u.Err)
			continue
		}
		if err := e.link(u); err != nil {
			linkErrs = append(linkErrs, errors.Wrapf(err, "linking %s", u.Desired.Name))
		}
	}
	if len(linkErrs) > 0 {
		return nil, errors.Errorf("%d unit(s) failed: %v", len(linkErrs), linkErrs)
	}

	// Stage 4: optional bytecode compile. Out of scope to implement here
	// (external compiler, per §6); a real caller would shell out per
	// installed .py file under e.Opts.EnvRoot when CompileBytecode is set.

	return report.Build(plan, units2Installs(units)), nil
}

func units2Installs(units []Unit) []report.Install {
	out := make([]report.Install, 0, len(units))
	for _, u := range units {
		if u.Err != nil {
			continue
		}
		out = append(out, report.Install{Name: u.Desired.Name, Version: u.Desired.Version, Distribution: u.Desired.Distribution})
	}
	return out
}

// fetchAll runs the fetch stage: bounded fan-out, singleflight per
// resource identity, no short-circuit except for ErrFatal (§4.E).
func (e *Executor) fetchAll(ctx context.Context, remote []planner.Desired) ([]Unit, error) {
	units := make([]Unit, len(remote))
	eg, eCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.Opts.Concurrency)

	for i, d := range remote {
		i, d := i, d
		eg.Go(func() error {
			path, err := e.fetchOne(eCtx, d)
			units[i] = Unit{Desired: d, ArtifactPath: path, Err: err}
			if errors.Is(err, ErrFatal) {
				return err // the only case that short-circuits the stage.
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}

// fetchOne fetches or builds one distribution, deduplicating concurrent
// requests for the same resource identity through e.inflight — the
// at-most-once fetch guarantee.
func (e *Executor) fetchOne(ctx context.Context, d planner.Desired) (string, error) {
	key := dist.ResourceIdentity(d.Distribution)
	v, err := e.inflight.GetOrSet(key, func() (any, error) {
		return e.fetchDistribution(ctx, d)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// tempPrefix builds an os.CreateTemp/MkdirTemp pattern namespaced by the
// run's id, falling back to a bare stage prefix when no RunID was set.
func (e *Executor) tempPrefix(stage string) string {
	if e.Opts.RunID == "" {
		return "pysync-" + stage + "-*"
	}
	return "pysync-" + stage + "-" + e.Opts.RunID + "-*"
}

func uninstall(inst contracts.InstalledDistribution) error {
	if inst.InstallPath == "" {
		return nil
	}
	return errors.Wrapf(os.RemoveAll(inst.InstallPath), "removing %s", inst.InstallPath)
}

func (e *Executor) link(u Unit) error {
	distInfoName := u.Desired.Name + "-" + u.Desired.Version + ".dist-info"
	distInfoDir := filepath.Join(e.Opts.EnvRoot, distInfoName)
	if err := os.MkdirAll(distInfoDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", distInfoDir)
	}

	metadata := "Name: " + u.Desired.Name + "\nVersion: " + u.Desired.Version + "\n\n"
	if err := os.WriteFile(filepath.Join(distInfoDir, "METADATA"), []byte(metadata), 0o644); err != nil {
		return errors.Wrap(err, "writing METADATA")
	}

	if prov := directURLFor(u.Desired); prov != nil {
		if err := writeProvenance(distInfoDir, prov); err != nil {
			return err
		}
	}

	if u.Desired.Editable {
		return nil // editable installs point at the source tree in place; no file payload to link.
	}
	if u.ArtifactPath == "" {
		return nil
	}
	dest := filepath.Join(e.Opts.EnvRoot, u.Desired.Name+"-"+u.Desired.Version+".whl")
	r, err := e.Cache.Fetch(context.Background(), u.ArtifactPath)
	if err != nil {
		return errors.Wrapf(err, "fetching cached artifact %s", u.ArtifactPath)
	}
	defer r.Close()
	tmp, err := os.CreateTemp(e.Opts.EnvRoot, e.tempPrefix("link"))
	if err != nil {
		return errors.Wrap(err, "staging link source")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.ReadFrom(r); err != nil {
		tmp.Close()
		return errors.Wrap(err, "staging link source")
	}
	tmp.Close()
	return PlaceFile(tmp.Name(), dest, e.Opts.LinkMode, true)
}
