// Package contracts declares the external collaborators the sync
// pipeline depends on (§6): the dependency-version solver, the wheel-tag
// compatibility oracle, the archive extractor, the HTTP registry client,
// the builder and the installed-environment introspector. The pipeline
// treats each as opaque; this package exists so every other package can
// depend on a narrow interface instead of a concrete implementation.
package contracts

import (
	"context"
	"io"

	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/reqs"
)

// ResolveError is returned by Resolver.Resolve when the solver cannot
// produce a consistent set, e.g. conflicting version constraints.
type ResolveError struct {
	Reason string
}

func (e *ResolveError) Error() string { return "resolution failed: " + e.Reason }

// Resolver is the external dependency-version solver (§6). It is given
// the normalized Specification's requirement set and returns one
// concrete Distribution per package name.
type Resolver interface {
	Resolve(ctx context.Context, requirements, constraints, overrides []reqs.Requirement, markers, tags string) (map[string]dist.Distribution, error)
}

// IndexEntry is one candidate artifact as advertised by a registry index.
type IndexEntry struct {
	Filename string
	URL      string
	Hashes   map[string]string
	Yanked   bool
	Size     int64
}

// RegistryClient is the external HTTP registry client (§6).
type RegistryClient interface {
	FetchIndex(ctx context.Context, indexURL string) ([]IndexEntry, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Extractor is the external archive extractor (§6): deliberately out of
// scope for this repo to implement, since low-level archive extraction
// formats (zip, tar.gz) are a solved, reusable concern.
type Extractor interface {
	Extract(ctx context.Context, archivePath, dest string) error
}

// Builder is the external sdist-to-wheel builder (§6).
type Builder interface {
	BuildWheel(ctx context.Context, sourceDir string, env map[string]string) (builtArtifactPath string, err error)
}

// CompatibilityOracle is the external wheel-tag compatibility computation
// (§6).
type CompatibilityOracle interface {
	IsCompatible(filename string, platformTags []string) bool
	BestOf(filenames []string, platformTags []string) (int, error)
}

// InstalledDistribution is one package present in an environment's
// site-packages (§3.6).
type InstalledDistribution struct {
	Name        string
	Version     string
	InstallPath string
	// DirectURL records whether this install originated from a URL/path
	// rather than a registry, and if so, the details needed to
	// reconstruct the original variant (§6 "Direct-URL provenance file").
	DirectURL *DirectURLProvenance
}

// DirectURLProvenance is the small structured document written into an
// installed distribution's metadata directory when its source was a
// URL/path (§6).
type DirectURLProvenance struct {
	URL          string
	Subdirectory string
	VCS          string
	Revision     string
	Editable     bool
}

// EnvIntrospector is the external installed-environment introspector
// (§6).
type EnvIntrospector interface {
	SitePackages(ctx context.Context, root string) ([]InstalledDistribution, error)
}

// HashComputer is the external streaming hash-over-reader contract (§6).
// internal/hashext.VerifyStream is a plain function with Verify's
// signature; no type in this repository implements HashComputer.
type HashComputer interface {
	Verify(r io.Reader, want map[string]string) error
}
