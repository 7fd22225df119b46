package executor

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/pysync/pysync/internal/hashext"
	"github.com/pysync/pysync/pkg/cachestore"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/planner"
)

// GitFetcher checks out a git-sourced distribution into a local directory.
// Implemented by pkg/source/git; declared here so that package doesn't
// need to import executor.
type GitFetcher interface {
	Fetch(ctx context.Context, repo, revision, subdirectory string) (dir string, err error)
}

// fetchDistribution acquires one distribution's bytes (downloading,
// cloning or building as its Kind requires) and stores the installable
// result in the wheel cache, returning the artifact's store path.
func (e *Executor) fetchDistribution(ctx context.Context, d planner.Desired) (string, error) {
	switch v := d.Distribution.(type) {
	case *dist.RegistryBuilt:
		w := v.BestWheel()
		return e.downloadWheel(ctx, w.URL, d, w.Hashes)

	case *dist.RegistrySource:
		sdistPath, cleanup, err := e.downloadToTemp(ctx, v.IndexURL, nil)
		if err != nil {
			return "", err
		}
		defer cleanup()
		return e.buildFromArchive(ctx, sdistPath, d)

	case *dist.DirectUrlBuilt:
		return e.downloadWheel(ctx, v.Verbatim.String(), d, d.Hashes)

	case *dist.DirectUrlSource:
		archivePath, cleanup, err := e.downloadToTemp(ctx, v.Verbatim.String(), d.Hashes)
		if err != nil {
			return "", err
		}
		defer cleanup()
		return e.buildFromArchive(ctx, archivePath, d)

	case *dist.PathBuilt:
		return e.ingestLocalFile(ctx, v.Path, d)

	case *dist.PathSource:
		return e.buildFromArchive(ctx, v.Path, d)

	case *dist.DirectorySource:
		if v.Editable {
			return "", nil // editable: no artifact, the source tree is the install (§4.E).
		}
		built, err := e.Builder.BuildWheel(ctx, v.Path, nil)
		if err != nil {
			return "", errors.Wrapf(err, "building %s from %s", d.Name, v.Path)
		}
		return e.ingestLocalFile(ctx, built, d)

	case *dist.GitSource:
		if e.GitFetcher == nil {
			return "", errors.Errorf("no git fetcher configured, cannot fetch %s", v.Repo)
		}
		dir, err := e.GitFetcher.Fetch(ctx, v.Repo.String(), v.Revision, v.Subdirectory)
		if err != nil {
			return "", errors.Wrapf(err, "fetching git source for %s", d.Name)
		}
		built, err := e.Builder.BuildWheel(ctx, dir, nil)
		if err != nil {
			return "", errors.Wrapf(err, "building %s from %s", d.Name, dir)
		}
		return e.ingestLocalFile(ctx, built, d)

	default:
		return "", errors.Errorf("unhandled distribution kind %s", d.Distribution.Kind())
	}
}

// downloadWheel streams an install-ready wheel straight into the cache,
// verifying against want when the executor is configured to require
// hashes. Downloaded wheels and locally built ones (via ingestLocalFile)
// share the executor's one cache bucket.
func (e *Executor) downloadWheel(ctx context.Context, url string, d planner.Desired, want map[string]string) (string, error) {
	rc, err := e.Registry.Download(ctx, url)
	if err != nil {
		return "", errors.Wrapf(err, "downloading %s", url)
	}
	defer rc.Close()

	r, err := e.verifiedReader(rc, d.Name, want)
	if err != nil {
		return "", err
	}
	m := cachestore.Metadata{Name: d.Name, Version: d.Version, Hashes: want, IsWheel: true}
	return e.Cache.Put(ctx, dist.DistributionIdentity(d.Distribution), m, r)
}

// downloadToTemp streams url to a local scratch file, verifying want if
// any hashes were declared. The caller is responsible for invoking the
// returned cleanup once done with the file.
func (e *Executor) downloadToTemp(ctx context.Context, url string, want map[string]string) (path string, cleanup func(), err error) {
	rc, err := e.Registry.Download(ctx, url)
	if err != nil {
		return "", nil, errors.Wrapf(err, "downloading %s", url)
	}
	defer rc.Close()

	r, err := e.verifiedReader(rc, url, want)
	if err != nil {
		return "", nil, err
	}

	tmp, err := os.CreateTemp("", e.tempPrefix("fetch"))
	if err != nil {
		return "", nil, errors.Wrap(err, "staging download")
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, errors.Wrapf(err, "staging %s", url)
	}
	tmp.Close()
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// verifiedReader wraps rc so that if the executor requires hashes, the
// full stream is buffered and validated against want before any byte is
// made available to the caller; with require-hashes off it returns rc
// unchanged (streamed, not buffered).
func (e *Executor) verifiedReader(rc io.Reader, label string, want map[string]string) (io.Reader, error) {
	if !e.Opts.RequireHashes {
		return rc, nil
	}
	if len(want) == 0 {
		return nil, errors.Wrapf(ErrFatal, "%s: no hashes declared but require_hashes is set", label)
	}
	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", label)
	}
	if err := hashext.VerifyStream(bytes.NewReader(buf), want); err != nil {
		return nil, errors.Wrapf(ErrFatal, "%s: %v", label, err)
	}
	return bytes.NewReader(buf), nil
}

// ingestLocalFile copies a file already on disk into the wheel cache,
// used for path-built distributions and the output of a local build.
func (e *Executor) ingestLocalFile(ctx context.Context, path string, d planner.Desired) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	m := cachestore.Metadata{Name: d.Name, Version: d.Version, Hashes: d.Hashes, IsWheel: true}
	return e.Cache.Put(ctx, dist.DistributionIdentity(d.Distribution), m, f)
}

// buildFromArchive extracts a local archive and runs the builder over
// it, then ingests the resulting wheel into the wheel cache.
func (e *Executor) buildFromArchive(ctx context.Context, archivePath string, d planner.Desired) (string, error) {
	destDir, err := os.MkdirTemp("", e.tempPrefix("build"))
	if err != nil {
		return "", errors.Wrap(err, "creating build directory")
	}
	defer os.RemoveAll(destDir)

	if err := e.Extractor.Extract(ctx, archivePath, destDir); err != nil {
		return "", errors.Wrapf(err, "extracting %s", archivePath)
	}
	built, err := e.Builder.BuildWheel(ctx, destDir, nil)
	if err != nil {
		return "", errors.Wrapf(err, "building %s", d.Name)
	}
	return e.ingestLocalFile(ctx, built, d)
}
