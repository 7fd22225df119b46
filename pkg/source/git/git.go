// Package git fetches GitSource distributions (§3.1) into local working
// trees the builder contract can consume, reusing a prior clone when one
// already exists under the cache directory rather than re-cloning on
// every sync.
package git

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/pkg/errors"

	"github.com/pysync/pysync/internal/urlx"
)

// Fetcher checks out git-sourced distributions under CacheDir, one
// bare-ish working tree per repository URL, keyed the same way the
// distribution identity scheme canonicalizes git URLs (§3.2) so repeated
// syncs of the same repo land in the same directory.
type Fetcher struct {
	CacheDir string
}

// Fetch implements executor.GitFetcher: it clones repo if not already
// present under CacheDir, fetches otherwise, checks out revision, and
// returns the (optionally subdirectory-joined) working tree path.
func (f *Fetcher) Fetch(ctx context.Context, repo, revision, subdirectory string) (string, error) {
	dir, err := f.repoDir(repo)
	if err != nil {
		return "", err
	}

	r, err := f.openOrClone(ctx, dir, repo)
	if err != nil {
		return "", err
	}

	if err := fetchAll(ctx, r); err != nil {
		return "", errors.Wrapf(err, "fetching %s", repo)
	}

	wt, err := r.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "opening worktree")
	}
	hash, err := resolveRevision(r, revision)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", revision)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return "", errors.Wrapf(err, "checking out %s", revision)
	}

	if subdirectory == "" {
		return dir, nil
	}
	return filepath.Join(dir, subdirectory), nil
}

func (f *Fetcher) repoDir(repo string) (string, error) {
	u, err := url.Parse(repo)
	if err != nil {
		return "", errors.Wrapf(err, "parsing %s", repo)
	}
	name := escapeRepoPath(urlx.Canonicalize(u).String())
	dir := filepath.Join(f.CacheDir, name)
	return dir, os.MkdirAll(dir, 0o755)
}

func (f *Fetcher) openOrClone(ctx context.Context, dir, repo string) (*git.Repository, error) {
	fs := osfs.New(dir)
	dotGit := osfs.New(filepath.Join(dir, ".git"))
	storer := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())

	r, err := git.Open(storer, fs)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, errors.Wrapf(err, "opening existing clone at %s", dir)
	}
	return git.CloneContext(ctx, storer, fs, &git.CloneOptions{URL: repo, NoCheckout: true})
}

func fetchAll(ctx context.Context, r *git.Repository) error {
	err := r.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{
			"+refs/heads/*:refs/remotes/origin/*",
			"+refs/tags/*:refs/tags/*",
		},
		Force: true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return err
	}
	return nil
}

func resolveRevision(r *git.Repository, revision string) (plumbing.Hash, error) {
	if revision == "" {
		ref, err := r.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return ref.Hash(), nil
	}
	hash, err := r.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return *hash, nil
}

func escapeRepoPath(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
