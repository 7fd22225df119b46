package cachestore

import (
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
)

// FSStore is a Store backed by a local directory, laid out as
// <root>/<bucket>/<key>. Grounded on the teacher's FilesystemAssetStore,
// which stores debug assets the same way under a billy.Filesystem.
type FSStore struct {
	fs billy.Filesystem
}

var _ Store = &FSStore{}

// NewFSStore roots a cache at dir, creating it if necessary.
func NewFSStore(dir string) (*FSStore, error) {
	return &FSStore{fs: osfs.New(dir)}, nil
}

func (s *FSStore) path(bucket Bucket, key string) string {
	return filepath.Join(string(bucket), filepath.FromSlash(key))
}

func (s *FSStore) Reader(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path(bucket, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, errors.Wrapf(err, "opening %s/%s", bucket, key)
	}
	return f, nil
}

func (s *FSStore) Writer(ctx context.Context, bucket Bucket, key string) (io.WriteCloser, error) {
	path := s.path(bucket, key)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating directory for %s/%s", bucket, key)
	}
	f, err := s.fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s/%s", bucket, key)
	}
	return f, nil
}

func (s *FSStore) Stat(ctx context.Context, bucket Bucket, key string) (Info, error) {
	info, err := s.fs.Stat(s.path(bucket, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, ErrNotExist
		}
		return Info{}, errors.Wrapf(err, "statting %s/%s", bucket, key)
	}
	return Info{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *FSStore) List(ctx context.Context, bucket Bucket, prefix string) ([]Info, error) {
	dir := s.path(bucket, prefix)
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "listing %s/%s", bucket, prefix)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, Info{Name: e.Name(), Size: e.Size(), ModTime: e.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FSStore) Delete(ctx context.Context, bucket Bucket, key string) error {
	path := s.path(bucket, key)
	err := s.fs.Remove(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrapf(err, "removing %s/%s", bucket, key)
}

// escapeIdentity maps a dist.Identity (which may embed ':' and '/') to a
// single filesystem-safe path segment.
func escapeIdentity(id string) string {
	r := strings.NewReplacer("/", "_", ":", "__")
	return r.Replace(id)
}
