package cachestore

import (
	"context"
	"encoding/json"
	"io"
	"path"

	"github.com/pkg/errors"
	"github.com/pysync/pysync/pkg/dist"
	"github.com/pysync/pysync/pkg/planner"
)

// Metadata is the small sidecar JSON document stored next to every cached
// artifact, recording what the planner needs to classify it without
// re-deriving identity from the artifact bytes.
type Metadata struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Hashes  map[string]string `json:"hashes,omitempty"`
	IsWheel bool              `json:"is_wheel"`
}

// Cache adapts a Store into the planner's CacheLookup contract (§4.D) and
// exposes the put/fetch operations the executor's fetch stage uses to
// populate it (§4.E).
type Cache struct {
	Store  Store
	Bucket Bucket
}

var _ planner.CacheLookup = &Cache{}

// NewCache builds a Cache over one bucket of a Store.
func NewCache(store Store, bucket Bucket) *Cache {
	return &Cache{Store: store, Bucket: bucket}
}

func identityDir(identity dist.Identity) string {
	return escapeIdentity(string(identity))
}

// Lookup implements planner.CacheLookup: list every artifact cached under
// identity's directory and decode its sidecar metadata.
func (c *Cache) Lookup(name string, identity dist.Identity) ([]planner.CacheEntry, error) {
	ctx := context.Background()
	dir := identityDir(identity)
	infos, err := c.Store.List(ctx, c.Bucket, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing cache entries for %s", identity)
	}
	var out []planner.CacheEntry
	for _, info := range infos {
		if path.Ext(info.Name) != ".json" {
			continue
		}
		m, err := c.readMetadata(ctx, path.Join(dir, info.Name))
		if err != nil {
			return nil, err
		}
		artifactKey := path.Join(dir, m.artifactName())
		artifactInfo, err := c.Store.Stat(ctx, c.Bucket, artifactKey)
		if errors.Is(err, ErrNotExist) {
			continue // metadata without its artifact: a partial/aborted write.
		}
		if err != nil {
			return nil, err
		}
		out = append(out, planner.CacheEntry{
			Version:   m.Version,
			Path:      artifactKey,
			Hashes:    m.Hashes,
			TouchedAt: artifactInfo.ModTime,
			IsWheel:   m.IsWheel,
		})
	}
	return out, nil
}

func (m Metadata) artifactName() string {
	return m.Name + "-" + m.Version + ".bin"
}

func (c *Cache) readMetadata(ctx context.Context, key string) (Metadata, error) {
	r, err := c.Store.Reader(ctx, c.Bucket, key)
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "reading cache metadata %s", key)
	}
	defer r.Close()
	var m Metadata
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Metadata{}, errors.Wrapf(err, "decoding cache metadata %s", key)
	}
	return m, nil
}

// Put stores one artifact and its metadata sidecar under identity's
// directory, called by the executor after a successful fetch or build
// (§4.E).
func (c *Cache) Put(ctx context.Context, identity dist.Identity, m Metadata, content io.Reader) (string, error) {
	dir := identityDir(identity)
	artifactKey := path.Join(dir, m.artifactName())

	w, err := c.Store.Writer(ctx, c.Bucket, artifactKey)
	if err != nil {
		return "", errors.Wrapf(err, "opening cache writer for %s", artifactKey)
	}
	if _, err := io.Copy(w, content); err != nil {
		w.Close()
		return "", errors.Wrapf(err, "writing cache artifact %s", artifactKey)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "closing cache artifact %s", artifactKey)
	}

	metaKey := path.Join(dir, m.artifactName()+".json")
	mw, err := c.Store.Writer(ctx, c.Bucket, metaKey)
	if err != nil {
		return "", errors.Wrapf(err, "opening cache metadata writer for %s", metaKey)
	}
	if err := json.NewEncoder(mw).Encode(m); err != nil {
		mw.Close()
		return "", errors.Wrapf(err, "writing cache metadata %s", metaKey)
	}
	return artifactKey, errors.Wrap(mw.Close(), "closing cache metadata writer")
}

// Fetch opens a reader on a previously cached artifact by its Path, as
// returned in a planner.CacheEntry.
func (c *Cache) Fetch(ctx context.Context, artifactPath string) (io.ReadCloser, error) {
	return c.Store.Reader(ctx, c.Bucket, artifactPath)
}
