package cachestore

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
)

// GCSStore is a Store backed by a Google Cloud Storage bucket, for teams
// sharing one wheel cache across CI runners. Grounded on the teacher's
// GCSStore (pkg/rebuild/rebuild/storage.go), which lays debug assets out
// under gs://bucket/prefix/... the same way.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

var _ Store = &GCSStore{}

// NewGCSStore builds a GCSStore rooted at a gs://bucket/prefix URL.
func NewGCSStore(ctx context.Context, client *gcs.Client, gsURL string) (*GCSStore, error) {
	if !strings.HasPrefix(gsURL, "gs://") {
		return nil, errors.Errorf("not a gs:// URL: %s", gsURL)
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(gsURL, "gs://"), "/")
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) objectName(bucket Bucket, key string) string {
	return filepath.Join(s.prefix, string(bucket), key)
}

func (s *GCSStore) Reader(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(bucket, key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotExist
		}
		return nil, errors.Wrapf(err, "creating GCS reader for %s/%s", bucket, key)
	}
	return r, nil
}

func (s *GCSStore) Writer(ctx context.Context, bucket Bucket, key string) (io.WriteCloser, error) {
	return s.client.Bucket(s.bucket).Object(s.objectName(bucket, key)).NewWriter(ctx), nil
}

func (s *GCSStore) Stat(ctx context.Context, bucket Bucket, key string) (Info, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(s.objectName(bucket, key)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return Info{}, ErrNotExist
		}
		return Info{}, errors.Wrapf(err, "statting %s/%s", bucket, key)
	}
	return Info{Name: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated}, nil
}

func (s *GCSStore) List(ctx context.Context, bucket Bucket, prefix string) ([]Info, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: s.objectName(bucket, prefix)})
	var out []Info
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s/%s", bucket, prefix)
		}
		out = append(out, Info{Name: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated})
	}
	return out, nil
}

func (s *GCSStore) Delete(ctx context.Context, bucket Bucket, key string) error {
	err := s.client.Bucket(s.bucket).Object(s.objectName(bucket, key)).Delete(ctx)
	if err != nil && errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return errors.Wrapf(err, "deleting %s/%s", bucket, key)
}
