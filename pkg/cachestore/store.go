// Package cachestore implements the on-disk (and optionally GCS-backed)
// cache directory layout consulted by the planner and populated by the
// executor (§4.D, §4.E, §6): one bucket per artifact kind, keyed by
// distribution or resource identity.
package cachestore

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

// ErrNotExist is returned by Reader/Stat when the requested object is
// absent, mirroring fs.ErrNotExist without requiring callers to depend on
// a particular backend's error type.
var ErrNotExist = errors.New("cachestore: object does not exist")

// Bucket names one of the four cache directory roots (§9's MODULE MAP
// entry for pkg/cachestore).
type Bucket string

const (
	// WheelsBucket holds registry/direct-URL wheels downloaded verbatim.
	WheelsBucket Bucket = "wheels-v1"
	// BuiltWheelsBucket holds wheels produced by building a source
	// distribution locally.
	BuiltWheelsBucket Bucket = "built-wheels-v1"
	// GitBucket holds cloned git repositories, keyed by resource identity
	// (the repository, independent of revision).
	GitBucket Bucket = "git-v0"
	// ArchiveBucket holds extracted source archives, keyed by content hash.
	ArchiveBucket Bucket = "archive-v0"
)

// Info describes one stored object, enough for the planner's
// most-recently-touched tie-break (§4.D).
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store is the storage backend contract every cache bucket is built on.
// FSStore and GCSStore both implement it; pkg/executor and pkg/planner
// only ever see the Cache type built on top, never a Store directly.
type Store interface {
	Reader(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error)
	Writer(ctx context.Context, bucket Bucket, key string) (io.WriteCloser, error)
	Stat(ctx context.Context, bucket Bucket, key string) (Info, error)
	List(ctx context.Context, bucket Bucket, prefix string) ([]Info, error)
	Delete(ctx context.Context, bucket Bucket, key string) error
}
