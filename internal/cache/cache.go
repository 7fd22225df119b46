// Package cache provides in-memory caching primitives shared by the
// executor's in-flight fetch map and the manifest reader.
package cache

import (
	"sync"

	"github.com/pkg/errors"
)

// Cache is a simple interface defining a cache keyed by an arbitrary
// comparable value.
type Cache interface {
	Get(any) (any, error)
	Set(any, func() (any, error)) error
	GetOrSet(any, func() (any, error)) (any, error)
	Del(any)
	Clear()
}

// ErrNotExist is returned when a key does not exist in the cache.
var ErrNotExist = errors.New("does not exist")

// Coalescing is a cache that coalesces concurrent requests for the same
// key: the first caller to request a key runs fetch, and every concurrent
// caller for that same key observes the same outcome. This is the
// singleflight primitive that backs the executor's at-most-once fetch
// guarantee (one fetch per resource identity, regardless of how many
// requirements resolve to it) and the manifest reader's per-path
// deduplication during workspace discovery.
type Coalescing struct {
	data sync.Map // key -> *fn
}

// fn wraps a fetch function in a sync.OnceValues result so concurrent
// GetOrSet calls for the same key share one evaluation.
type fn struct {
	Func func() (any, error)
}

func (c *Coalescing) valueOrClear(key, once any) (any, error) {
	val, err := once.(*fn).Func()
	if err != nil {
		c.data.CompareAndDelete(key, once)
	}
	return val, err
}

// Get returns the value for the given key.
func (c *Coalescing) Get(key any) (any, error) {
	once, ok := c.data.Load(key)
	if !ok {
		return nil, ErrNotExist
	}
	return c.valueOrClear(key, once)
}

// Set sets the value for the given key with the value returned by fetch.
func (c *Coalescing) Set(key any, fetch func() (any, error)) error {
	once := &fn{sync.OnceValues(fetch)}
	c.data.Store(key, once)
	_, err := c.valueOrClear(key, once)
	return err
}

// GetOrSet returns the value for the given key, invoking fetch at most
// once across all concurrent callers racing on the same key.
func (c *Coalescing) GetOrSet(key any, fetch func() (any, error)) (any, error) {
	once, _ := c.data.LoadOrStore(key, &fn{sync.OnceValues(fetch)})
	return c.valueOrClear(key, once)
}

// Del deletes the value for the given key.
func (c *Coalescing) Del(key any) {
	c.data.Delete(key)
}

// Clear removes every entry.
func (c *Coalescing) Clear() {
	c.data = sync.Map{}
}

var _ Cache = &Coalescing{}
