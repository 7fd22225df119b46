package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/pysync/pysync/pkg/cachestore"
	"github.com/pysync/pysync/pkg/registry"
	"github.com/pysync/pysync/pkg/resolve"
)

const userAgent = "pysync/0"

// cacheRoot picks the on-disk cache directory: PYSYNC_CACHE_DIR if set,
// otherwise a "pysync" subdirectory of the user cache directory.
func cacheRoot() string {
	if dir := os.Getenv("PYSYNC_CACHE_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "pysync")
}

// buildCache opens the wheels bucket of the on-disk cache store. Every
// installable artifact the executor fetches or builds flows through this
// one bucket; git-v0 and archive-v0 are not exercised at runtime (see
// DESIGN.md).
func buildCache() *cachestore.Cache {
	store, err := cachestore.NewFSStore(cacheRoot())
	if err != nil {
		log.Fatalf("opening cache store: %v", err)
	}
	return cachestore.NewCache(store, cachestore.WheelsBucket)
}

// buildResolver wires a PinnedResolver against a real PEP 691 registry
// client. No CompatibilityOracle is configured: wheel-tag compatibility
// is an external contract (§6) this repo deliberately leaves unimplemented,
// so PinnedResolver falls back to its first-candidate default.
func buildResolver(indexURL string) *resolve.PinnedResolver {
	return &resolve.PinnedResolver{
		Registry: registry.NewClient(userAgent),
		IndexURL: indexURL,
	}
}
