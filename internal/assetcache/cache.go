// Package assetcache is a content-addressable store for fetched assets.
//
// Entries are flat files named <key><ext>, where key is the hex SHA-256
// digest of the remote locator string. Entries are created or read, never
// mutated; overwriting an entry rewrites identical content.
package assetcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/bindrune/internal/checksum"
)

// Cache is a locator-keyed file store. A nil or disabled cache misses on
// every lookup and refuses stores, which sends fetched assets straight to the
// bundle directory without persistence.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir. An empty dir disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Enabled reports whether a cache directory is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.dir != ""
}

// Key returns the cache key for url: the hex SHA-256 digest of its UTF-8
// bytes. Pure and deterministic regardless of network timing.
func (c *Cache) Key(url string) string {
	return checksum.SumString(url)
}

// Lookup returns the path of the cached entry for url, if one exists.
// A miss is not an error; only genuine I/O failure is. Should more than one
// file share the key prefix, the first match in directory order wins.
func (c *Cache) Lookup(url string) (string, bool, error) {
	if !c.Enabled() {
		return "", false, nil
	}
	key := c.Key(url)
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("assetcache: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), key) {
			return filepath.Join(c.dir, e.Name()), true, nil
		}
	}
	return "", false, nil
}

// Store writes data to <dir>/<key><ext> and returns the path, overwriting
// any existing entry. ext may be empty for extensionless assets.
func (c *Cache) Store(url string, data []byte, ext string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("assetcache: store on disabled cache")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("assetcache: mkdir: %w", err)
	}
	path := filepath.Join(c.dir, c.Key(url)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("assetcache: write %s: %w", path, err)
	}
	return path, nil
}
