// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package pathmatch

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
)

// DefaultCacheSize is the default number of canonical paths kept by a Canonicalizer
const DefaultCacheSize = 4096

// ErrUnresolvablePath is returned when a path cannot be converted into its canonical form
var ErrUnresolvablePath = errors.New("unresolvable path")

// ResolveFunc converts a path into an absolute, symlink-free form
type ResolveFunc func(path string) (string, error)

// RealPath returns the absolute form of path with all symbolic links resolved. The path
// must exist. An empty path is never resolvable.
func RealPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnresolvablePath)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w %q: %s", ErrUnresolvablePath, path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w %q: %s", ErrUnresolvablePath, path, err)
	}

	return resolved, nil
}

// Canonicalizer resolves paths to their canonical form and remembers successful resolutions.
// It is safe for concurrent use.
type Canonicalizer struct {
	resolve ResolveFunc
	cache   *freelru.SyncedLRU[string, string]
}

// NewCanonicalizer returns a Canonicalizer that keeps up to size resolved paths. A zero size disables
// caching. If resolve is nil, RealPath is used.
func NewCanonicalizer(size uint32, resolve ResolveFunc) (*Canonicalizer, error) {
	if resolve == nil {
		resolve = RealPath
	}

	c := &Canonicalizer{resolve: resolve}
	if size == 0 {
		return c, nil
	}

	cache, err := freelru.NewSynced[string, string](size, hashString)
	if err != nil {
		return nil, fmt.Errorf("failed to create canonical path cache: %w", err)
	}
	c.cache = cache

	return c, nil
}

// Canonicalize returns the canonical form of path. Failures are not cached, so a path that
// appears later on will be resolved on the next call.
func (c *Canonicalizer) Canonicalize(path string) (string, error) {
	if c.cache != nil {
		if resolved, ok := c.cache.Get(path); ok {
			return resolved, nil
		}
	}

	resolved, err := c.resolve(path)
	if err != nil {
		if !errors.Is(err, ErrUnresolvablePath) {
			err = fmt.Errorf("%w %q: %s", ErrUnresolvablePath, path, err)
		}

		return "", err
	}

	if c.cache != nil {
		c.cache.Add(path, resolved)
	}

	return resolved, nil
}

// hashString is the key hasher for the canonical path cache
func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}
