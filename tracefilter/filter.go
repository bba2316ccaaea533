// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// Package tracefilter decides whether samples taken in a source file should be attributed to user code.
//
// A TraceFilter is an immutable snapshot of the user configuration. It is built once per configuration
// change and published through a Registry, which readers query concurrently.
package tracefilter

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Birdi7/scalene/logger"
	"github.com/Birdi7/scalene/pathmatch"
	"github.com/google/uuid"
)

// FatalFunc handles a configuration error detected while answering ShouldTrace. The default handler
// logs the error and terminates the process.
type FatalFunc func(err error)

// Option configures a TraceFilter
type Option func(*TraceFilter)

// WithCanonicalizer makes the filter use the provided canonicalizer for base path matching instead of
// a private one. A single canonicalizer may be shared between filters.
func WithCanonicalizer(c *pathmatch.Canonicalizer) Option {
	return func(f *TraceFilter) {
		if c != nil {
			f.canonical = c
		}
	}
}

// WithFatalHandler replaces the default fatal error handler
func WithFatalHandler(fn FatalFunc) Option {
	return func(f *TraceFilter) {
		if fn != nil {
			f.fatal = fn
		}
	}
}

// TraceFilter holds the set of path fragments the user wants traced and the canonical project root
// used as a fallback. All methods are safe for concurrent use.
type TraceFilter struct {
	id         string
	entries    pathmatch.ContainsMatcher
	basePath   string
	profileAll bool

	library     pathmatch.Matcher
	interactive pathmatch.Matcher
	profiler    pathmatch.Matcher
	base        pathmatch.Matcher

	canonical *pathmatch.Canonicalizer
	fatal     FatalFunc
}

// New returns a TraceFilter for a list of path fragments and a base path. Both are copied and stored
// as is, the base path is not resolved and no filesystem access happens here.
func New(entries []string, basePath string, profileAll bool, opts ...Option) *TraceFilter {
	f := &TraceFilter{
		id:          uuid.NewString(),
		entries:     pathmatch.NewContainsMatcher(entries...),
		basePath:    basePath,
		profileAll:  profileAll,
		library:     pathmatch.LibraryMatcher(),
		interactive: pathmatch.InteractiveMatcher(),
		profiler:    pathmatch.ProfilerMatcher(),
		base:        pathmatch.NewContainsMatcher(basePath),
		fatal:       exitOnFatal,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.canonical == nil {
		f.canonical = defaultCanonicalizer()
	}

	return f
}

// ShouldTrace returns whether samples taken in path belong to the user code. The rules are evaluated
// in order and the first one that applies decides:
//
//  1. third-party packages and the standard library are never traced
//  2. interactive shell sources ("<ipython...") are always traced
//  3. the profiler's own files are never traced
//  4. paths containing any of the configured entries are traced
//  5. otherwise the path is traced if its canonical form contains the base path
//
// A path that cannot be canonicalized in the last step is a fatal configuration error, which is
// reported to the fatal handler. Should the handler return, ShouldTrace returns false.
//
// A nil *TraceFilter traces nothing.
func (f *TraceFilter) ShouldTrace(path string) bool {
	if f == nil {
		return false
	}

	ok, err := f.Match(path)
	if err != nil {
		f.fatal(err)
		return false
	}

	return ok
}

// Match applies the same rules as ShouldTrace, but returns the canonicalization error instead of
// handing it to the fatal handler. The returned error wraps pathmatch.ErrUnresolvablePath.
func (f *TraceFilter) Match(path string) (bool, error) {
	if f == nil {
		return false, nil
	}

	if f.library.Match(path) {
		return false, nil
	}

	if f.interactive.Match(path) {
		return true, nil
	}

	if f.profiler.Match(path) {
		return false, nil
	}

	if f.entries.Match(path) {
		return true, nil
	}

	resolved, err := f.canonical.Canonicalize(path)
	if err != nil {
		return false, fmt.Errorf("trace filter %s: %w", f.id, err)
	}

	return f.base.Match(resolved), nil
}

// ID returns the unique identifier assigned to this filter at construction time
func (f *TraceFilter) ID() string {
	return f.id
}

// Entries returns a copy of configured path fragments in their original order
func (f *TraceFilter) Entries() []string {
	return f.entries.Fragments()
}

// BasePath returns the base path as provided to New
func (f *TraceFilter) BasePath() string {
	return f.basePath
}

// ProfileAll returns the "profile everything" flag. It's informational and does not change the
// outcome of ShouldTrace.
func (f *TraceFilter) ProfileAll() bool {
	return f.profileAll
}

// String returns a human-readable dump of the filter configuration
func (f *TraceFilter) String() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Profile all? %t\nbase path: %s\nitems {", f.profileAll, f.basePath)
	for _, entry := range f.entries.Fragments() {
		fmt.Fprintf(&buf, "\n\t%s", entry)
	}
	buf.WriteString("\n}")

	return buf.String()
}

func defaultCanonicalizer() *pathmatch.Canonicalizer {
	c, err := pathmatch.NewCanonicalizer(pathmatch.DefaultCacheSize, nil)
	if err != nil {
		// a cache-less canonicalizer never fails to initialize
		c, _ = pathmatch.NewCanonicalizer(0, nil)
	}

	return c
}

var osExit = os.Exit

func exitOnFatal(err error) {
	logger.New(nil).Error("failed to resolve traced path, the trace filter cannot be applied: ", err)
	osExit(1)
}
