// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package scalene

import (
	"github.com/Birdi7/scalene/pathmatch"
	"github.com/Birdi7/scalene/tracefilter"
)

// Options allows the user to configure the profiler core
type Options struct {
	// CanonicalCacheSize is the number of canonical paths remembered across configurations.
	// Zero disables the cache.
	CanonicalCacheSize uint32
	// ForceProfileAll sets the "profile everything" flag on every configured filter
	ForceProfileAll bool
	// FatalHandler is called when a traced path cannot be canonicalized. The default handler logs the
	// error and terminates the process.
	FatalHandler tracefilter.FatalFunc
	// Logger is used instead of the package default logger if set
	Logger LeveledLogger
}

// DefaultOptions returns the default set of options to configure the profiler core, with
// SCALENE_CANONICAL_CACHE_SIZE and SCALENE_PROFILE_ALL applied
func DefaultOptions() *Options {
	opts := &Options{
		CanonicalCacheSize: pathmatch.DefaultCacheSize,
	}
	opts.setDefaults()

	return opts
}

// setDefaults applies the environment configuration, ignoring malformed values
func (opts *Options) setDefaults() {
	l := opts.logger()

	if err := lookupEnv(CacheSizeEnv, func(s string) error {
		n, err := parseCacheSize(s)
		if err == nil {
			opts.CanonicalCacheSize = n
		}

		return err
	}); err != nil {
		l.Warn("ignoring ", CacheSizeEnv, ": ", err)
	}

	if err := lookupEnv(ProfileAllEnv, func(s string) error {
		v, err := parseProfileAll(s)
		if err == nil {
			opts.ForceProfileAll = v
		}

		return err
	}); err != nil {
		l.Warn("ignoring ", ProfileAllEnv, ": ", err)
	}
}

func (opts *Options) logger() LeveledLogger {
	if opts.Logger != nil {
		return opts.Logger
	}

	return currentLogger()
}
